package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManifest(t *testing.T) {
	assert.Equal(t, "id:123;request-id:req-1;ts:1700000000;", Manifest("123", "req-1", "1700000000"))
	assert.Equal(t, "request-id:req-1;ts:1700000000;", Manifest("", "req-1", "1700000000"))
}

func TestParseHeader(t *testing.T) {
	ts, v1 := ParseHeader("id=99, ts=1700000000 ,v1=abcdef,v2=zzz")
	assert.Equal(t, "1700000000", ts)
	assert.Equal(t, "abcdef", v1)

	ts, v1 = ParseHeader("garbage")
	assert.Empty(t, ts)
	assert.Empty(t, v1)
}

func TestVerify(t *testing.T) {
	v := NewVerifier("s3cret")
	sig := v.Sign(Manifest("123", "req-1", "1700000000"))
	header := "ts=1700000000,v1=" + sig

	assert.NoError(t, v.Verify(header, "req-1", "123"))
	assert.ErrorIs(t, v.Verify(header, "req-2", "123"), ErrSignatureInvalid)
	assert.ErrorIs(t, v.Verify(header, "req-1", "124"), ErrSignatureInvalid)
	assert.ErrorIs(t, v.Verify("ts=1700000000,v1=not-hex", "req-1", "123"), ErrSignatureInvalid)
	assert.ErrorIs(t, v.Verify("", "req-1", "123"), ErrSignatureMissing)
	assert.ErrorIs(t, NewVerifier("").Verify(header, "req-1", "123"), ErrSignatureMissing)
}
