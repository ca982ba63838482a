package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
)

var (
	ErrSignatureMissing = apperr.New(apperr.Forbidden, "webhook signature missing")
	ErrSignatureInvalid = apperr.New(apperr.Forbidden, "webhook signature invalid")
)

// Verifier checks the provider's x-signature header ("ts=<ts>,v1=<hex hmac>").
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) Verifier {
	return Verifier{secret: []byte(secret)}
}

// Manifest builds the signed string. Parts with no value are left out.
func Manifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		b.WriteString("id:" + dataID + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	if ts != "" {
		b.WriteString("ts:" + ts + ";")
	}
	return b.String()
}

// Sign returns the hex HMAC-SHA256 of manifest.
func (v Verifier) Sign(manifest string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseHeader extracts ts and v1 from the header; unknown keys are ignored.
func ParseHeader(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(val)
		case "v1":
			v1 = strings.TrimSpace(val)
		}
	}
	return ts, v1
}

// Verify fails closed: a missing secret, header, timestamp or hash is rejected.
func (v Verifier) Verify(header, requestID, dataID string) error {
	ts, v1 := ParseHeader(header)
	if len(v.secret) == 0 || ts == "" || v1 == "" {
		return ErrSignatureMissing
	}
	want := v.Sign(Manifest(dataID, requestID, ts))
	got, err := hex.DecodeString(v1)
	if err != nil {
		return ErrSignatureInvalid
	}
	wantRaw, _ := hex.DecodeString(want)
	if !hmac.Equal(got, wantRaw) {
		return ErrSignatureInvalid
	}
	return nil
}
