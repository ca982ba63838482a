package logctx

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/obstest"
	"github.com/stretchr/testify/assert"
)

func TestFromFallsBackToNop(t *testing.T) {
	assert.NotNil(t, From(context.Background()))
	fallback := obstest.NewLogger()
	assert.Same(t, fallback, FromOr(context.Background(), fallback))
}

func TestEnrich(t *testing.T) {
	log := obstest.NewLogger()
	ctx := With(context.Background(), log)
	ctx = Enrich(ctx, observability.F("user_id", "u-1"))

	From(ctx).Info("hello", observability.F("k", "v"))

	entries := log.Find("hello")
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "u-1", entries[0].Fields["user_id"])
		assert.Equal(t, "v", entries[0].Fields["k"])
	}

	bare := Enrich(context.Background(), observability.F("user_id", "u-1"))
	assert.Nil(t, bare.Value(loggerKey{}))
}
