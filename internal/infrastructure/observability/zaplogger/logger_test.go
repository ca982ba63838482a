package zaplogger

import (
	"errors"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_WithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := New(zap.New(core), observability.F("service", "checkout"))

	log.With(observability.F("order_id", "o-1")).Info("order_created",
		observability.F("error", errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "order_created", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "checkout", fields["service"])
	assert.Equal(t, "o-1", fields["order_id"])
	assert.Equal(t, "boom", fields["error"])
}
