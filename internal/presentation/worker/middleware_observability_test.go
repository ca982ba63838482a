package workerpresentation

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/obstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type directSubscriber map[string]outbox.Handler

func (d directSubscriber) Subscribe(name string, h outbox.Handler) { d[name] = h }

type evt struct{}

func (evt) EventName() string { return "order.created" }

func TestSubscriber_InjectsEventLogger(t *testing.T) {
	tel := obstest.New()
	direct := directSubscriber{}
	NewSubscriber(direct, tel).Subscribe("order.created", func(ctx context.Context, _ outbox.Event) error {
		logctx.From(ctx).Info("handled")
		return nil
	})

	h, ok := direct["order.created"]
	require.True(t, ok)
	require.NoError(t, h(context.Background(), evt{}))

	entries := tel.Log.Find("handled")
	require.Len(t, entries, 1)
	assert.Equal(t, "order.created", entries[0].Fields["event"])
	assert.NotEmpty(t, entries[0].Fields["event_id"])
}
