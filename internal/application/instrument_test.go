package application

import (
	"context"
	"errors"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/obstest"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_EndLogsOnceWithOutcome(t *testing.T) {
	obs := obstest.New()
	in := NewInstrument(obs, "checkout", "order.test")

	run := func(fail error) (err error) {
		_, call := in.Start(context.Background(), "Test")
		defer func() { call.End(err) }()
		return fail
	}

	require.NoError(t, run(nil))
	require.Error(t, run(apperr.New(apperr.NotFound, "missing")))

	lines := obs.Log.Find("use_case_done")
	require.Len(t, lines, 2)
	assert.Equal(t, "success", lines[0].Fields["outcome"])
	assert.Equal(t, "order.test", lines[0].Fields["use_case"])
	assert.Equal(t, "checkout", lines[0].Fields["service"])
	assert.Equal(t, "error", lines[1].Fields["outcome"])
	assert.Equal(t, "NOT_FOUND", lines[1].Fields["status"])

	req := obs.CounterFor(observability.MUsecaseRequests)
	assert.Equal(t, 1.0, req.Value("use_case=order.test,outcome=success"))
	assert.Equal(t, 1.0, req.Value("use_case=order.test,outcome=error"))
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, outbox.Event) error { return errors.New("queue full") }

type namedEvent string

func (e namedEvent) EventName() string { return string(e) }

func TestCall_PublishIsBestEffort(t *testing.T) {
	obs := obstest.New()
	in := NewInstrument(obs, "checkout", "order.test")

	_, call := in.Start(context.Background(), "Test")
	err := call.Publish(failingPublisher{}, namedEvent("order.created"))
	call.End(nil)

	require.Error(t, err)
	require.Len(t, obs.Log.Find("event_publish_failed"), 1)
	done := obs.Log.Find("use_case_done")
	require.Len(t, done, 1)
	assert.Equal(t, "success", done[0].Fields["outcome"])
	assert.Equal(t, "queue full", done[0].Fields["event_publish_error"])

	ext := obs.CounterFor(observability.MExternalRequests)
	assert.Equal(t, 1.0, ext.Value("peer=outbox,endpoint=order.created,outcome=error"))
}

func TestPage(t *testing.T) {
	off, size := Page(0, 0)
	assert.Equal(t, 0, off)
	assert.Equal(t, 10, size)

	off, size = Page(3, 500)
	assert.Equal(t, 200, off)
	assert.Equal(t, 100, size)
}
