package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/obstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBus_FanOutAndDrainOnStop(t *testing.T) {
	tel := obstest.New()
	bus := NewBus(tel, Options{})

	var (
		mu  sync.Mutex
		got []string
	)
	record := func(tag string) domoutbox.Handler {
		return func(_ context.Context, e domoutbox.Event) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, tag+":"+e.EventName())
			return nil
		}
	}
	bus.Subscribe("order.created", record("a"))
	bus.Subscribe("order.created", record("b"))
	bus.Subscribe("payment.approved", record("a"))
	bus.Start(context.Background())

	require.NoError(t, bus.Publish(context.Background(), testEvent{"order.created"}))
	require.NoError(t, bus.Publish(context.Background(), testEvent{"payment.approved"}))
	require.NoError(t, bus.Publish(context.Background(), testEvent{"unrouted"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a:order.created", "b:order.created", "a:payment.approved"}, got)

	assert.ErrorIs(t, bus.Publish(context.Background(), testEvent{"order.created"}), ErrBusStopped)
}

func TestBus_HandlerFailuresAreContained(t *testing.T) {
	tel := obstest.New()
	bus := NewBus(tel, Options{})
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error { panic("boom") })
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error { return errors.New("nope") })
	bus.Start(context.Background())

	require.NoError(t, bus.Publish(context.Background(), testEvent{"x"}))
	require.NoError(t, bus.Stop(context.Background()))

	assert.Len(t, tel.Log.Find("event_handler_panic"), 1)
	assert.Len(t, tel.Log.Find("event_handler_error"), 1)
}

func TestBus_StopWithoutStart(t *testing.T) {
	bus := NewBus(nil, Options{})
	assert.NoError(t, bus.Stop(context.Background()))
}

func TestBus_StopReleasesPublisherOnFullQueue(t *testing.T) {
	bus := NewBus(obstest.New(), Options{QueueSize: 1})
	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "order.created"}))

	blocked := make(chan error, 1)
	go func() { blocked <- bus.Publish(context.Background(), testEvent{name: "order.created"}) }()

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		stopped <- bus.Stop(ctx)
	}()

	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, ErrBusStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("publisher still blocked after stop")
	}
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return")
	}
	assert.ErrorIs(t, bus.Publish(context.Background(), testEvent{name: "order.created"}), ErrBusStopped)
}
