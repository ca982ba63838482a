package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/obstest"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	declared []string
	kinds    []string
	out      []published
	err      error
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	c.declared = append(c.declared, name)
	c.kinds = append(c.kinds, kind)
	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.out = append(c.out, published{exchange: exchange, key: key, msg: msg})
	return nil
}

type orderCreated struct {
	OrderID string `json:"order_id"`
}

func (orderCreated) EventName() string { return "order.created" }

func TestAMQPRelay_PublishesEnvelope(t *testing.T) {
	ch := &fakeChannel{}
	tel := obstest.New()
	relay, err := NewAMQPRelay(ch, "checkout.events", tel)
	require.NoError(t, err)
	assert.Equal(t, []string{"checkout.events"}, ch.declared)
	assert.Equal(t, []string{amqp.ExchangeTopic}, ch.kinds)

	relay.now = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	require.NoError(t, relay.Handle(context.Background(), orderCreated{OrderID: "o-1"}))

	require.Len(t, ch.out, 1)
	p := ch.out[0]
	assert.Equal(t, "checkout.events", p.exchange)
	assert.Equal(t, "order.created", p.key)
	assert.Equal(t, "application/json", p.msg.ContentType)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)

	var env Envelope
	require.NoError(t, json.Unmarshal(p.msg.Body, &env))
	assert.Equal(t, "order.created", env.Name)
	assert.Equal(t, p.msg.MessageId, env.ID)
	assert.JSONEq(t, `{"order_id":"o-1"}`, string(env.Payload))

	assert.Equal(t, 1.0, tel.CounterFor(observability.MExternalRequests).Value("peer=rabbitmq,endpoint=order.created,outcome=success"))
}

func TestAMQPRelay_AttachAndFailure(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	tel := obstest.New()
	relay, err := NewAMQPRelay(ch, "checkout.events", tel)
	require.NoError(t, err)

	bus := NewBus(tel, Options{})
	relay.Attach(bus, "order.created")
	bus.Start(context.Background())
	require.NoError(t, bus.Publish(context.Background(), orderCreated{OrderID: "o-1"}))
	require.NoError(t, bus.Stop(context.Background()))

	assert.Len(t, tel.Log.Find("event_relay_failed"), 1)
	assert.Equal(t, 1.0, tel.CounterFor(observability.MExternalRequests).Value("peer=rabbitmq,endpoint=order.created,outcome=error"))
}
