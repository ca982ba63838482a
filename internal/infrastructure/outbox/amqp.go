package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const brokerPeer = "rabbitmq"

// Channel is the subset of *amqp.Channel the relay uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Envelope is the JSON body of every relayed message.
type Envelope struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// AMQPRelay republishes bus events to a topic exchange, routing key = event name.
type AMQPRelay struct {
	ch       Channel
	exchange string
	now      func() time.Time
	log      observability.Logger
	ext      observability.Counter
	extDur   observability.Histogram
}

func NewAMQPRelay(ch Channel, exchange string, tel observability.Observability) (*AMQPRelay, error) {
	if tel == nil {
		tel = observability.Nop()
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("outbox: declare exchange %q: %w", exchange, err)
	}
	return &AMQPRelay{
		ch:       ch,
		exchange: exchange,
		now:      time.Now,
		log:      tel.Logger().With(observability.F("component", "amqp_relay"), observability.F("exchange", exchange)),
		ext:      tel.Metrics().Counter(observability.MExternalRequests),
		extDur:   tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}, nil
}

// Attach subscribes the relay to each named event.
func (r *AMQPRelay) Attach(sub domoutbox.Subscriber, eventNames ...string) {
	for _, name := range eventNames {
		sub.Subscribe(name, r.Handle)
	}
}

func (r *AMQPRelay) Handle(ctx context.Context, e domoutbox.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("outbox: encode %s: %w", e.EventName(), err)
	}
	env := Envelope{
		ID:         uuid.NewString(),
		Name:       e.EventName(),
		OccurredAt: r.now().UTC(),
		Payload:    payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("outbox: encode envelope: %w", err)
	}

	start := time.Now()
	err = r.ch.PublishWithContext(ctx, r.exchange, env.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Type:         env.Name,
		Timestamp:    env.OccurredAt,
		Body:         body,
	})

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.ext.Add(1,
		observability.L("peer", brokerPeer),
		observability.L("endpoint", env.Name),
		observability.L("outcome", outcome),
	)
	r.extDur.Observe(time.Since(start).Seconds(),
		observability.L("peer", brokerPeer),
		observability.L("endpoint", env.Name),
	)
	if err != nil {
		r.log.Warn("event_relay_failed", observability.F("event", env.Name), observability.F("error", err))
		return fmt.Errorf("outbox: relay %s: %w", env.Name, err)
	}
	r.log.Debug("event_relayed", observability.F("event", env.Name), observability.F("message_id", env.ID))
	return nil
}

// DialAMQP opens a connection and a channel. Callers close both on shutdown.
func DialAMQP(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("outbox: dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("outbox: open channel: %w", err)
	}
	return conn, ch, nil
}
