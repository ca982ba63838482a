package workerpresentation

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "EVT."

// WithEventContext injects an event-scoped logger for background handlers.
// Fields: event_id (generated), trace_id/span_id when valid, the event name.
func WithEventContext(ctx context.Context, base observability.Logger, eventName string) context.Context {
	fields := []observability.Field{
		observability.F("event_id", uuid.NewString()),
		observability.F("event", eventName),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	return logctx.With(ctx, base.With(fields...))
}

// Subscriber decorates every subscribed handler with a span and an event-scoped logger.
type Subscriber struct {
	next   outbox.Subscriber
	tracer observability.Tracer
	log    observability.Logger
}

func NewSubscriber(next outbox.Subscriber, tel observability.Observability) *Subscriber {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Subscriber{next: next, tracer: tel.Tracer(), log: tel.Logger()}
}

func (s *Subscriber) Subscribe(eventName string, h outbox.Handler) {
	s.next.Subscribe(eventName, func(ctx context.Context, e outbox.Event) error {
		ctx, span := s.tracer.Start(ctx, spanPrefix+eventName, attribute.String("event.name", eventName))
		defer span.End()
		ctx = WithEventContext(ctx, logctx.FromOr(ctx, s.log), eventName)
		err := h(ctx, e)
		if err != nil {
			span.RecordError(err)
		}
		return err
	})
}
