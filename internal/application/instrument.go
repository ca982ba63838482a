package application

import (
	"context"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	spanPrefix     = "UC."
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// Instrument carries the tracer, logger and RED metrics shared by one use case.
type Instrument struct {
	useCase string
	tracer  observability.Tracer
	// Base logger with fixed fields prebound.
	log observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewInstrument(tel observability.Observability, service, useCase string) *Instrument {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Instrument{
		useCase:      useCase,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

// Call tracks one invocation. End must be deferred right after Start.
type Call struct {
	in      *Instrument
	ctx     context.Context
	span    trace.Span
	logger  observability.Logger
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
}

func (in *Instrument) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Call) {
	logger := logctx.FromOr(ctx, in.log).With(observability.F("use_case", in.useCase))
	attrs = append([]attribute.KeyValue{attribute.String("use_case", in.useCase)}, attrs...)
	ctx, span := in.tracer.Start(ctx, spanPrefix+name, attrs...)
	ctx = logctx.With(ctx, logger)
	return ctx, &Call{
		in:      in,
		ctx:     ctx,
		span:    span,
		logger:  logger,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
	}
}

func (c *Call) Logger() observability.Logger { return c.logger }

func (c *Call) Span() trace.Span { return c.span }

// Fail marks the call as failed with a machine-readable status.
func (c *Call) Fail(status string) {
	c.outcome, c.status = "error", status
}

// Status overrides the status text while keeping the outcome.
func (c *Call) Status(status string) {
	c.status = status
}

// Field adds a field to the use_case_done line.
func (c *Call) Field(key string, value any) {
	c.fields = append(c.fields, observability.F(key, value))
}

func (c *Call) End(err error) {
	if err != nil && c.outcome == "success" {
		c.Fail(strings.ToUpper(apperr.KindOf(err).String()))
	}
	lat := time.Since(c.start).Seconds()

	if c.span != nil {
		if err != nil {
			c.span.RecordError(err)
			c.span.SetStatus(codes.Error, c.status)
		} else {
			c.span.SetStatus(codes.Ok, c.status)
		}
		c.span.End()
	}

	c.in.reqCounter.Add(1,
		observability.L("use_case", c.in.useCase),
		observability.L("outcome", c.outcome),
	)
	c.in.durHistogram.Observe(lat,
		observability.L("use_case", c.in.useCase),
	)

	fields := append([]observability.Field{
		observability.F("outcome", c.outcome),
		observability.F("status", c.status),
		observability.F("latency_seconds", lat),
	}, c.fields...)
	if sc := trace.SpanContextFromContext(c.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}

	c.logger.Info("use_case_done", fields...)
}

// External records one call to a remote peer.
func (in *Instrument) External(peer, endpoint string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	in.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	in.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}

// Publish emits e best-effort. Failures are logged and returned for the caller's
// use_case_done fields but must never undo committed work.
func (c *Call) Publish(pub outbox.Publisher, e outbox.Event) error {
	if pub == nil || e == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), publishTimeout)
	defer cancel()

	start := time.Now()
	err := pub.Publish(pubCtx, e)
	c.in.External(publishPeer, e.EventName(), start, err)
	if err != nil {
		c.logger.Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err),
		)
		c.Field("event_publish_error", err.Error())
		return err
	}
	c.span.AddEvent(e.EventName())
	return nil
}
