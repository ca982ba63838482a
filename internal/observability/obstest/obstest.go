// Package obstest provides in-memory observability doubles for tests.
package obstest

import (
	"strings"
	"sync"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

type Entry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

type sink struct {
	mu      sync.Mutex
	entries []Entry
}

// Logger records every entry, including fields bound through With.
type Logger struct {
	sink *sink
	base []observability.Field
}

func NewLogger() *Logger { return &Logger{sink: &sink{}} }

func (l *Logger) With(fields ...observability.Field) observability.Logger {
	return &Logger{sink: l.sink, base: append(append([]observability.Field(nil), l.base...), fields...)}
}

func (l *Logger) Debug(msg string, f ...observability.Field) { l.record("debug", msg, f) }
func (l *Logger) Info(msg string, f ...observability.Field)  { l.record("info", msg, f) }
func (l *Logger) Warn(msg string, f ...observability.Field)  { l.record("warn", msg, f) }
func (l *Logger) Error(msg string, f ...observability.Field) { l.record("error", msg, f) }

func (l *Logger) record(level, msg string, fields []observability.Field) {
	m := make(map[string]any, len(l.base)+len(fields))
	for _, f := range l.base {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.sink.mu.Lock()
	l.sink.entries = append(l.sink.entries, Entry{Level: level, Msg: msg, Fields: m})
	l.sink.mu.Unlock()
}

func (l *Logger) Entries() []Entry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return append([]Entry(nil), l.sink.entries...)
}

// Find returns entries with the given message.
func (l *Logger) Find(msg string) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}

// Counter sums additions per label set, rendered as "k=v,k=v".
type Counter struct {
	mu     sync.Mutex
	totals map[string]float64
}

func (c *Counter) Add(d float64, labels ...observability.Label) {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.Key + "=" + l.Value
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.totals == nil {
		c.totals = make(map[string]float64)
	}
	c.totals[strings.Join(parts, ",")] += d
}

func (c *Counter) Value(labels string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals[labels]
}

type metrics struct {
	mu       sync.Mutex
	counters map[observability.MetricKey]*Counter
}

func (m *metrics) Counter(k observability.MetricKey) observability.Counter { return m.counter(k) }

func (m *metrics) counter(k observability.MetricKey) *Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[k]
	if !ok {
		c = &Counter{}
		m.counters[k] = c
	}
	return c
}

func (m *metrics) Histogram(observability.MetricKey) observability.Histogram {
	return observability.NopHistogram()
}

// Observability pairs a recording logger and counters with a no-op tracer.
type Observability struct {
	Log     *Logger
	metrics *metrics
}

func New() *Observability {
	return &Observability{Log: NewLogger(), metrics: &metrics{counters: map[observability.MetricKey]*Counter{}}}
}

func (o *Observability) Tracer() observability.Tracer   { return observability.NopTracer() }
func (o *Observability) Logger() observability.Logger   { return o.Log }
func (o *Observability) Metrics() observability.Metrics { return o.metrics }

// CounterFor exposes the recording counter behind a metric key.
func (o *Observability) CounterFor(k observability.MetricKey) *Counter { return o.metrics.counter(k) }
