package prometrics

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CounterRegisteredOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "", "")

	c1 := r.Counter("orders_total", "help", "outcome")
	c2 := r.Counter("orders_total", "help", "outcome")
	c1.Add(1, observability.L("outcome", "success"))
	c2.Add(2, observability.L("outcome", "success"))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "orders_total", families[0].GetName())
	require.Len(t, families[0].GetMetric(), 1)
	assert.InDelta(t, 3.0, families[0].GetMetric()[0].GetCounter().GetValue(), 0.0001)
}

func TestRegistry_HistogramDefaultsBuckets(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "checkout", "")

	r.Histogram("latency_seconds", "help", nil, "route").Observe(0.2, observability.L("route", "/x"))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "checkout_latency_seconds", families[0].GetName())
	assert.Equal(t, uint64(1), families[0].GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestStandard_CoversMetricKeys(t *testing.T) {
	counters, histograms := Standard(New(prometheus.NewRegistry(), "", ""))

	assert.Contains(t, counters, observability.MUsecaseRequests)
	assert.Contains(t, counters, observability.MWebhookDeliveries)
	assert.Contains(t, histograms, observability.MUsecaseDuration)
	assert.Contains(t, histograms, observability.MExternalRequestDuration)
}
