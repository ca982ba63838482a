package observability

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/stretchr/testify/assert"
)

type countingCounter struct{ total float64 }

func (c *countingCounter) Add(d float64, _ ...observability.Label) { c.total += d }

func TestNew_UnknownKeysFallBackToNop(t *testing.T) {
	c := &countingCounter{}
	obs := New(nil, nil, map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: c,
	}, nil)

	obs.Metrics().Counter(observability.MUsecaseRequests).Add(2)
	assert.Equal(t, 2.0, c.total)

	assert.NotPanics(t, func() {
		obs.Metrics().Counter(observability.MHTTPRequests).Add(1)
		obs.Metrics().Histogram(observability.MUsecaseDuration).Observe(1)
		obs.Logger().Info("ignored")
	})
	assert.NotNil(t, obs.Tracer())
}
