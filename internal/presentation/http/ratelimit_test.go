package httppresentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_SweepsIdleVisitorsPeriodically(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	clock := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.allow("u-1"))
	assert.False(t, rl.allow("u-1"))

	clock = clock.Add(11 * time.Minute)
	assert.True(t, rl.allow("u-2"))
	assert.Len(t, rl.visitors, 1, "idle bucket dropped on the first request past the sweep interval")

	clock = clock.Add(11*time.Minute - time.Second)
	rl.lastSweep = clock
	clock = clock.Add(2 * time.Second)
	assert.True(t, rl.allow("u-3"))
	assert.Len(t, rl.visitors, 2, "no sweep before the interval elapses")

	clock = clock.Add(time.Minute)
	assert.True(t, rl.allow("u-3"))
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "u-3")
}
