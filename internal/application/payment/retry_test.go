package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestBackoff_DelaysBetweenAttempts(t *testing.T) {
	var waits []time.Duration
	b := Backoff{Attempts: 3, Initial: time.Second, Sleep: recordingSleep(&waits)}

	calls := 0
	err := b.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("503")
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
}

func TestBackoff_StopsOnSuccessAndNonRetryable(t *testing.T) {
	var waits []time.Duration
	b := Backoff{Attempts: 3, Initial: time.Millisecond, Sleep: recordingSleep(&waits)}

	calls := 0
	require.NoError(t, b.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return apperr.New(apperr.Upstream, "flaky")
		}
		return nil
	}, nil))
	assert.Equal(t, 2, calls)

	calls = 0
	err := b.Do(context.Background(), func(context.Context) error {
		calls++
		return apperr.New(apperr.NotFound, "no such payment")
	}, nil)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Equal(t, 1, calls)
}

func TestBackoff_ContextCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := Backoff{Attempts: 3, Initial: time.Hour}

	err := b.Do(ctx, func(context.Context) error {
		cancel()
		return errors.New("boom")
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
