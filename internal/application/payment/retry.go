package payment

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
)

// Backoff retries transient failures with exponentially growing pauses between attempts.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	// Sleep waits for d or until ctx ends. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs fn until it succeeds, returns a non-retryable error, or attempts run out.
// OnRetry, when set, observes each failed attempt that will be retried.
func (b Backoff) Do(ctx context.Context, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	sleep := b.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	delay := b.Initial
	var err error
	for attempt := 1; attempt <= b.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !retryable(err) || attempt == b.Attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
		delay *= 2
	}
	return err
}

func retryable(err error) bool {
	switch apperr.KindOf(err) {
	case apperr.Upstream, apperr.Internal:
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
