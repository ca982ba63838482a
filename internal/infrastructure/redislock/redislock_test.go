package redislock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis models SET NX and the compare-and-delete script over a map.
type fakeRedis struct {
	mu   sync.Mutex
	keys map[string]string
	ttls map[string]time.Duration
}

func newFake() *fakeRedis {
	return &fakeRedis{keys: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, exp time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value.(string)
	f.ttls[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if script != releaseScript {
		return redis.NewCmdResult(nil, assert.AnError)
	}
	if f.keys[keys[0]] != args[0].(string) {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(f.keys, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}

func (f *fakeRedis) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
}

func TestLock_AcquireRelease(t *testing.T) {
	f := newFake()
	l := New(f, "checkout:")

	unlock, err := l.Lock(context.Background(), "payment-reconcile:o-1", 30*time.Second)
	require.NoError(t, err)
	assert.Contains(t, f.keys, "checkout:payment-reconcile:o-1")
	assert.Equal(t, 30*time.Second, f.ttls["checkout:payment-reconcile:o-1"])

	require.NoError(t, unlock(context.Background()))
	assert.NotContains(t, f.keys, "checkout:payment-reconcile:o-1")
}

func TestLock_WaitsForHolder(t *testing.T) {
	f := newFake()
	l := New(f, "")
	l.poll = time.Millisecond

	unlock, err := l.Lock(context.Background(), "k", time.Minute)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := l.Lock(context.Background(), "k", time.Minute)
		if assert.NoError(t, err) {
			close(acquired)
			_ = second(context.Background())
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lock")
	case <-time.After(20 * time.Millisecond):
	}
	require.NoError(t, unlock(context.Background()))
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the lock")
	}
}

func TestLock_ContextCancelled(t *testing.T) {
	f := newFake()
	l := New(f, "")
	l.poll = time.Millisecond
	_, err := l.Lock(context.Background(), "k", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnlock_AfterExpiryDoesNotDeleteOthers(t *testing.T) {
	f := newFake()
	l := New(f, "")

	unlock, err := l.Lock(context.Background(), "k", time.Second)
	require.NoError(t, err)
	f.expire("k")
	_, err = l.Lock(context.Background(), "k", time.Second)
	require.NoError(t, err)

	assert.ErrorIs(t, unlock(context.Background()), ErrNotHeld)
	assert.Contains(t, f.keys, "k")
}
