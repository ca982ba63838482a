// Package redislock implements payment.Locker on Redis so reconciliation is serialized across processes.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

var ErrNotHeld = errors.New("redislock: lock expired or taken over")

// Client is the part of *redis.Client the locker uses.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

type Locker struct {
	client Client
	prefix string
	poll   time.Duration
}

func New(client Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix, poll: 50 * time.Millisecond}
}

var _ dompay.Locker = (*Locker)(nil)

// Lock blocks until the key is acquired or ctx ends.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	full := l.prefix + key
	token := uuid.NewString()

	t := time.NewTicker(l.poll)
	defer t.Stop()
	for {
		ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redislock: acquire %s: %w", full, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return func(ctx context.Context) error {
		n, err := l.client.Eval(ctx, releaseScript, []string{full}, token).Int64()
		if err != nil {
			return fmt.Errorf("redislock: release %s: %w", full, err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}, nil
}

// Dial connects and pings Redis.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redislock: ping %s: %w", addr, err)
	}
	return c, nil
}
