package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultCounterKey = "jobstream:review-queue:position"

// RedisAssigner hands out positions from a Redis INCR counter, atomic across
// processes.
type RedisAssigner struct {
	client *redis.Client
	key    string
}

// RedisOption configures the RedisAssigner.
type RedisOption func(*RedisAssigner)

// WithCounterKey overrides the Redis key holding the counter.
func WithCounterKey(key string) RedisOption {
	return func(a *RedisAssigner) {
		if key != "" {
			a.key = key
		}
	}
}

// NewRedisAssigner constructs a Redis-backed position assigner.
func NewRedisAssigner(client *redis.Client, opts ...RedisOption) *RedisAssigner {
	a := &RedisAssigner{client: client, key: defaultCounterKey}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

func (a *RedisAssigner) NextPosition(ctx context.Context) (int, error) {
	pos, err := a.client.Incr(ctx, a.key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment queue position: %w", err)
	}
	return int(pos), nil
}

// Seed raises the counter to at least the given value. Used on startup so the
// sequence continues past positions already assigned in the store.
func (a *RedisAssigner) Seed(ctx context.Context, floor int) error {
	// SETNX covers the fresh-counter case; an existing higher counter wins.
	ok, err := a.client.SetNX(ctx, a.key, floor, 0).Result()
	if err != nil {
		return fmt.Errorf("seed queue position: %w", err)
	}
	if ok {
		return nil
	}
	current, err := a.client.Get(ctx, a.key).Int()
	if err != nil {
		return fmt.Errorf("read queue position: %w", err)
	}
	if current < floor {
		if err := a.client.Set(ctx, a.key, floor, 0).Err(); err != nil {
			return fmt.Errorf("raise queue position: %w", err)
		}
	}
	return nil
}
