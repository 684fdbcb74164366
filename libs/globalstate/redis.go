package globalstate

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRegimeKey = "lighthouse:regime:60hz"

// RedisStore shares the 60 Hz regime flag across processes using a Redis
// set: one member per holder, keyed by object ID. The flag is single-60Hz
// whenever the set is non-empty.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore wraps an already-configured redis.Client. key overrides the
// default set key; pass "" to use defaultRegimeKey.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultRegimeKey
	}
	return &RedisStore{client: client, key: key}
}

func (r *RedisStore) IsSingle60Hz(ctx context.Context) (bool, error) {
	count, err := r.client.SCard(ctx, r.key).Result()
	if err != nil {
		return false, fmt.Errorf("scard %s: %w", r.key, err)
	}
	return count > 0, nil
}

func (r *RedisStore) Acquire60Hz(ctx context.Context, objectID string) error {
	if err := r.client.SAdd(ctx, r.key, objectID).Err(); err != nil {
		return fmt.Errorf("sadd %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisStore) Release60Hz(ctx context.Context, objectID string) error {
	if err := r.client.SRem(ctx, r.key, objectID).Err(); err != nil {
		return fmt.Errorf("srem %s: %w", r.key, err)
	}
	return nil
}
