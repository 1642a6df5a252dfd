package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production counter backend. Fixed-window counters and
// block markers live in Redis so every instance behind a load balancer sees
// the same state.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Incr bumps the window counter and returns the new count. The expiry is set
// on first increment so the window starts at the first attempt.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// SetBlock marks the key as blocked for ttl. The key existence is what
// matters; Redis expiry lifts the block.
func (s *RedisStore) SetBlock(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, key, "1", ttl).Err()
}

func (s *RedisStore) IsBlocked(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
