package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"assent/pkg/platform/sentinel"
)

const (
	// Redis key prefix for identity records
	identityKeyPrefix = "assent:identity:"
)

// RedisSlot is a Redis-backed Slot. This is the production-recommended
// backend when records must not live in client cookies, or when multiple
// instances share identity state.
type RedisSlot struct {
	client *redis.Client
}

// NewRedisSlot constructs a Redis-backed slot.
func NewRedisSlot(client *redis.Client) *RedisSlot {
	return &RedisSlot{client: client}
}

func (s *RedisSlot) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, identityKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired keys vanish in Redis, so absence covers both cases.
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get identity record: %w", err)
	}
	return value, nil
}

func (s *RedisSlot) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, identityKeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set identity record: %w", err)
	}
	return nil
}
