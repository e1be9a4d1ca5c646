package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "market-comb/moderators/"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ModeratorCache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, source string) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+source).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read moderators of %s: %w", source, err)
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, false, fmt.Errorf("failed to decode moderators of %s: %w", source, err)
	}
	return names, true, nil
}

func (c *RedisCache) Set(ctx context.Context, source string, names []string) error {
	raw, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to encode moderators of %s: %w", source, err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+source, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store moderators of %s: %w", source, err)
	}
	return nil
}
