package cache

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type MemoryCache struct {
	data *expirable.LRU[string, []string]
}

var _ ModeratorCache = (*MemoryCache)(nil)

func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		data: expirable.NewLRU[string, []string](capacity, nil, ttl),
	}
}

func (c *MemoryCache) Get(ctx context.Context, source string) ([]string, bool, error) {
	names, ok := c.data.Get(source)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(names), true, nil
}

func (c *MemoryCache) Set(ctx context.Context, source string, names []string) error {
	c.data.Add(source, slices.Clone(names))
	return nil
}
