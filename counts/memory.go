package counts

import (
	"context"
	"time"

	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/patrickmn/go-cache"
)

// MemoryCache keeps count snapshots in process.
type MemoryCache struct {
	store *cache.Cache
}

var _ types.CountCache = (*MemoryCache)(nil)

// NewMemoryCache returns an in-process cache whose entries default to ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{store: cache.New(ttl, ttl*2)}
}

// Get implements types.CountCache.
func (c *MemoryCache) Get(_ context.Context, key string) (types.QueueCounts, bool) {
	cached, found := c.store.Get(key)
	if !found {
		return types.QueueCounts{}, false
	}
	counts, ok := cached.(types.QueueCounts)
	return counts, ok
}

// Set implements types.CountCache.
func (c *MemoryCache) Set(_ context.Context, key string, counts types.QueueCounts, ttl time.Duration) {
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	c.store.Set(key, counts, ttl)
}

// Flush drops every cached snapshot.
func (c *MemoryCache) Flush() {
	c.store.Flush()
}
