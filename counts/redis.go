package counts

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-moderation/pkg/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisCache shares count snapshots between processes.
type RedisCache struct {
	client redis.Cmdable
	prefix string
	logger types.Logger
}

var _ types.CountCache = (*RedisCache)(nil)

// RedisOption customizes a RedisCache.
type RedisOption func(*RedisCache)

// WithRedisPrefix namespaces cache keys.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// WithRedisLogger reports cache failures. Failures never reach callers; a
// broken cache degrades to a miss.
func WithRedisLogger(logger types.Logger) RedisOption {
	return func(c *RedisCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewRedisCache wraps a go-redis client.
func NewRedisCache(client redis.Cmdable, opts ...RedisOption) *RedisCache {
	c := &RedisCache{client: client, logger: types.NopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get implements types.CountCache.
func (c *RedisCache) Get(ctx context.Context, key string) (types.QueueCounts, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error("redis count cache get failed", err, "key", key)
		}
		return types.QueueCounts{}, false
	}
	var counts types.QueueCounts
	if err := json.Unmarshal(raw, &counts); err != nil {
		c.logger.Error("redis count cache decode failed", err, "key", key)
		return types.QueueCounts{}, false
	}
	return counts, true
}

// Set implements types.CountCache.
func (c *RedisCache) Set(ctx context.Context, key string, counts types.QueueCounts, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(counts)
	if err != nil {
		c.logger.Error("redis count cache encode failed", err, "key", key)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		c.logger.Error("redis count cache set failed", err, "key", key)
	}
}
