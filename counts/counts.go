// Package counts aggregates per-status queue counts behind a short lived
// cache. Cached snapshots are not invalidated on writes; they expire after
// the configured TTL.
package counts

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-moderation/pkg/types"
)

const (
	// DefaultTTL bounds how long a count snapshot is served from cache.
	DefaultTTL = 30 * time.Second
	// DefaultPageSize is used to compute page counts when none is given.
	DefaultPageSize = 30

	keyPrefix = "Queue:Count:"
)

// Config wires the count service.
type Config struct {
	Counter types.StatusCounter
	Cache   types.CountCache
	TTL     time.Duration
	Logger  types.Logger
}

// Service returns cached queue counts.
type Service struct {
	counter types.StatusCounter
	cache   types.CountCache
	ttl     time.Duration
	logger  types.Logger
}

// NewService builds a count service. A nil cache disables caching.
func NewService(cfg Config) *Service {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Service{
		counter: cfg.Counter,
		cache:   cfg.Cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// Get returns the per-status counts for queue narrowed by where.
func (s *Service) Get(ctx context.Context, queue string, where map[string]any, pageSize int) (types.QueueCounts, error) {
	if s == nil || s.counter == nil {
		return types.QueueCounts{}, types.ErrMissingRepository
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	key := Key(queue, where)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.logger.Debug("queue counts served from cache", "key", key)
			return cached, nil
		}
	}

	grouped, err := s.counter.StatusCounts(ctx, queue, where)
	if err != nil {
		return types.QueueCounts{}, fmt.Errorf("count queue %s: %w", queue, err)
	}

	result := types.QueueCounts{
		Status:   make(map[types.Status]int, len(types.Statuses())),
		PageSize: pageSize,
	}
	for _, status := range types.Statuses() {
		result.Status[status] = grouped[status]
		result.Records += grouped[status]
	}
	result.Pages = int(math.Ceil(float64(result.Records) / float64(pageSize)))

	if s.cache != nil {
		s.cache.Set(ctx, key, result, s.ttl)
	}
	return result, nil
}

// Key builds the cache key for a queue and filter. Filter pairs are sorted
// so equal filters share a key.
func Key(queue string, where map[string]any) string {
	pairs := make(map[string]any, len(where)+1)
	for k, v := range where {
		pairs[k] = v
	}
	pairs["queueName"] = queue

	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(keyPrefix)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s:%v:", k, pairs[k])
	}
	b.WriteString(queue)
	return b.String()
}
