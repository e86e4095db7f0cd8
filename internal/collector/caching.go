package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/cache"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/timeseries"
)

// DefaultCacheTTL bounds how long a collected window is served from cache.
// Windows ending in the past do not change, but 5 minutes keeps memory low
// and covers the common retry-the-same-analysis pattern.
const DefaultCacheTTL = 5 * time.Minute

// CachingCollector wraps another Collector and memoizes whole collection
// batches keyed by targets and window, so repeated analyze calls over the
// same window skip the backend round trips.
type CachingCollector struct {
	inner  Collector
	cache  *cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachingCollector wraps inner with a TTL cache.
func NewCachingCollector(inner Collector, c *cache.Cache, ttl time.Duration, logger *zap.Logger) *CachingCollector {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingCollector{inner: inner, cache: c, ttl: ttl, logger: logger}
}

// Collect serves the batch from cache when an identical request was seen
// recently, otherwise delegates and stores the result. Errors are never
// cached.
func (c *CachingCollector) Collect(ctx context.Context, targets []Target, start, end time.Time, step time.Duration) (map[string]*timeseries.MetricSeries, error) {
	key := batchKey(targets, start, end, step)
	if v, ok := c.cache.Get(key); ok {
		c.logger.Debug("collector cache hit", zap.String("key", key))
		return v.(map[string]*timeseries.MetricSeries), nil
	}

	series, err := c.inner.Collect(ctx, targets, start, end, step)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, series, c.ttl)
	return series, nil
}

func batchKey(targets []Target, start, end time.Time, step time.Duration) string {
	key := fmt.Sprintf("collect:%d:%d:%d", start.Unix(), end.Unix(), int64(step.Seconds()))
	for _, t := range targets {
		key += "|" + t.Name + "=" + t.Query
	}
	return key
}
