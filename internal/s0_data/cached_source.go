package s0_data

import (
	"context"
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/pkg/logger"
	"github.com/wonny/sectorrotation/pkg/redis"
)

// CachedSource serves series from Redis before falling back to the wrapped
// source. A disabled cache passes every call through.
type CachedSource struct {
	source SeriesSource
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedSource wraps source with a Redis read-through cache
func NewCachedSource(source SeriesSource, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	return &CachedSource{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithField("module", "series_cache"),
	}
}

// FetchSeries implements SeriesSource
func (c *CachedSource) FetchSeries(ctx context.Context, ticker string, from, to time.Time) (*contracts.Series, error) {
	key := redis.SeriesKey(ticker, from.Format(contracts.DateLayout), to.Format(contracts.DateLayout))

	var cached []contracts.Observation
	hit, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
	}
	if hit {
		series, err := contracts.NewSeries(ticker, cached)
		if err == nil {
			c.logger.WithField("ticker", ticker).Debug("Series cache hit")
			return series, nil
		}
		c.logger.WithError(err).WithField("key", key).Warn("Discarding invalid cached series")
	}

	series, err := c.source.FetchSeries(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, series.Observations(), c.ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
	return series, nil
}

// Invalidate drops every cached range of ticker so the next fetch reaches
// the wrapped source
func (c *CachedSource) Invalidate(ctx context.Context, ticker string) error {
	n, err := c.cache.DeletePrefix(ctx, redis.SeriesPrefix(ticker))
	if err != nil {
		return err
	}
	if n > 0 {
		c.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"keys":   n,
		}).Debug("Series cache invalidated")
	}
	return nil
}
