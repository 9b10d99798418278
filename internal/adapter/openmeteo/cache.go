package openmeteo

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/couchcryptid/ferry-risk/internal/domain"
	"github.com/couchcryptid/ferry-risk/internal/observability"
)

// CachedForecaster wraps a Forecaster with a TTL cache keyed by coordinates
// rounded to two decimals. Only successful forecasts are stored.
type CachedForecaster struct {
	inner   domain.Forecaster
	cache   domain.Cache
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedForecaster creates a cache decorator around a forecaster.
func NewCachedForecaster(inner domain.Forecaster, cache domain.Cache, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *CachedForecaster {
	return &CachedForecaster{
		inner:   inner,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

// Forecast serves from cache when a fresh entry exists for the rounded
// coordinate, otherwise delegates and stores the result. Cache failures
// degrade to a direct lookup.
func (c *CachedForecaster) Forecast(ctx context.Context, lat, lon float64) (domain.Observation, error) {
	key := domain.ForecastCacheKey(lat, lon)

	data, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.ForecastCache.WithLabelValues("error").Inc()
		c.logger.Warn("forecast cache read failed", "key", key, "error", err)
	case ok:
		var obs domain.Observation
		if err := json.Unmarshal(data, &obs); err == nil {
			c.metrics.ForecastCache.WithLabelValues("hit").Inc()
			return obs, nil
		}
		c.metrics.ForecastCache.WithLabelValues("error").Inc()
		c.logger.Warn("discarding corrupt forecast cache entry", "key", key)
	default:
		c.metrics.ForecastCache.WithLabelValues("miss").Inc()
	}

	obs, err := c.inner.Forecast(ctx, lat, lon)
	if err != nil {
		return domain.Observation{}, err
	}

	if data, err := json.Marshal(obs); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("forecast cache write failed", "key", key, "error", err)
		}
	}
	return obs, nil
}
