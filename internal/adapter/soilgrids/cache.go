package soilgrids

import (
	"context"

	"github.com/couchcryptid/agromind-service/internal/cache"
	"github.com/couchcryptid/agromind-service/internal/domain"
	"github.com/couchcryptid/agromind-service/internal/observability"
)

// CachedSource wraps a SoilSource with an in-memory LRU cache.
type CachedSource struct {
	inner   domain.SoilSource
	cache   *cache.LRU[string, domain.SoilReading]
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a soil source.
func NewCachedSource(inner domain.SoilSource, maxEntries int, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   cache.NewLRU[string, domain.SoilReading](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedSource) Soil(ctx context.Context, coord domain.Coordinate) (domain.SoilReading, error) {
	key := coord.Key()
	if reading, ok := c.cache.Get(key); ok {
		c.metrics.CacheLookups.WithLabelValues(source, "hit").Inc()
		return reading, nil
	}
	c.metrics.CacheLookups.WithLabelValues(source, "miss").Inc()

	reading, err := c.inner.Soil(ctx, coord)
	if err != nil {
		return reading, err
	}
	// Only cache readings with data so empty answers are retried.
	if reading.HasData() {
		c.cache.Put(key, reading)
	}
	return reading, nil
}
