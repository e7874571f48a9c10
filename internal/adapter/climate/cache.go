package climate

import (
	"context"
	"strconv"

	"github.com/couchcryptid/agromind-service/internal/cache"
	"github.com/couchcryptid/agromind-service/internal/domain"
	"github.com/couchcryptid/agromind-service/internal/observability"
)

// CachedSource wraps a ClimateSource with an in-memory LRU cache.
type CachedSource struct {
	inner   domain.ClimateSource
	cache   *cache.LRU[string, domain.ClimateReading]
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a climate source.
func NewCachedSource(inner domain.ClimateSource, maxEntries int, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   cache.NewLRU[string, domain.ClimateReading](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedSource) Climate(ctx context.Context, coord domain.Coordinate, month int) (domain.ClimateReading, error) {
	key := coord.Key() + "|" + strconv.Itoa(month)
	if reading, ok := c.cache.Get(key); ok {
		c.metrics.CacheLookups.WithLabelValues(source, "hit").Inc()
		return reading, nil
	}
	c.metrics.CacheLookups.WithLabelValues(source, "miss").Inc()

	reading, err := c.inner.Climate(ctx, coord, month)
	if err != nil {
		return reading, err
	}
	if reading.HasData() {
		c.cache.Put(key, reading)
	}
	return reading, nil
}
