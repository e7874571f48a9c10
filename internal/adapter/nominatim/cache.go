package nominatim

import (
	"context"
	"fmt"

	"github.com/couchcryptid/agromind-service/internal/cache"
	"github.com/couchcryptid/agromind-service/internal/domain"
	"github.com/couchcryptid/agromind-service/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *cache.LRU[string, domain.Place]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   cache.NewLRU[string, domain.Place](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Place, error) {
	key := fmt.Sprintf("rev:%.4f,%.4f", lat, lon)
	if place, ok := c.cache.Get(key); ok {
		c.metrics.CacheLookups.WithLabelValues(source, "hit").Inc()
		return place, nil
	}
	c.metrics.CacheLookups.WithLabelValues(source, "miss").Inc()

	place, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return place, err
	}
	// Only cache known places so transient "not found" responses can be retried.
	if place.Known() {
		c.cache.Put(key, place)
	}
	return place, nil
}
