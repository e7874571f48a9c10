package nominatim

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/agromind-service/internal/domain"
	"github.com/couchcryptid/agromind-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	calls int
	place domain.Place
	err   error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.Place, error) {
	m.calls++
	return m.place, m.err
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_Hit(t *testing.T) {
	inner := &countingGeocoder{place: domain.Place{City: "Ankara", Country: "Türkiye"}}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	p1, err := cached.ReverseGeocode(context.Background(), 39.93, 32.85)
	require.NoError(t, err)
	p2, err := cached.ReverseGeocode(context.Background(), 39.93, 32.85)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedGeocoder_EmptyPlaceNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.ReverseGeocode(context.Background(), 0, -30)
	require.NoError(t, err)
	_, err = cached.ReverseGeocode(context.Background(), 0, -30)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls, "empty places should not be cached")
}

func TestCachedGeocoder_ErrorNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("timeout")}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.ReverseGeocode(context.Background(), 1, 1)
	require.Error(t, err)
	_, err = cached.ReverseGeocode(context.Background(), 1, 1)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_Eviction(t *testing.T) {
	inner := &countingGeocoder{place: domain.Place{Country: "Türkiye"}}
	cached := NewCachedGeocoder(inner, 2, observability.NewMetricsForTesting())
	ctx := context.Background()

	for _, c := range [][2]float64{{1, 1}, {2, 2}, {3, 3}, {1, 1}} {
		_, err := cached.ReverseGeocode(ctx, c[0], c[1])
		require.NoError(t, err)
	}
	assert.Equal(t, 4, inner.calls, "the oldest entry should have been evicted")
}
