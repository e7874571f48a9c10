package soilgrids

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/couchcryptid/agromind-service/internal/domain"
)

// NeighbourSearch wraps a SoilSource and, when a point has no data, queries
// rings of neighbouring points until one has.
type NeighbourSearch struct {
	inner  domain.SoilSource
	radius float64
	step   float64
	logger *slog.Logger
}

// NewNeighbourSearch searches rings at step, 2*step, ... up to radius degrees.
// A zero radius disables the search.
func NewNeighbourSearch(inner domain.SoilSource, radius, step float64, logger *slog.Logger) *NeighbourSearch {
	return &NeighbourSearch{inner: inner, radius: radius, step: step, logger: logger}
}

// Soil returns the reading at c or at the first neighbour with data. Only
// domain.ErrNoData moves the search on; any other error stops it.
func (s *NeighbourSearch) Soil(ctx context.Context, c domain.Coordinate) (domain.SoilReading, error) {
	reading, err := s.inner.Soil(ctx, c)
	if err == nil && reading.HasData() {
		return reading, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNoData) {
		return domain.SoilReading{SampledAt: c}, err
	}

	for _, p := range Neighbours(c, s.radius, s.step) {
		if p.Validate() != nil {
			continue
		}
		reading, err := s.inner.Soil(ctx, p)
		switch {
		case err == nil && reading.HasData():
			s.logger.Info("soil data found at neighbouring point",
				"lat", c.Lat, "lon", c.Lon, "sampled_lat", p.Lat, "sampled_lon", p.Lon)
			return reading, nil
		case err != nil && !errors.Is(err, domain.ErrNoData):
			return domain.SoilReading{SampledAt: c}, err
		}
	}
	return domain.SoilReading{SampledAt: c}, domain.ErrNoData
}

// Neighbours lists the candidate points around c, nearest ring first. Each ring
// holds the four axis and four diagonal offsets.
func Neighbours(c domain.Coordinate, radius, step float64) []domain.Coordinate {
	if radius <= 0 || step <= 0 {
		return nil
	}
	rings := int(math.Round(radius / step))
	points := make([]domain.Coordinate, 0, rings*8)
	for i := 1; i <= rings; i++ {
		r := step * float64(i)
		offsets := [8][2]float64{
			{r, 0}, {-r, 0}, {0, r}, {0, -r},
			{r, r}, {-r, -r}, {r, -r}, {-r, r},
		}
		for _, o := range offsets {
			points = append(points, c.Offset(o[0], o[1]))
		}
	}
	return points
}
