// Package recommend turns a coordinate and month into a crop recommendation by
// gathering soil and climate data, filling gaps with defaults and running the
// classifier.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/agromind-service/internal/domain"
	"github.com/couchcryptid/agromind-service/internal/observability"
)

// alternatives is how many runner-up crops a recommendation lists.
const alternatives = 3

// ErrNotReady is returned while no classifier is attached.
var ErrNotReady = errors.New("no model loaded")

// Recorder receives every recommendation the service produces.
type Recorder interface {
	Record(ctx context.Context, rec domain.Recommendation) error
}

type namedRecorder struct {
	name string
	Recorder
}

type classifierRef struct {
	domain.Classifier
}

// Service orchestrates a recommendation.
type Service struct {
	soil       domain.SoilSource
	climate    domain.ClimateSource
	geocoder   domain.Geocoder
	classifier atomic.Pointer[classifierRef]
	recorders  []namedRecorder
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Service. A nil geocoder disables the location check.
func New(soil domain.SoilSource, climate domain.ClimateSource, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		soil:     soil,
		climate:  climate,
		geocoder: geocoder,
		logger:   logger,
		metrics:  metrics,
	}
}

// AttachClassifier sets the model used for predictions. It is safe to call
// while requests are being served.
func (s *Service) AttachClassifier(c domain.Classifier) {
	s.classifier.Store(&classifierRef{c})
}

// AddRecorder registers a recorder under a name used in logs and metrics.
// Recorders must be added before the service starts handling requests.
func (s *Service) AddRecorder(name string, r Recorder) {
	s.recorders = append(s.recorders, namedRecorder{name: name, Recorder: r})
}

// CheckReadiness returns nil once a classifier is attached.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.classifier.Load() == nil {
		return ErrNotReady
	}
	return nil
}

// Recommend validates the request, gathers soil and climate for the
// coordinate and returns the classifier's recommendation. Upstream failures
// fall back to defaults; only validation, an unknown location, a missing
// model, a classifier error or cancellation fail the request.
func (s *Service) Recommend(ctx context.Context, req domain.RecommendationRequest) (domain.Recommendation, error) {
	start := time.Now()
	rec, err := s.recommend(ctx, req)
	s.metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
	s.metrics.Recommendations.WithLabelValues(outcome(err)).Inc()
	return rec, err
}

func (s *Service) recommend(ctx context.Context, req domain.RecommendationRequest) (domain.Recommendation, error) {
	coord, err := req.Coordinate()
	if err != nil {
		return domain.Recommendation{}, err
	}
	month := domain.ResolveMonth(req.Month)

	ref := s.classifier.Load()
	if ref == nil {
		return domain.Recommendation{}, ErrNotReady
	}

	location, err := s.locate(ctx, coord)
	if err != nil {
		return domain.Recommendation{}, err
	}

	soilReading, climateReading, err := s.gather(ctx, coord, month)
	if err != nil {
		return domain.Recommendation{}, err
	}

	soil := domain.CompleteSoil(soilReading)
	climate := domain.CompleteClimate(climateReading)
	climate.Month = month

	soilType := domain.ClassifySoilType(soil.Clay, soil.Sand, soil.Silt)
	texture := domain.TextureClass(soil.Clay, soil.Sand, soil.Silt)

	pred, err := ref.Classify(domain.BuildFeatures(soilType, soil, climate))
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("classify: %w", err)
	}

	defaults := make([]string, 0, len(soil.Defaulted)+len(climate.Defaulted))
	defaults = append(defaults, soil.Defaulted...)
	defaults = append(defaults, climate.Defaulted...)
	for _, field := range defaults {
		s.metrics.DefaultsApplied.WithLabelValues(field).Inc()
	}

	rec := domain.Recommendation{
		ID:              uuid.NewString(),
		Location:        location,
		Latitude:        coord.Lat,
		Longitude:       coord.Lon,
		SoilType:        soilType,
		TextureClass:    texture,
		RecommendedCrop: pred.Crop,
		Confidence:      pred.Confidence,
		Alternatives:    runnersUp(pred.Ranking),
		TargetMonth:     month,
		Soil:            soil,
		Climate:         climate,
		DefaultsUsed:    defaults,
		CreatedAt:       domain.Now(),
	}

	s.logger.Info("recommendation produced",
		"id", rec.ID,
		"lat", coord.Lat,
		"lon", coord.Lon,
		"month", month,
		"soil_type", soilType,
		"crop", pred.Crop,
		"confidence", pred.Confidence,
		"defaults", len(defaults),
	)
	s.record(ctx, rec)
	return rec, nil
}

// locate resolves the coordinate to a place label. Without a geocoder the
// coordinate itself is the label. Only a failing geocoder is an error; a
// coordinate with no place (open sea) gets the unknown-place label.
func (s *Service) locate(ctx context.Context, coord domain.Coordinate) (string, error) {
	if s.geocoder == nil {
		return fmt.Sprintf("%.4f, %.4f", coord.Lat, coord.Lon), nil
	}
	place, err := s.geocoder.ReverseGeocode(ctx, coord.Lat, coord.Lon)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		s.logger.Warn("reverse geocode failed", "lat", coord.Lat, "lon", coord.Lon, "error", err)
		return "", fmt.Errorf("%w: %v", domain.ErrUnknownLocation, err)
	}
	if !place.Known() {
		s.logger.Debug("no place for coordinate", "lat", coord.Lat, "lon", coord.Lon)
	}
	return place.Label(), nil
}

// gather fetches soil and climate concurrently. An upstream error leaves its
// reading empty so defaults apply; it does not cancel the other fetch.
func (s *Service) gather(ctx context.Context, coord domain.Coordinate, month int) (domain.SoilReading, domain.ClimateReading, error) {
	var (
		soil    domain.SoilReading
		climate domain.ClimateReading
		wg      sync.WaitGroup
	)
	wg.Go(func() {
		r, err := s.soil.Soil(ctx, coord)
		if err != nil {
			s.logUpstream("soil", coord, err)
			r = domain.SoilReading{}
		}
		r.SampledAt = sampled(r, coord)
		soil = r
	})
	wg.Go(func() {
		r, err := s.climate.Climate(ctx, coord, month)
		if err != nil {
			s.logUpstream("climate", coord, err)
			r = domain.ClimateReading{}
		}
		r.Month = month
		climate = r
	})
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return domain.SoilReading{}, domain.ClimateReading{}, err
	}
	return soil, climate, nil
}

func (s *Service) logUpstream(source string, coord domain.Coordinate, err error) {
	if errors.Is(err, domain.ErrNoData) {
		s.logger.Info("no upstream data, using defaults", "source", source, "lat", coord.Lat, "lon", coord.Lon)
		return
	}
	s.logger.Warn("upstream lookup failed, using defaults", "source", source, "lat", coord.Lat, "lon", coord.Lon, "error", err)
}

func (s *Service) record(ctx context.Context, rec domain.Recommendation) {
	for _, r := range s.recorders {
		if err := r.Record(ctx, rec); err != nil {
			s.metrics.RecorderErrors.WithLabelValues(r.name).Inc()
			s.logger.Error("record recommendation failed", "recorder", r.name, "id", rec.ID, "error", err)
		}
	}
}

func sampled(r domain.SoilReading, requested domain.Coordinate) domain.Coordinate {
	if r.HasData() && r.SampledAt != (domain.Coordinate{}) {
		return r.SampledAt
	}
	return requested
}

func runnersUp(ranking []domain.CropScore) []domain.CropScore {
	out := make([]domain.CropScore, 0, alternatives)
	for i := 1; i < len(ranking) && len(out) < alternatives; i++ {
		out = append(out, ranking[i])
	}
	return out
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, domain.ErrUnknownLocation):
		return "unknown_location"
	default:
		return "error"
	}
}
