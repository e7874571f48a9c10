package domain

import (
	"context"
	"fmt"
	"time"
)

// FeatureNames is the classifier's input order.
var FeatureNames = []string{"soil_type", "ph", "k", "p", "n", "temperature", "humidity"}

// FeatureVector is the model input in FeatureNames order.
type FeatureVector []float64

// BuildFeatures assembles the model input from a soil label and complete profiles.
func BuildFeatures(soilType string, soil SoilProfile, climate ClimateProfile) FeatureVector {
	return FeatureVector{
		float64(EncodeSoilType(soilType)),
		soil.PH,
		soil.Potassium,
		soil.Phosphorus,
		soil.Nitrogen,
		climate.Temperature,
		climate.Humidity,
	}
}

// CropScore is one crop and the ensemble's probability for it.
type CropScore struct {
	Crop        string  `json:"crop"`
	Probability float64 `json:"probability"`
}

// Prediction is the classifier's answer for one feature vector. Ranking is
// sorted by descending probability and starts with Crop.
type Prediction struct {
	Crop       string
	Confidence float64
	Ranking    []CropScore
}

// Classifier turns a feature vector into a crop prediction.
type Classifier interface {
	Classify(features FeatureVector) (Prediction, error)
}

// RecommendationRequest is the input of a recommendation. Month 0 means the
// current month.
type RecommendationRequest struct {
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Month int      `json:"month"`
}

// Coordinate validates the request and returns its coordinate.
func (r RecommendationRequest) Coordinate() (Coordinate, error) {
	if r.Lat == nil {
		return Coordinate{}, fmt.Errorf("%w: lat is required", ErrInvalidRequest)
	}
	if r.Lon == nil {
		return Coordinate{}, fmt.Errorf("%w: lon is required", ErrInvalidRequest)
	}
	if r.Month < 0 || r.Month > 12 {
		return Coordinate{}, fmt.Errorf("%w: month must be within [0, 12], got %d", ErrInvalidRequest, r.Month)
	}
	c := Coordinate{Lat: *r.Lat, Lon: *r.Lon}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// ResolveMonth maps month 0 to the current month of the package clock.
func ResolveMonth(month int) int {
	if month == 0 {
		return int(Now().Month())
	}
	return month
}

// Recommendation is the full answer for one coordinate and month.
type Recommendation struct {
	ID              string         `json:"id"`
	Location        string         `json:"location"`
	Latitude        float64        `json:"latitude"`
	Longitude       float64        `json:"longitude"`
	SoilType        string         `json:"soil_type"`
	TextureClass    string         `json:"texture_class"`
	RecommendedCrop string         `json:"recommended_crop"`
	Confidence      float64        `json:"confidence"`
	Alternatives    []CropScore    `json:"alternatives"`
	TargetMonth     int            `json:"target_month"`
	Soil            SoilProfile    `json:"soil"`
	Climate         ClimateProfile `json:"climate"`
	DefaultsUsed    []string       `json:"defaults_used"`
	CreatedAt       time.Time      `json:"created_at"`
}

// RecommendationStore persists recommendations and lists recent ones.
type RecommendationStore interface {
	Record(ctx context.Context, rec Recommendation) error
	Recent(ctx context.Context, limit int) ([]Recommendation, error)
}
