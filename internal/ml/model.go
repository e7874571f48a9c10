package ml

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/couchcryptid/agromind-service/internal/domain"
)

// Model serves predictions from a loaded artifact.
type Model struct {
	artifact Artifact
}

// LoadModel loads and checks the artifact in dir.
func LoadModel(dir string) (*Model, error) {
	a, err := LoadArtifact(dir)
	if err != nil {
		return nil, fmt.Errorf("load model from %s: %w", dir, err)
	}
	m, err := NewModel(a)
	if err != nil {
		return nil, fmt.Errorf("load model from %s: %w", dir, err)
	}
	return m, nil
}

// NewModel checks that the artifact parts agree with each other and with the
// serving feature layout.
func NewModel(a Artifact) (*Model, error) {
	if a.Ensemble == nil || a.Scaler == nil || a.Encoder == nil {
		return nil, errors.New("incomplete artifact")
	}
	if err := a.Ensemble.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ensemble: %w", err)
	}
	if a.Ensemble.NClasses != a.Encoder.Len() {
		return nil, fmt.Errorf("ensemble has %d classes but label encoder has %d", a.Ensemble.NClasses, a.Encoder.Len())
	}
	if len(a.Scaler.Mean) != len(domain.FeatureNames) || len(a.Scaler.Scale) != len(domain.FeatureNames) {
		return nil, fmt.Errorf("scaler expects %d features, want %d", len(a.Scaler.Mean), len(domain.FeatureNames))
	}
	if len(a.Metadata.Features) > 0 && !slices.Equal(a.Metadata.Features, domain.FeatureNames) {
		return nil, fmt.Errorf("artifact features %v differ from %v", a.Metadata.Features, domain.FeatureNames)
	}
	if !slices.Equal(a.Metadata.SoilTypes, domain.SoilTypes) {
		return nil, fmt.Errorf("artifact soil types %v differ from %v", a.Metadata.SoilTypes, domain.SoilTypes)
	}
	return &Model{artifact: a}, nil
}

// Classify scales the features, runs the ensemble and ranks every crop.
func (m *Model) Classify(features domain.FeatureVector) (domain.Prediction, error) {
	if len(features) != len(domain.FeatureNames) {
		return domain.Prediction{}, fmt.Errorf("got %d features, want %d", len(features), len(domain.FeatureNames))
	}
	x, err := m.artifact.Scaler.TransformRow(features)
	if err != nil {
		return domain.Prediction{}, err
	}
	probs := m.artifact.Ensemble.PredictProba(x)

	ranking := make([]domain.CropScore, 0, len(probs))
	for k, p := range probs {
		crop, err := m.artifact.Encoder.Inverse(k)
		if err != nil {
			return domain.Prediction{}, err
		}
		ranking = append(ranking, domain.CropScore{Crop: crop, Probability: p})
	}
	slices.SortStableFunc(ranking, func(a, b domain.CropScore) int {
		return cmp.Compare(b.Probability, a.Probability)
	})
	if len(ranking) == 0 {
		return domain.Prediction{}, ErrNotFitted
	}
	return domain.Prediction{
		Crop:       ranking[0].Crop,
		Confidence: ranking[0].Probability,
		Ranking:    ranking,
	}, nil
}

// Classes lists the crops the model can recommend.
func (m *Model) Classes() []string {
	return slices.Clone(m.artifact.Encoder.Classes)
}

// Metadata returns the artifact's training metadata.
func (m *Model) Metadata() Metadata {
	return m.artifact.Metadata
}
