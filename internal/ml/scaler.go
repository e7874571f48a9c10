package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centres each feature on its mean and divides by its
// population standard deviation.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitStandardScaler learns column statistics from X.
func FitStandardScaler(X [][]float64) (*StandardScaler, error) {
	if len(X) == 0 || len(X[0]) == 0 {
		return nil, errors.New("scaler: empty input")
	}
	p := len(X[0])
	s := &StandardScaler{Mean: make([]float64, p), Scale: make([]float64, p)}
	col := make([]float64, len(X))
	for j := range p {
		for i, row := range X {
			if len(row) != p {
				return nil, fmt.Errorf("scaler: row %d has %d features, want %d", i, len(row), p)
			}
			col[i] = row[j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		s.Scale[j] = math.Sqrt(variance)
		if s.Scale[j] == 0 || math.IsNaN(s.Scale[j]) {
			s.Scale[j] = 1
		}
	}
	return s, nil
}

// TransformRow scales one row into a new slice.
func (s *StandardScaler) TransformRow(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler: got %d features, want %d", len(x), len(s.Mean))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// Transform scales every row of X into a new matrix.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}
