// Package ml holds the pure-Go learners behind the crop classifier: CART trees,
// a random forest, multi-class gradient boosting, a soft-voting ensemble, the
// preprocessing they need and the artifact format they are stored in.
//
// Labels are always encoded integers in [0, nClasses). String labels go through
// a LabelEncoder first.
package ml

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrNotFitted is returned when predicting with an estimator that has no model.
var ErrNotFitted = errors.New("estimator is not fitted")

// Estimator is a probabilistic multi-class classifier.
type Estimator interface {
	Fit(ctx context.Context, X [][]float64, y []int, nClasses int) error
	// PredictProba returns one probability per class, summing to 1.
	PredictProba(x []float64) []float64
}

// Predict returns the most probable class for every row.
func Predict(e Estimator, X [][]float64) []int {
	out := make([]int, len(X))
	for i, x := range X {
		out[i] = argmax(e.PredictProba(x))
	}
	return out
}

func validateTrainingSet(X [][]float64, y []int, nClasses int) error {
	if len(X) == 0 {
		return errors.New("empty training set")
	}
	if len(X) != len(y) {
		return fmt.Errorf("X has %d rows but y has %d labels", len(X), len(y))
	}
	if nClasses < 1 {
		return fmt.Errorf("nClasses must be positive, got %d", nClasses)
	}
	p := len(X[0])
	if p == 0 {
		return errors.New("rows have no features")
	}
	for i, row := range X {
		if len(row) != p {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), p)
		}
	}
	for i, label := range y {
		if label < 0 || label >= nClasses {
			return fmt.Errorf("label %d at row %d outside [0, %d)", label, i, nClasses)
		}
	}
	return nil
}

func argmax(v []float64) int {
	if len(v) == 0 {
		return 0
	}
	return floats.MaxIdx(v)
}

func uniform(nClasses int) []float64 {
	out := make([]float64, nClasses)
	for i := range out {
		out[i] = 1 / float64(nClasses)
	}
	return out
}
