package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Member kinds as stored in the artifact.
const (
	KindDecisionTree     = "decision_tree"
	KindRandomForest     = "random_forest"
	KindGradientBoosting = "gradient_boosting"
)

// Member is one named estimator of a voting ensemble. Exactly one of the
// estimator fields is set, matching Kind.
type Member struct {
	Name     string            `json:"name"`
	Kind     string            `json:"kind"`
	Weight   float64           `json:"weight"`
	Tree     *DecisionTree     `json:"decision_tree,omitempty"`
	Forest   *RandomForest     `json:"random_forest,omitempty"`
	Boosting *GradientBoosting `json:"gradient_boosting,omitempty"`
}

// NewMember wraps an estimator. A non-positive weight counts as 1.
func NewMember(name string, e Estimator, weight float64) (Member, error) {
	if weight <= 0 {
		weight = 1
	}
	m := Member{Name: name, Weight: weight}
	switch est := e.(type) {
	case *DecisionTree:
		m.Kind, m.Tree = KindDecisionTree, est
	case *RandomForest:
		m.Kind, m.Forest = KindRandomForest, est
	case *GradientBoosting:
		m.Kind, m.Boosting = KindGradientBoosting, est
	default:
		return Member{}, fmt.Errorf("member %q: unsupported estimator %T", name, e)
	}
	return m, nil
}

// Estimator returns the wrapped estimator.
func (m Member) Estimator() (Estimator, error) {
	switch {
	case m.Kind == KindDecisionTree && m.Tree != nil:
		return m.Tree, nil
	case m.Kind == KindRandomForest && m.Forest != nil:
		return m.Forest, nil
	case m.Kind == KindGradientBoosting && m.Boosting != nil:
		return m.Boosting, nil
	}
	return nil, fmt.Errorf("member %q: no estimator of kind %q", m.Name, m.Kind)
}

// VotingClassifier averages member probabilities, weighted ("soft" voting).
type VotingClassifier struct {
	Members  []Member `json:"members"`
	NClasses int      `json:"n_classes"`
}

// NewVotingClassifier returns an unfitted ensemble.
func NewVotingClassifier(members ...Member) *VotingClassifier {
	return &VotingClassifier{Members: members}
}

// Fit fits every member on the same data, one after another.
func (v *VotingClassifier) Fit(ctx context.Context, X [][]float64, y []int, nClasses int) error {
	if len(v.Members) == 0 {
		return errors.New("voting classifier: no members")
	}
	for _, m := range v.Members {
		e, err := m.Estimator()
		if err != nil {
			return fmt.Errorf("voting classifier: %w", err)
		}
		if err := e.Fit(ctx, X, y, nClasses); err != nil {
			return fmt.Errorf("voting classifier: member %q: %w", m.Name, err)
		}
	}
	v.NClasses = nClasses
	return nil
}

// PredictProba is the weighted mean of member probabilities.
func (v *VotingClassifier) PredictProba(x []float64) []float64 {
	out := make([]float64, v.NClasses)
	total := 0.0
	for _, m := range v.Members {
		e, err := m.Estimator()
		if err != nil {
			continue
		}
		for k, p := range e.PredictProba(x) {
			if k < len(out) {
				out[k] += m.Weight * p
			}
		}
		total += m.Weight
	}
	if total == 0 {
		return uniform(max(v.NClasses, 1))
	}
	for k := range out {
		out[k] /= total
	}
	return out
}

// Validate checks a decoded ensemble before it is used for inference.
func (v *VotingClassifier) Validate() error {
	if len(v.Members) == 0 {
		return errors.New("ensemble has no members")
	}
	if v.NClasses < 1 {
		return fmt.Errorf("ensemble has %d classes", v.NClasses)
	}
	for _, m := range v.Members {
		if _, err := m.Estimator(); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalJSON decodes an ensemble and validates it.
func (v *VotingClassifier) UnmarshalJSON(data []byte) error {
	type raw VotingClassifier
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*v = VotingClassifier(r)
	return v.Validate()
}
