package ml

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ForestParams configures a random forest.
type ForestParams struct {
	Trees           int   `json:"trees" mapstructure:"trees"`
	MaxDepth        int   `json:"max_depth" mapstructure:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split" mapstructure:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf" mapstructure:"min_samples_leaf"`
	MaxFeatures     int   `json:"max_features" mapstructure:"max_features"` // 0 = sqrt(features)
	Balanced        bool  `json:"balanced" mapstructure:"balanced"`         // reweight classes within each bootstrap sample
	Seed            int64 `json:"seed" mapstructure:"seed"`
	Workers         int   `json:"-" mapstructure:"workers"` // 0 = GOMAXPROCS
}

// DefaultForestParams are the production crop-model settings.
func DefaultForestParams() ForestParams {
	return ForestParams{
		Trees:           150,
		MaxDepth:        12,
		MinSamplesSplit: 20,
		MinSamplesLeaf:  10,
		Balanced:        true,
		Seed:            42,
	}
}

// RandomForest averages the class distributions of bootstrapped CART trees.
type RandomForest struct {
	Params   ForestParams    `json:"params"`
	NClasses int             `json:"n_classes"`
	Trees    []*DecisionTree `json:"trees"`
}

// NewRandomForest returns an unfitted forest.
func NewRandomForest(p ForestParams) *RandomForest {
	if p.Trees < 1 {
		p.Trees = 1
	}
	return &RandomForest{Params: p}
}

// Fit grows every tree on its own bootstrap sample, in parallel.
func (rf *RandomForest) Fit(ctx context.Context, X [][]float64, y []int, nClasses int) error {
	if err := validateTrainingSet(X, y, nClasses); err != nil {
		return fmt.Errorf("random forest: %w", err)
	}
	maxFeatures := rf.Params.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(len(X[0])))))
	}
	workers := rf.Params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*DecisionTree, rf.Params.Trees)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seed := rf.Params.Seed + int64(i)
			bx, by, bw := bootstrap(X, y, nClasses, rf.Params.Balanced, rand.New(rand.NewSource(seed)))

			tree := NewDecisionTree(TreeParams{
				MaxDepth:        rf.Params.MaxDepth,
				MinSamplesSplit: rf.Params.MinSamplesSplit,
				MinSamplesLeaf:  rf.Params.MinSamplesLeaf,
				MaxFeatures:     maxFeatures,
				Seed:            seed,
			})
			if err := tree.FitWeighted(bx, by, bw, nClasses); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("random forest: %w", err)
	}

	rf.NClasses = nClasses
	rf.Trees = trees
	return nil
}

// PredictProba averages the tree distributions.
func (rf *RandomForest) PredictProba(x []float64) []float64 {
	if len(rf.Trees) == 0 {
		return uniform(max(rf.NClasses, 1))
	}
	out := make([]float64, rf.NClasses)
	for _, t := range rf.Trees {
		for k, p := range t.PredictProba(x) {
			out[k] += p
		}
	}
	for k := range out {
		out[k] /= float64(len(rf.Trees))
	}
	return out
}

// bootstrap draws len(X) rows with replacement. With balanced set, each row is
// weighted n / (classesPresent * count[class]) over the drawn sample.
func bootstrap(X [][]float64, y []int, nClasses int, balanced bool, rng *rand.Rand) ([][]float64, []int, []float64) {
	n := len(X)
	bx := make([][]float64, n)
	by := make([]int, n)
	counts := make([]int, nClasses)
	for i := range n {
		j := rng.Intn(n)
		bx[i], by[i] = X[j], y[j]
		counts[y[j]]++
	}

	classWeight := make([]float64, nClasses)
	present := 0
	for _, c := range counts {
		if c > 0 {
			present++
		}
	}
	for k, c := range counts {
		classWeight[k] = 1
		if balanced && c > 0 {
			classWeight[k] = float64(n) / float64(present*c)
		}
	}

	bw := make([]float64, n)
	for i, label := range by {
		bw[i] = classWeight[label]
	}
	return bx, by, bw
}
