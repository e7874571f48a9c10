package ml

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"golang.org/x/sync/errgroup"
)

// BoostParams configures gradient boosting.
type BoostParams struct {
	Rounds         int     `json:"rounds" mapstructure:"rounds"`
	MaxDepth       int     `json:"max_depth" mapstructure:"max_depth"`
	LearningRate   float64 `json:"learning_rate" mapstructure:"learning_rate"`
	Subsample      float64 `json:"subsample" mapstructure:"subsample"`
	ColSample      float64 `json:"colsample" mapstructure:"colsample"`
	Lambda         float64 `json:"lambda" mapstructure:"lambda"`
	MinChildWeight float64 `json:"min_child_weight" mapstructure:"min_child_weight"`
	Seed           int64   `json:"seed" mapstructure:"seed"`
}

// DefaultBoostParams are the production crop-model settings.
func DefaultBoostParams() BoostParams {
	return BoostParams{
		Rounds:         150,
		MaxDepth:       6,
		LearningRate:   0.1,
		Subsample:      0.8,
		ColSample:      0.8,
		Lambda:         1,
		MinChildWeight: 1,
		Seed:           42,
	}
}

// RegressionTree is one boosting step for one class. Leaf values are already
// scaled by the learning rate.
type RegressionTree struct {
	Nodes []Node `json:"nodes"`
}

func (t *RegressionTree) predict(x []float64) float64 {
	return walk(t.Nodes, x).Value[0]
}

// GradientBoosting is a multi-class softmax booster fitted with second-order
// leaf weights. Trees[r][k] is round r's tree for class k.
type GradientBoosting struct {
	Params   BoostParams         `json:"params"`
	NClasses int                 `json:"n_classes"`
	Trees    [][]*RegressionTree `json:"trees"`
}

// NewGradientBoosting returns an unfitted booster.
func NewGradientBoosting(p BoostParams) *GradientBoosting {
	if p.Rounds < 1 {
		p.Rounds = 1
	}
	if p.LearningRate <= 0 {
		p.LearningRate = 0.1
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		p.Subsample = 1
	}
	if p.ColSample <= 0 || p.ColSample > 1 {
		p.ColSample = 1
	}
	return &GradientBoosting{Params: p}
}

// Fit runs Params.Rounds boosting rounds. The class trees of a round are
// grown in parallel from the same gradients.
func (gb *GradientBoosting) Fit(ctx context.Context, X [][]float64, y []int, nClasses int) error {
	if err := validateTrainingSet(X, y, nClasses); err != nil {
		return fmt.Errorf("gradient boosting: %w", err)
	}
	n, p := len(X), len(X[0])
	rng := rand.New(rand.NewSource(gb.Params.Seed))
	nCols := max(1, int(math.Round(gb.Params.ColSample*float64(p))))

	margins := make([][]float64, n)
	for i := range margins {
		margins[i] = make([]float64, nClasses)
	}
	trees := make([][]*RegressionTree, 0, gb.Params.Rounds)

	for range gb.Params.Rounds {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("gradient boosting: %w", err)
		}
		probs := make([][]float64, n)
		for i := range margins {
			probs[i] = softmax(margins[i])
		}

		rows := subsampleRows(n, gb.Params.Subsample, rng)
		cols := make([][]int, nClasses)
		for k := range cols {
			cols[k] = rng.Perm(p)[:nCols]
			slices.Sort(cols[k])
		}

		round := make([]*RegressionTree, nClasses)
		g, gctx := errgroup.WithContext(ctx)
		for k := range nClasses {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				grad := make([]float64, n)
				hess := make([]float64, n)
				for i := range n {
					pk := probs[i][k]
					target := 0.0
					if y[i] == k {
						target = 1
					}
					grad[i] = pk - target
					hess[i] = math.Max(pk*(1-pk), 1e-16)
				}
				b := &regBuilder{X: X, grad: grad, hess: hess, cols: cols[k], params: gb.Params}
				b.build(rows, 0)
				round[k] = &RegressionTree{Nodes: b.nodes}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("gradient boosting: %w", err)
		}

		for i := range margins {
			for k, t := range round {
				margins[i][k] += t.predict(X[i])
			}
		}
		trees = append(trees, round)
	}

	gb.NClasses = nClasses
	gb.Trees = trees
	return nil
}

// PredictProba is the softmax of the summed tree outputs.
func (gb *GradientBoosting) PredictProba(x []float64) []float64 {
	if len(gb.Trees) == 0 {
		return uniform(max(gb.NClasses, 1))
	}
	margin := make([]float64, gb.NClasses)
	for _, round := range gb.Trees {
		for k, t := range round {
			margin[k] += t.predict(x)
		}
	}
	return softmax(margin)
}

func softmax(margin []float64) []float64 {
	out := make([]float64, len(margin))
	top := slices.Max(margin)
	total := 0.0
	for k, m := range margin {
		out[k] = math.Exp(m - top)
		total += out[k]
	}
	for k := range out {
		out[k] /= total
	}
	return out
}

func subsampleRows(n int, ratio float64, rng *rand.Rand) []int {
	rows := make([]int, 0, n)
	for i := range n {
		if ratio >= 1 || rng.Float64() < ratio {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, rng.Intn(n))
	}
	return rows
}

type regBuilder struct {
	X      [][]float64
	grad   []float64
	hess   []float64
	cols   []int
	params BoostParams
	nodes  []Node
}

func (b *regBuilder) build(idx []int, depth int) int {
	var G, H float64
	for _, i := range idx {
		G += b.grad[i]
		H += b.hess[i]
	}
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1})
	leaf := []float64{-G / (H + b.params.Lambda) * b.params.LearningRate}

	if (b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) || len(idx) < 2 {
		b.nodes[id].Value = leaf
		return id
	}
	feature, threshold, ok := b.bestSplit(idx, G, H)
	if !ok {
		b.nodes[id].Value = leaf
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return id
}

// bestSplit maximizes the structure-score gain
// 1/2 * (GL²/(HL+λ) + GR²/(HR+λ) - G²/(H+λ)).
func (b *regBuilder) bestSplit(idx []int, G, H float64) (int, float64, bool) {
	lambda := b.params.Lambda
	parent := G * G / (H + lambda)
	bestGain, bestFeature, bestThreshold := 0.0, -1, 0.0

	sorted := slices.Clone(idx)
	for _, f := range b.cols {
		slices.SortFunc(sorted, func(a, c int) int {
			switch {
			case b.X[a][f] < b.X[c][f]:
				return -1
			case b.X[a][f] > b.X[c][f]:
				return 1
			}
			return 0
		})
		var GL, HL float64
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			GL += b.grad[i]
			HL += b.hess[i]
			v, next := b.X[i][f], b.X[sorted[k+1]][f]
			if v == next {
				continue
			}
			GR, HR := G-GL, H-HL
			if HL < b.params.MinChildWeight || HR < b.params.MinChildWeight {
				continue
			}
			gain := 0.5 * (GL*GL/(HL+lambda) + GR*GR/(HR+lambda) - parent)
			if gain > bestGain+1e-12 {
				bestGain, bestFeature, bestThreshold = gain, f, (v+next)/2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}
