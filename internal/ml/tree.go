package ml

import (
	"context"
	"fmt"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// TreeParams configures a classification tree.
type TreeParams struct {
	MaxDepth        int   `json:"max_depth"` // 0 = unlimited
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	MaxFeatures     int   `json:"max_features"` // 0 = all
	Seed            int64 `json:"seed"`
}

// DefaultTreeParams mirrors a fully grown CART tree.
func DefaultTreeParams() TreeParams {
	return TreeParams{MinSamplesSplit: 2, MinSamplesLeaf: 1, Seed: 42}
}

// Node is one entry of a flattened tree. Leaves have Left == -1 and carry
// Value; internal nodes send x[Feature] <= Threshold to Left.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Value     []float64 `json:"v,omitempty"`
}

func (n Node) isLeaf() bool { return n.Left < 0 }

// walk returns the leaf reached by x.
func walk(nodes []Node, x []float64) Node {
	n := nodes[0]
	for !n.isLeaf() {
		if x[n.Feature] <= n.Threshold {
			n = nodes[n.Left]
		} else {
			n = nodes[n.Right]
		}
	}
	return n
}

// DecisionTree is a CART classifier using weighted Gini impurity.
type DecisionTree struct {
	Params   TreeParams `json:"params"`
	NClasses int        `json:"n_classes"`
	Nodes    []Node     `json:"nodes"`
}

// NewDecisionTree returns an unfitted tree.
func NewDecisionTree(p TreeParams) *DecisionTree {
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	if p.MinSamplesLeaf < 1 {
		p.MinSamplesLeaf = 1
	}
	return &DecisionTree{Params: p}
}

// Fit grows the tree with unit sample weights.
func (t *DecisionTree) Fit(ctx context.Context, X [][]float64, y []int, nClasses int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.FitWeighted(X, y, nil, nClasses)
}

// FitWeighted grows the tree. A nil w means every sample weighs 1.
func (t *DecisionTree) FitWeighted(X [][]float64, y []int, w []float64, nClasses int) error {
	if err := validateTrainingSet(X, y, nClasses); err != nil {
		return fmt.Errorf("decision tree: %w", err)
	}
	if w == nil {
		w = make([]float64, len(y))
		for i := range w {
			w[i] = 1
		}
	} else if len(w) != len(y) {
		return fmt.Errorf("decision tree: %d weights for %d samples", len(w), len(y))
	}

	b := &treeBuilder{
		X:        X,
		y:        y,
		w:        w,
		nClasses: nClasses,
		params:   t.Params,
		rng:      rand.New(rand.NewSource(t.Params.Seed)),
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	b.build(idx, 0)

	t.NClasses = nClasses
	t.Nodes = b.nodes
	return nil
}

// PredictProba returns the class distribution of the leaf x falls into.
func (t *DecisionTree) PredictProba(x []float64) []float64 {
	if len(t.Nodes) == 0 {
		return uniform(max(t.NClasses, 1))
	}
	return slices.Clone(walk(t.Nodes, x).Value)
}

// Depth is the length of the longest root-to-leaf path.
func (t *DecisionTree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var depth func(i int) int
	depth = func(i int) int {
		n := t.Nodes[i]
		if n.isLeaf() {
			return 0
		}
		return 1 + max(depth(n.Left), depth(n.Right))
	}
	return depth(0)
}

type treeBuilder struct {
	X        [][]float64
	y        []int
	w        []float64
	nClasses int
	params   TreeParams
	rng      *rand.Rand
	nodes    []Node
}

type split struct {
	feature   int
	threshold float64
	impurity  float64
}

func (b *treeBuilder) build(idx []int, depth int) int {
	dist := b.distribution(idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1})

	if b.shouldStop(idx, depth, dist) {
		b.nodes[id].Value = normalize(dist)
		return id
	}
	s, ok := b.bestSplit(idx, dist)
	if !ok {
		b.nodes[id].Value = normalize(dist)
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id] = Node{Feature: s.feature, Threshold: s.threshold, Left: l, Right: r}
	return id
}

func (b *treeBuilder) shouldStop(idx []int, depth int, dist []float64) bool {
	if b.params.MaxDepth > 0 && depth >= b.params.MaxDepth {
		return true
	}
	if len(idx) < b.params.MinSamplesSplit || len(idx) < 2*b.params.MinSamplesLeaf {
		return true
	}
	nonZero := 0
	for _, v := range dist {
		if v > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func (b *treeBuilder) distribution(idx []int) []float64 {
	dist := make([]float64, b.nClasses)
	for _, i := range idx {
		dist[b.y[i]] += b.w[i]
	}
	return dist
}

func (b *treeBuilder) bestSplit(idx []int, parent []float64) (split, bool) {
	total := floats.Sum(parent)
	best := split{impurity: gini(parent, total)}
	found := false

	sorted := slices.Clone(idx)
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)
	minLeaf := b.params.MinSamplesLeaf

	// Features beyond MaxFeatures are only inspected while no valid split has
	// been found.
	features, budget := candidateFeatures(len(b.X[0]), b.params.MaxFeatures, b.rng)
	for n, f := range features {
		if n >= budget && found {
			break
		}
		slices.SortFunc(sorted, func(a, c int) int {
			switch {
			case b.X[a][f] < b.X[c][f]:
				return -1
			case b.X[a][f] > b.X[c][f]:
				return 1
			}
			return 0
		})
		clear(left)
		copy(right, parent)
		wl := 0.0

		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			left[b.y[i]] += b.w[i]
			right[b.y[i]] -= b.w[i]
			wl += b.w[i]

			v, next := b.X[i][f], b.X[sorted[k+1]][f]
			if v == next {
				continue
			}
			nl := k + 1
			if nl < minLeaf || len(sorted)-nl < minLeaf {
				continue
			}
			wr := total - wl
			impurity := (wl*gini(left, wl) + wr*gini(right, wr)) / total
			if impurity < best.impurity-1e-12 {
				best = split{feature: f, threshold: (v + next) / 2, impurity: impurity}
				found = true
			}
		}
	}
	return best, found
}

// candidateFeatures returns the features in search order and how many of them
// to inspect. With a MaxFeatures budget the order is a random permutation.
func candidateFeatures(p, maxFeatures int, rng *rand.Rand) ([]int, int) {
	if maxFeatures <= 0 || maxFeatures >= p {
		all := make([]int, p)
		for i := range all {
			all[i] = i
		}
		return all, p
	}
	return rng.Perm(p), maxFeatures
}

func gini(dist []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	g := 1.0
	for _, v := range dist {
		p := v / total
		g -= p * p
	}
	return g
}

func normalize(dist []float64) []float64 {
	out := make([]float64, len(dist))
	total := floats.Sum(dist)
	if total <= 0 {
		return uniform(len(dist))
	}
	for i, v := range dist {
		out[i] = v / total
	}
	return out
}
