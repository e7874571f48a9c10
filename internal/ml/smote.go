package ml

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// SMOTEParams configures Borderline-SMOTE.
type SMOTEParams struct {
	KNeighbors int   `json:"k_neighbors" mapstructure:"k_neighbors"` // neighbours used for synthesis
	MNeighbors int   `json:"m_neighbors" mapstructure:"m_neighbors"` // neighbours used to find danger samples
	Seed       int64 `json:"seed" mapstructure:"seed"`
}

// DefaultSMOTEParams are the production crop-model settings.
func DefaultSMOTEParams() SMOTEParams {
	return SMOTEParams{KNeighbors: 3, MNeighbors: 10, Seed: 42}
}

// BorderlineSMOTE raises every class to the size of the largest one by
// interpolating between minority samples. Synthetic rows are seeded from
// "danger" samples, those whose m nearest neighbours are at least half but not
// all from other classes. A class with no danger samples is oversampled from
// all of its rows. The original rows come first in the result.
func BorderlineSMOTE(X [][]float64, y []int, p SMOTEParams) ([][]float64, []int, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, nil, errors.New("smote: X and y must be non-empty and of equal length")
	}
	if p.KNeighbors < 1 || p.MNeighbors < 1 {
		return nil, nil, fmt.Errorf("smote: neighbour counts must be positive, got k=%d m=%d", p.KNeighbors, p.MNeighbors)
	}
	rng := rand.New(rand.NewSource(p.Seed))

	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	labels := make([]int, 0, len(byClass))
	majority := 0
	for label, rows := range byClass {
		labels = append(labels, label)
		majority = max(majority, len(rows))
	}
	slices.Sort(labels)

	outX := slices.Clone(X)
	outY := slices.Clone(y)
	for _, label := range labels {
		rows := byClass[label]
		need := majority - len(rows)
		if need == 0 {
			continue
		}
		seeds := dangerRows(X, y, rows, label, p.MNeighbors)
		if len(seeds) == 0 {
			seeds = rows
		}
		for range need {
			from := seeds[rng.Intn(len(seeds))]
			nn := nearest(X, from, rows, p.KNeighbors)
			if len(nn) == 0 {
				outX = append(outX, slices.Clone(X[from]))
				outY = append(outY, label)
				continue
			}
			to := nn[rng.Intn(len(nn))]
			gap := rng.Float64()
			synthetic := slices.Clone(X[from])
			floats.AddScaled(synthetic, gap, diff(X[to], X[from]))
			outX = append(outX, synthetic)
			outY = append(outY, label)
		}
	}
	return outX, outY, nil
}

// dangerRows returns the rows of a class whose m nearest neighbours in the
// whole set are mostly, but not entirely, of other classes.
func dangerRows(X [][]float64, y []int, rows []int, label, m int) []int {
	all := make([]int, len(X))
	for i := range all {
		all[i] = i
	}
	var danger []int
	for _, r := range rows {
		nn := nearest(X, r, all, m)
		if len(nn) == 0 {
			continue
		}
		foreign := 0
		for _, j := range nn {
			if y[j] != label {
				foreign++
			}
		}
		if 2*foreign >= len(nn) && foreign < len(nn) {
			danger = append(danger, r)
		}
	}
	return danger
}

// nearest returns up to k candidates closest to X[from], excluding from itself.
func nearest(X [][]float64, from int, candidates []int, k int) []int {
	type neighbour struct {
		row  int
		dist float64
	}
	ns := make([]neighbour, 0, len(candidates))
	for _, c := range candidates {
		if c == from {
			continue
		}
		ns = append(ns, neighbour{row: c, dist: floats.Distance(X[from], X[c], 2)})
	}
	slices.SortStableFunc(ns, func(a, b neighbour) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		}
		return 0
	})
	out := make([]int, 0, k)
	for _, n := range ns[:min(k, len(ns))] {
		out = append(out, n.row)
	}
	return out
}

func diff(a, b []float64) []float64 {
	out := make([]float64, len(a))
	floats.SubTo(out, a, b)
	return out
}
