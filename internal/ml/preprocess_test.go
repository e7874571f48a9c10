package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardScaler(t *testing.T) {
	X := [][]float64{{1, 5}, {3, 5}, {5, 5}}

	s, err := FitStandardScaler(X)
	require.NoError(t, err)

	assert.Equal(t, []float64{3, 5}, s.Mean)
	assert.InDelta(t, 1.632993, s.Scale[0], 1e-6)
	assert.Equal(t, 1.0, s.Scale[1])

	out, err := s.Transform(X)
	require.NoError(t, err)
	assert.InDelta(t, -1.224745, out[0][0], 1e-6)
	assert.Equal(t, 0.0, out[1][0])
	assert.Equal(t, 0.0, out[2][1])

	_, err = s.TransformRow([]float64{1})
	assert.Error(t, err)
	_, err = FitStandardScaler(nil)
	assert.Error(t, err)
}

func TestLabelEncoder(t *testing.T) {
	e := FitLabelEncoder([]string{"Rice", "Maize", "Rice", "Cotton"})

	assert.Equal(t, []string{"Cotton", "Maize", "Rice"}, e.Classes)
	assert.Equal(t, 3, e.Len())

	codes, err := e.Transform([]string{"Rice", "Cotton"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, codes)

	_, err = e.Transform([]string{"Coffee"})
	assert.ErrorContains(t, err, "Coffee")

	label, err := e.Inverse(1)
	require.NoError(t, err)
	assert.Equal(t, "Maize", label)
	_, err = e.Inverse(3)
	assert.Error(t, err)
}

func TestStratifiedSplit(t *testing.T) {
	y := make([]int, 0, 115)
	for range 100 {
		y = append(y, 0)
	}
	for range 10 {
		y = append(y, 1)
	}
	for range 5 {
		y = append(y, 2)
	}

	train, test := StratifiedSplit(y, 0.2, 42)

	assert.Len(t, train, 92)
	assert.Len(t, test, 23)
	counts := map[int]int{}
	for _, i := range test {
		counts[y[i]]++
	}
	assert.Equal(t, map[int]int{0: 20, 1: 2, 2: 1}, counts)

	seen := map[int]bool{}
	for _, i := range append(train, test...) {
		assert.False(t, seen[i], "row %d assigned twice", i)
		seen[i] = true
	}

	again, _ := StratifiedSplit(y, 0.2, 42)
	assert.Equal(t, train, again)
}

func TestStratifiedSplit_SingletonStaysInTrain(t *testing.T) {
	train, test := StratifiedSplit([]int{0, 0, 0, 0, 1}, 0.5, 1)

	assert.Len(t, test, 2)
	assert.Contains(t, train, 4)
}

func TestEvaluate(t *testing.T) {
	actual := []int{0, 0, 0, 1, 1, 2}
	predicted := []int{0, 0, 1, 1, 1, 0}

	r, err := Evaluate(actual, predicted, []string{"A", "B", "C"})
	require.NoError(t, err)

	assert.InDelta(t, 4.0/6, r.Accuracy, 1e-12)
	assert.Equal(t, [][]int{{2, 1, 0}, {0, 2, 0}, {1, 0, 0}}, r.Confusion)

	a := r.Classes[0]
	assert.Equal(t, "A", a.Class)
	assert.InDelta(t, 2.0/3, a.Precision, 1e-12)
	assert.InDelta(t, 2.0/3, a.Recall, 1e-12)
	assert.Equal(t, 3, a.Support)

	b := r.Classes[1]
	assert.InDelta(t, 2.0/3, b.Precision, 1e-12)
	assert.InDelta(t, 1.0, b.Recall, 1e-12)
	assert.InDelta(t, 0.8, b.F1, 1e-12)

	assert.Equal(t, 0.0, r.Classes[2].F1)
	assert.InDelta(t, (2.0/3+0.8)/3, r.MacroF1, 1e-12)
	assert.InDelta(t, (3*(2.0/3)+2*0.8)/6, r.WeightedF1, 1e-12)

	_, err = Evaluate([]int{0}, []int{0, 1}, []string{"A", "B"})
	assert.Error(t, err)
	_, err = Evaluate([]int{3}, []int{0}, []string{"A"})
	assert.Error(t, err)
}

func TestEvaluate_MacroF1SkipsAbsentClasses(t *testing.T) {
	// D is neither in the test labels nor predicted.
	actual := []int{0, 0, 1, 1, 2}
	predicted := []int{0, 0, 1, 0, 2}

	r, err := Evaluate(actual, predicted, []string{"A", "B", "C", "D"})
	require.NoError(t, err)

	require.Len(t, r.Classes, 4)
	assert.Equal(t, 0, r.Classes[3].Support)
	assert.Equal(t, 0.0, r.Classes[3].F1)
	aF1 := 2 * (2.0 / 3) * 1 / (2.0/3 + 1)
	bF1 := 2 * 1 * 0.5 / (1 + 0.5)
	assert.InDelta(t, (aF1+bF1+1)/3, r.MacroF1, 1e-12)

	// A class that is only predicted still counts, with F1 0.
	r, err = Evaluate([]int{0, 0}, []int{0, 1}, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.InDelta(t, (2.0/3)/2, r.MacroF1, 1e-12)
}
