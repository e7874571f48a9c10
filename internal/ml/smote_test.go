package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classCounts(y []int) map[int]int {
	counts := map[int]int{}
	for _, label := range y {
		counts[label]++
	}
	return counts
}

func TestBorderlineSMOTE_Balances(t *testing.T) {
	X, y := blobs(50, [][]float64{{0, 0}}, 1, 13)
	mx, my := blobs(12, [][]float64{{1.5, 1.5}}, 1, 14)
	for i := range my {
		my[i] = 1
	}
	X = append(X, mx...)
	y = append(y, my...)

	outX, outY, err := BorderlineSMOTE(X, y, DefaultSMOTEParams())
	require.NoError(t, err)

	assert.Equal(t, map[int]int{0: 50, 1: 50}, classCounts(outY))
	assert.Equal(t, X, outX[:len(X)])
	assert.Equal(t, y, outY[:len(y)])

	// Synthetic rows interpolate between minority rows, so they stay inside
	// the minority bounding box.
	lo, hi := bounds(mx)
	for _, row := range outX[len(X):] {
		for j, v := range row {
			assert.GreaterOrEqual(t, v, lo[j]-1e-9)
			assert.LessOrEqual(t, v, hi[j]+1e-9)
		}
	}
}

func TestBorderlineSMOTE_FallsBackWithoutDanger(t *testing.T) {
	// The minority class sits far from the majority and each of its rows has
	// only minority neighbours, so plain SMOTE over the class applies.
	X, y := blobs(30, [][]float64{{0, 0}}, 0.5, 15)
	mx, _ := blobs(12, [][]float64{{100, 100}}, 0.5, 16)
	var minority []int
	for _, row := range mx {
		minority = append(minority, len(X))
		X = append(X, row)
		y = append(y, 1)
	}
	assert.Empty(t, dangerRows(X, y, minority, 1, 10))

	outX, outY, err := BorderlineSMOTE(X, y, DefaultSMOTEParams())
	require.NoError(t, err)

	assert.Equal(t, map[int]int{0: 30, 1: 30}, classCounts(outY))
	for _, row := range outX[len(X):] {
		assert.Greater(t, row[0], 90.0)
	}
}

func TestBorderlineSMOTE_SingleMinorityRow(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {10}}
	y := []int{0, 0, 0, 1}

	outX, outY, err := BorderlineSMOTE(X, y, DefaultSMOTEParams())
	require.NoError(t, err)

	assert.Equal(t, map[int]int{0: 3, 1: 3}, classCounts(outY))
	assert.Equal(t, [][]float64{{10}, {10}}, outX[4:])
}

func TestBorderlineSMOTE_Invalid(t *testing.T) {
	_, _, err := BorderlineSMOTE(nil, nil, DefaultSMOTEParams())
	assert.Error(t, err)
	_, _, err = BorderlineSMOTE([][]float64{{1}}, []int{0}, SMOTEParams{})
	assert.Error(t, err)
}

func bounds(X [][]float64) (lo, hi []float64) {
	lo = append([]float64(nil), X[0]...)
	hi = append([]float64(nil), X[0]...)
	for _, row := range X {
		for j, v := range row {
			lo[j] = min(lo[j], v)
			hi[j] = max(hi[j], v)
		}
	}
	return lo, hi
}
