package ml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallBoostParams() BoostParams {
	p := DefaultBoostParams()
	p.Rounds = 30
	p.MaxDepth = 3
	return p
}

func TestGradientBoosting_Accuracy(t *testing.T) {
	X, y := blobs(60, threeCenters, 0.8, 8)
	testX, testY := blobs(20, threeCenters, 0.8, 9)
	gb := NewGradientBoosting(smallBoostParams())

	require.NoError(t, gb.Fit(context.Background(), X, y, 3))

	require.Len(t, gb.Trees, 30)
	require.Len(t, gb.Trees[0], 3)
	assert.GreaterOrEqual(t, accuracy(gb, testX, testY), 0.95)

	probs := gb.PredictProba(testX[0])
	assert.InDelta(t, 1.0, sumOf(probs), 1e-9)
	assert.Greater(t, probs[testY[0]], 0.5)
}

func TestGradientBoosting_Deterministic(t *testing.T) {
	X, y := blobs(30, threeCenters, 1.5, 12)
	a := NewGradientBoosting(smallBoostParams())
	b := NewGradientBoosting(smallBoostParams())

	require.NoError(t, a.Fit(context.Background(), X, y, 3))
	require.NoError(t, b.Fit(context.Background(), X, y, 3))

	x := []float64{3, 3}
	assert.Equal(t, a.PredictProba(x), b.PredictProba(x))

	other := smallBoostParams()
	other.Seed = 7
	c := NewGradientBoosting(other)
	require.NoError(t, c.Fit(context.Background(), X, y, 3))
	assert.NotEqual(t, a.Trees, c.Trees)
}

func TestGradientBoosting_MoreRoundsSharpen(t *testing.T) {
	X, y := blobs(40, threeCenters, 0.5, 10)
	few := NewGradientBoosting(BoostParams{Rounds: 2, MaxDepth: 2, LearningRate: 0.1, Lambda: 1, MinChildWeight: 1, Seed: 1})
	many := NewGradientBoosting(BoostParams{Rounds: 40, MaxDepth: 2, LearningRate: 0.1, Lambda: 1, MinChildWeight: 1, Seed: 1})

	require.NoError(t, few.Fit(context.Background(), X, y, 3))
	require.NoError(t, many.Fit(context.Background(), X, y, 3))

	assert.Greater(t, many.PredictProba(X[0])[y[0]], few.PredictProba(X[0])[y[0]])
}

func TestGradientBoosting_Cancelled(t *testing.T) {
	X, y := blobs(20, threeCenters, 1, 11)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, NewGradientBoosting(smallBoostParams()).Fit(ctx, X, y, 3), context.Canceled)
}

func TestSoftmax(t *testing.T) {
	p := softmax([]float64{1000, 1000})
	assert.InDelta(t, 0.5, p[0], 1e-12)
	assert.InDelta(t, 0.5, p[1], 1e-12)

	p = softmax([]float64{0, 0, 0})
	assert.InDelta(t, 1.0/3, p[2], 1e-12)
}

func TestNewGradientBoosting_ClampsParams(t *testing.T) {
	gb := NewGradientBoosting(BoostParams{Subsample: 2, ColSample: -1})

	assert.Equal(t, 1, gb.Params.Rounds)
	assert.Equal(t, 0.1, gb.Params.LearningRate)
	assert.Equal(t, 1.0, gb.Params.Subsample)
	assert.Equal(t, 1.0, gb.Params.ColSample)
}
