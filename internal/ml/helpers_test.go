package ml

import (
	"math/rand"
)

var threeCenters = [][]float64{{0, 0}, {6, 6}, {0, 6}}

// blobs draws perClass gaussian points around each center.
func blobs(perClass int, centers [][]float64, spread float64, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	var X [][]float64
	var y []int
	for c, center := range centers {
		for range perClass {
			row := make([]float64, len(center))
			for j := range center {
				row[j] = center[j] + rng.NormFloat64()*spread
			}
			X = append(X, row)
			y = append(y, c)
		}
	}
	return X, y
}

func accuracy(e Estimator, X [][]float64, y []int) float64 {
	correct := 0
	for i, p := range Predict(e, X) {
		if p == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}
