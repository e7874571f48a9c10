package ml

import (
	"math"
	"math/rand"
	"slices"
)

// StratifiedSplit partitions row indices into train and test so each class
// keeps its share in both. With a positive ratio, every class with two or more
// rows contributes at least one test row and keeps at least one training row.
func StratifiedSplit(y []int, testRatio float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))
	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	labels := make([]int, 0, len(byClass))
	for label := range byClass {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	for _, label := range labels {
		rows := byClass[label]
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		nTest := int(math.Round(float64(len(rows)) * testRatio))
		switch {
		case testRatio <= 0 || len(rows) < 2:
			nTest = 0
		default:
			nTest = min(max(nTest, 1), len(rows)-1)
		}
		test = append(test, rows[:nTest]...)
		train = append(train, rows[nTest:]...)
	}
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test
}

// Take selects rows of X and y by index.
func Take(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	tx := make([][]float64, len(idx))
	ty := make([]int, len(idx))
	for i, j := range idx {
		tx[i], ty[i] = X[j], y[j]
	}
	return tx, ty
}
