package ml

import "fmt"

// ClassReport holds the per-class scores.
type ClassReport struct {
	Class     string  `json:"class" yaml:"class"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
	Support   int     `json:"support" yaml:"support"`
}

// Report summarises predictions against the truth.
type Report struct {
	Samples    int           `json:"samples" yaml:"samples"`
	Accuracy   float64       `json:"accuracy" yaml:"accuracy"`
	MacroF1    float64       `json:"macro_f1" yaml:"macro_f1"`
	WeightedF1 float64       `json:"weighted_f1" yaml:"weighted_f1"`
	Classes    []ClassReport `json:"classes" yaml:"classes"`
	// Confusion[i][j] counts rows of true class i predicted as j.
	Confusion [][]int `json:"confusion" yaml:"confusion"`
}

// Evaluate scores predicted against actual class indices. names labels the
// classes and fixes their count. MacroF1 averages over the classes that occur
// in actual or predicted.
func Evaluate(actual, predicted []int, names []string) (Report, error) {
	if len(actual) != len(predicted) {
		return Report{}, fmt.Errorf("evaluate: %d labels but %d predictions", len(actual), len(predicted))
	}
	k := len(names)
	confusion := make([][]int, k)
	for i := range confusion {
		confusion[i] = make([]int, k)
	}
	correct := 0
	for i, a := range actual {
		p := predicted[i]
		if a < 0 || a >= k || p < 0 || p >= k {
			return Report{}, fmt.Errorf("evaluate: class index out of range at row %d", i)
		}
		confusion[a][p]++
		if a == p {
			correct++
		}
	}

	r := Report{Samples: len(actual), Confusion: confusion}
	if len(actual) > 0 {
		r.Accuracy = float64(correct) / float64(len(actual))
	}
	var macro, weighted float64
	present := 0
	for c := range k {
		tp := confusion[c][c]
		var predictedC, support int
		for j := range k {
			predictedC += confusion[j][c]
			support += confusion[c][j]
		}
		cr := ClassReport{Class: names[c], Support: support}
		if predictedC > 0 {
			cr.Precision = float64(tp) / float64(predictedC)
		}
		if support > 0 {
			cr.Recall = float64(tp) / float64(support)
		}
		if cr.Precision+cr.Recall > 0 {
			cr.F1 = 2 * cr.Precision * cr.Recall / (cr.Precision + cr.Recall)
		}
		if support > 0 || predictedC > 0 {
			macro += cr.F1
			present++
		}
		weighted += cr.F1 * float64(support)
		r.Classes = append(r.Classes, cr)
	}
	if present > 0 {
		r.MacroF1 = macro / float64(present)
	}
	if len(actual) > 0 {
		r.WeightedF1 = weighted / float64(len(actual))
	}
	return r, nil
}
