package training

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/couchcryptid/agromind-service/internal/dataset"
	"github.com/couchcryptid/agromind-service/internal/ml"
)

// EvaluationReport scores a saved artifact against a dataset.
type EvaluationReport struct {
	ModelDir string    `yaml:"model_dir"`
	Dataset  string    `yaml:"dataset"`
	Model    string    `yaml:"model_type"`
	Skipped  int       `yaml:"skipped"` // rows whose crop the model does not know
	Scores   ml.Report `yaml:"scores"`
}

// Evaluate loads the artifact in modelDir and scores every row of the
// dataset at datasetPath. A non-empty reportPath receives the YAML report.
func Evaluate(ctx context.Context, modelDir, datasetPath, reportPath string, logger *slog.Logger) (*EvaluationReport, error) {
	model, err := ml.LoadModel(modelDir)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Load(datasetPath)
	if err != nil {
		return nil, err
	}
	classes := model.Classes()
	X, labels := ds.Matrix()

	var actual, predicted []int
	skipped := 0
	for i, x := range X {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		want, ok := slices.BinarySearch(classes, labels[i])
		if !ok {
			skipped++
			continue
		}
		pred, err := model.Classify(x)
		if err != nil {
			return nil, fmt.Errorf("classify row %d: %w", i, err)
		}
		got, _ := slices.BinarySearch(classes, pred.Crop)
		actual = append(actual, want)
		predicted = append(predicted, got)
	}

	scores, err := ml.Evaluate(actual, predicted, classes)
	if err != nil {
		return nil, err
	}
	logger.Info("model evaluated", "rows", len(actual), "skipped", skipped, "accuracy", scores.Accuracy, "macro_f1", scores.MacroF1)

	report := &EvaluationReport{
		ModelDir: modelDir,
		Dataset:  datasetPath,
		Model:    model.Metadata().ModelType,
		Skipped:  skipped,
		Scores:   scores,
	}
	if err := WriteReport(reportPath, report); err != nil {
		return nil, err
	}
	return report, nil
}
