package training

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/couchcryptid/agromind-service/internal/ml"
)

// ModelScore is one row of a model comparison.
type ModelScore struct {
	Model          string  `yaml:"model"`
	Accuracy       float64 `yaml:"accuracy"`
	MacroF1        float64 `yaml:"macro_f1"`
	WeightedF1     float64 `yaml:"weighted_f1"`
	TrainSeconds   float64 `yaml:"train_seconds"`
	PredictSeconds float64 `yaml:"predict_seconds"`
}

// ComparisonReport ranks candidate models by macro F1.
type ComparisonReport struct {
	Dataset      string       `yaml:"dataset"`
	TrainSamples int          `yaml:"train_samples"`
	TestSamples  int          `yaml:"test_samples"`
	Models       []ModelScore `yaml:"models"`
}

// Compare fits a single tree, the forest, the booster and the voting
// ensemble on the same prepared split and scores each on the test part.
func Compare(ctx context.Context, cfg Config, logger *slog.Logger) (*ComparisonReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	data, err := prepare(cfg, logger)
	if err != nil {
		return nil, err
	}

	tree := ml.DefaultTreeParams()
	tree.Seed = cfg.Seed
	ensemble, err := newEnsemble(cfg)
	if err != nil {
		return nil, err
	}
	candidates := []struct {
		name string
		est  ml.Estimator
	}{
		{"decision_tree", ml.NewDecisionTree(tree)},
		{"random_forest", ml.NewRandomForest(cfg.Forest)},
		{"gradient_boosting", ml.NewGradientBoosting(cfg.Boosting)},
		{"voting_ensemble", ensemble},
	}

	report := &ComparisonReport{
		Dataset:      cfg.Dataset,
		TrainSamples: len(data.trainX),
		TestSamples:  len(data.testX),
	}
	for _, c := range candidates {
		logger.Info("training candidate", "model", c.name)
		start := time.Now()
		if err := c.est.Fit(ctx, data.trainX, data.trainY, data.encoder.Len()); err != nil {
			return nil, fmt.Errorf("fit %s: %w", c.name, err)
		}
		trainSeconds := time.Since(start).Seconds()

		start = time.Now()
		predicted := ml.Predict(c.est, data.testX)
		predictSeconds := time.Since(start).Seconds()

		scores, err := ml.Evaluate(data.testY, predicted, data.encoder.Classes)
		if err != nil {
			return nil, err
		}
		report.Models = append(report.Models, ModelScore{
			Model:          c.name,
			Accuracy:       scores.Accuracy,
			MacroF1:        scores.MacroF1,
			WeightedF1:     scores.WeightedF1,
			TrainSeconds:   trainSeconds,
			PredictSeconds: predictSeconds,
		})
		logger.Info("candidate scored", "model", c.name, "accuracy", scores.Accuracy, "macro_f1", scores.MacroF1)
	}

	slices.SortStableFunc(report.Models, func(a, b ModelScore) int {
		return cmp.Compare(b.MacroF1, a.MacroF1)
	})
	if err := WriteReport(cfg.Report, report); err != nil {
		return nil, err
	}
	return report, nil
}
