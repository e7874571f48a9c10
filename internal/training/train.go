// Package training runs the offline jobs that produce and assess the crop
// model artifact.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/agromind-service/internal/domain"
	"github.com/couchcryptid/agromind-service/internal/ml"
)

// ModelType is recorded in the artifact metadata.
const ModelType = "VotingClassifier"

// TrainReport summarises one training run.
type TrainReport struct {
	Dataset      string         `yaml:"dataset"`
	ModelDir     string         `yaml:"model_dir"`
	TrainedAt    time.Time      `yaml:"trained_at"`
	Rows         int            `yaml:"rows"`
	Dropped      int            `yaml:"dropped"`
	TrainSamples int            `yaml:"train_samples"`
	TestSamples  int            `yaml:"test_samples"`
	ClassCounts  map[string]int `yaml:"class_counts"`
	FitSeconds   float64        `yaml:"fit_seconds"`
	Test         ml.Report      `yaml:"test"`
}

// Train fits the production ensemble, scores it on the held-out split and
// saves the artifact to cfg.OutputDir.
func Train(ctx context.Context, cfg Config, logger *slog.Logger) (*TrainReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	data, err := prepare(cfg, logger)
	if err != nil {
		return nil, err
	}

	ensemble, err := newEnsemble(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("fitting ensemble", "trees", cfg.Forest.Trees, "rounds", cfg.Boosting.Rounds)
	start := time.Now()
	if err := ensemble.Fit(ctx, data.trainX, data.trainY, data.encoder.Len()); err != nil {
		return nil, fmt.Errorf("fit ensemble: %w", err)
	}
	fitSeconds := time.Since(start).Seconds()

	test, err := ml.Evaluate(data.testY, ml.Predict(ensemble, data.testX), data.encoder.Classes)
	if err != nil {
		return nil, err
	}
	logger.Info("ensemble evaluated", "accuracy", test.Accuracy, "macro_f1", test.MacroF1, "fit_seconds", fitSeconds)

	trainedAt := domain.Now()
	artifact := ml.Artifact{
		Ensemble: ensemble,
		Scaler:   data.scaler,
		Encoder:  data.encoder,
		Metadata: ml.Metadata{
			ModelType:    ModelType,
			Features:     domain.FeatureNames,
			Classes:      data.encoder.Classes,
			SoilTypes:    domain.SoilTypes,
			Accuracy:     test.Accuracy,
			MacroF1:      test.MacroF1,
			TrainSamples: len(data.trainX),
			TestSamples:  len(data.testX),
			TrainedAt:    trainedAt,
		},
	}
	if err := ml.SaveArtifact(cfg.OutputDir, artifact); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}
	logger.Info("artifact saved", "dir", cfg.OutputDir)

	report := &TrainReport{
		Dataset:      cfg.Dataset,
		ModelDir:     cfg.OutputDir,
		TrainedAt:    trainedAt,
		Rows:         data.rows,
		Dropped:      data.dropped,
		TrainSamples: len(data.trainX),
		TestSamples:  len(data.testX),
		ClassCounts:  data.counts,
		FitSeconds:   fitSeconds,
		Test:         test,
	}
	if err := WriteReport(cfg.Report, report); err != nil {
		return nil, err
	}
	return report, nil
}
