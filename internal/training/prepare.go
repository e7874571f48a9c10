package training

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/agromind-service/internal/dataset"
	"github.com/couchcryptid/agromind-service/internal/ml"
)

// prepared is a dataset split, oversampled and scaled, ready for fitting.
type prepared struct {
	encoder *ml.LabelEncoder
	scaler  *ml.StandardScaler
	trainX  [][]float64
	trainY  []int
	testX   [][]float64
	testY   []int
	rows    int
	dropped int
	counts  map[string]int
}

// prepare loads the dataset, splits it by class, oversamples the training
// part and fits the scaler on the oversampled rows.
func prepare(cfg Config, logger *slog.Logger) (*prepared, error) {
	ds, err := dataset.Load(cfg.Dataset)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded", "path", cfg.Dataset, "rows", len(ds.Records), "dropped", ds.Dropped)

	X, labels := ds.Matrix()
	enc := ml.FitLabelEncoder(labels)
	y, err := enc.Transform(labels)
	if err != nil {
		return nil, fmt.Errorf("encode labels: %w", err)
	}

	trainIdx, testIdx := ml.StratifiedSplit(y, cfg.TestRatio, cfg.Seed)
	trainX, trainY := ml.Take(X, y, trainIdx)
	testX, testY := ml.Take(X, y, testIdx)

	resX, resY, err := ml.BorderlineSMOTE(trainX, trainY, cfg.SMOTE)
	if err != nil {
		return nil, fmt.Errorf("oversample: %w", err)
	}
	logger.Info("training set oversampled", "before", len(trainX), "after", len(resX), "classes", enc.Len())

	scaler, err := ml.FitStandardScaler(resX)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	scaledTrain, err := scaler.Transform(resX)
	if err != nil {
		return nil, fmt.Errorf("scale training set: %w", err)
	}
	scaledTest, err := scaler.Transform(testX)
	if err != nil {
		return nil, fmt.Errorf("scale test set: %w", err)
	}

	return &prepared{
		encoder: enc,
		scaler:  scaler,
		trainX:  scaledTrain,
		trainY:  resY,
		testX:   scaledTest,
		testY:   testY,
		rows:    len(ds.Records),
		dropped: ds.Dropped,
		counts:  ds.ClassCounts(),
	}, nil
}

// newEnsemble builds the production soft-voting ensemble.
func newEnsemble(cfg Config) (*ml.VotingClassifier, error) {
	forest, err := ml.NewMember(ml.KindRandomForest, ml.NewRandomForest(cfg.Forest), 1)
	if err != nil {
		return nil, err
	}
	boost, err := ml.NewMember(ml.KindGradientBoosting, ml.NewGradientBoosting(cfg.Boosting), 1)
	if err != nil {
		return nil, err
	}
	return ml.NewVotingClassifier(forest, boost), nil
}
