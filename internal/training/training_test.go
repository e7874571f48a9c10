package training

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/agromind-service/internal/domain"
	"github.com/couchcryptid/agromind-service/internal/ml"
)

var discard = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// writeCropCSV writes an imbalanced dataset where humidity and temperature
// separate the crops.
func writeCropCSV(t *testing.T, dir string) string {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	var b strings.Builder
	b.WriteString("soil_type,ph,k,p,n,temperature,humidity,label\n")
	crops := []struct {
		label    string
		soil     string
		rows     int
		temp     float64
		humidity float64
	}{
		{"rice", "Clayey", 60, 24, 82},
		{"Maize", "Loamy", 40, 22, 60},
		{"chickpea", "Black", 20, 18, 16},
	}
	for _, c := range crops {
		for range c.rows {
			fmt.Fprintf(&b, "%s,%.2f,%.1f,%.1f,%.1f,%.2f,%.2f,%s\n",
				c.soil, 6+rng.Float64(), 30+rng.Float64()*20, 40+rng.Float64()*10, 60+rng.Float64()*30,
				c.temp+rng.NormFloat64(), c.humidity+rng.NormFloat64()*3, c.label)
		}
	}
	b.WriteString("Red,,20,20,20,20,20,Rice\n")

	path := filepath.Join(dir, "crops.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		Dataset:   writeCropCSV(t, dir),
		OutputDir: filepath.Join(dir, "models"),
		Report:    filepath.Join(dir, "report.yaml"),
		TestRatio: 0.2,
		Seed:      42,
		SMOTE:     ml.DefaultSMOTEParams(),
		Forest:    ml.DefaultForestParams(),
		Boosting:  ml.DefaultBoostParams(),
	}
	cfg.Forest.Trees = 10
	cfg.Forest.MinSamplesSplit = 4
	cfg.Forest.MinSamplesLeaf = 2
	cfg.Boosting.Rounds = 15
	cfg.Boosting.MaxDepth = 3
	return cfg
}

func TestTrain(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })
	cfg := testConfig(t)

	report, err := Train(context.Background(), cfg, discard)
	require.NoError(t, err)

	assert.Equal(t, 120, report.Rows)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, map[string]int{"Rice": 60, "Maize": 40, "Chickpea": 20}, report.ClassCounts)
	assert.Equal(t, 24, report.TestSamples)
	// 48 training rows per class after oversampling.
	assert.Equal(t, 144, report.TrainSamples)
	assert.GreaterOrEqual(t, report.Test.Accuracy, 0.9)

	model, err := ml.LoadModel(cfg.OutputDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chickpea", "Maize", "Rice"}, model.Classes())
	meta := model.Metadata()
	assert.Equal(t, ModelType, meta.ModelType)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), meta.TrainedAt)

	pred, err := model.Classify(domain.FeatureVector{1, 6.5, 40, 45, 75, 24, 82})
	require.NoError(t, err)
	assert.Equal(t, "Rice", pred.Crop)

	data, err := os.ReadFile(cfg.Report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, cfg.Dataset, decoded["dataset"])
	assert.Contains(t, decoded, "test")
}

func TestCompare(t *testing.T) {
	cfg := testConfig(t)

	report, err := Compare(context.Background(), cfg, discard)
	require.NoError(t, err)

	require.Len(t, report.Models, 4)
	names := make([]string, 0, 4)
	for i, m := range report.Models {
		names = append(names, m.Model)
		if i > 0 {
			assert.GreaterOrEqual(t, report.Models[i-1].MacroF1, m.MacroF1)
		}
	}
	assert.ElementsMatch(t, []string{"decision_tree", "random_forest", "gradient_boosting", "voting_ensemble"}, names)
	assert.FileExists(t, cfg.Report)
}

func TestEvaluate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Report = ""
	_, err := Train(context.Background(), cfg, discard)
	require.NoError(t, err)

	extra := filepath.Join(t.TempDir(), "extra.csv")
	content := "soil_type,ph,k,p,n,temperature,humidity,label\n" +
		"Clay,6.5,40,45,75,24,82,rice\n" +
		"Loamy,6.5,40,45,75,22,60,maize\n" +
		"Sandy,6.5,40,45,75,30,40,Watermelon\n"
	require.NoError(t, os.WriteFile(extra, []byte(content), 0o644))
	reportPath := filepath.Join(t.TempDir(), "eval.yaml")

	report, err := Evaluate(context.Background(), cfg.OutputDir, extra, reportPath, discard)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Scores.Samples)
	assert.Equal(t, ModelType, report.Model)
	assert.FileExists(t, reportPath)
}

func TestEvaluate_MissingModel(t *testing.T) {
	_, err := Evaluate(context.Background(), t.TempDir(), "crops.csv", "", discard)
	assert.Error(t, err)
}

func TestTrain_Cancelled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Train(ctx, cfg, discard)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, ml.EnsembleFile))
}
