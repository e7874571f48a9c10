package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact file names inside a model directory.
const (
	EnsembleFile     = "ensemble.json"
	ScalerFile       = "scaler.json"
	LabelEncoderFile = "label_encoder.json"
	MetadataFile     = "metadata.json"
)

// Metadata describes how an artifact was produced and what it expects.
type Metadata struct {
	ModelType    string    `json:"model_type"`
	Features     []string  `json:"features"`
	Classes      []string  `json:"classes"`
	SoilTypes    []string  `json:"soil_types"`
	Accuracy     float64   `json:"accuracy"`
	MacroF1      float64   `json:"macro_f1"`
	TrainSamples int       `json:"train_samples"`
	TestSamples  int       `json:"test_samples"`
	TrainedAt    time.Time `json:"trained_at"`
}

// Artifact is everything inference needs.
type Artifact struct {
	Ensemble *VotingClassifier
	Scaler   *StandardScaler
	Encoder  *LabelEncoder
	Metadata Metadata
}

// SaveArtifact writes the four artifact files into dir, creating it if needed.
func SaveArtifact(dir string, a Artifact) error {
	if a.Ensemble == nil || a.Scaler == nil || a.Encoder == nil {
		return errors.New("save artifact: ensemble, scaler and encoder are required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	files := []struct {
		name string
		v    any
	}{
		{EnsembleFile, a.Ensemble},
		{ScalerFile, a.Scaler},
		{LabelEncoderFile, a.Encoder},
		{MetadataFile, a.Metadata},
	}
	for _, f := range files {
		if err := writeJSONFile(filepath.Join(dir, f.name), f.v); err != nil {
			return err
		}
	}
	return nil
}

// LoadArtifact reads the four artifact files from dir.
func LoadArtifact(dir string) (Artifact, error) {
	var a Artifact
	a.Ensemble = &VotingClassifier{}
	a.Scaler = &StandardScaler{}
	a.Encoder = &LabelEncoder{}
	files := []struct {
		name string
		v    any
	}{
		{EnsembleFile, a.Ensemble},
		{ScalerFile, a.Scaler},
		{LabelEncoderFile, a.Encoder},
		{MetadataFile, &a.Metadata},
	}
	for _, f := range files {
		if err := readJSONFile(filepath.Join(dir, f.name), f.v); err != nil {
			return Artifact{}, err
		}
	}
	return a, nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
