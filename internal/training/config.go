package training

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/couchcryptid/agromind-service/internal/ml"
)

// EnvPrefix prefixes environment overrides, e.g. AGROMIND_TRAIN_FOREST_TREES.
const EnvPrefix = "AGROMIND_TRAIN"

// Config drives the training, comparison and evaluation jobs.
type Config struct {
	Dataset   string          `mapstructure:"dataset"`
	OutputDir string          `mapstructure:"output_dir"`
	Report    string          `mapstructure:"report"`
	TestRatio float64         `mapstructure:"test_ratio"`
	Seed      int64           `mapstructure:"seed"`
	SMOTE     ml.SMOTEParams  `mapstructure:"smote"`
	Forest    ml.ForestParams `mapstructure:"forest"`
	Boosting  ml.BoostParams  `mapstructure:"boosting"`
}

func setDefaults(v *viper.Viper) {
	smote := ml.DefaultSMOTEParams()
	forest := ml.DefaultForestParams()
	boost := ml.DefaultBoostParams()

	v.SetDefault("dataset", "datasets_all.xlsx")
	v.SetDefault("output_dir", "models")
	v.SetDefault("report", "")
	v.SetDefault("test_ratio", 0.2)
	v.SetDefault("seed", 42)

	v.SetDefault("smote.k_neighbors", smote.KNeighbors)
	v.SetDefault("smote.m_neighbors", smote.MNeighbors)
	v.SetDefault("smote.seed", smote.Seed)

	v.SetDefault("forest.trees", forest.Trees)
	v.SetDefault("forest.max_depth", forest.MaxDepth)
	v.SetDefault("forest.min_samples_split", forest.MinSamplesSplit)
	v.SetDefault("forest.min_samples_leaf", forest.MinSamplesLeaf)
	v.SetDefault("forest.max_features", forest.MaxFeatures)
	v.SetDefault("forest.balanced", forest.Balanced)
	v.SetDefault("forest.seed", forest.Seed)
	v.SetDefault("forest.workers", 0)

	v.SetDefault("boosting.rounds", boost.Rounds)
	v.SetDefault("boosting.max_depth", boost.MaxDepth)
	v.SetDefault("boosting.learning_rate", boost.LearningRate)
	v.SetDefault("boosting.subsample", boost.Subsample)
	v.SetDefault("boosting.colsample", boost.ColSample)
	v.SetDefault("boosting.lambda", boost.Lambda)
	v.SetDefault("boosting.min_child_weight", boost.MinChildWeight)
	v.SetDefault("boosting.seed", boost.Seed)
}

// LoadConfig reads the optional YAML file at path, then applies
// AGROMIND_TRAIN_* environment overrides on top of the defaults.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read training config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode training config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the learners cannot run with.
func (c Config) Validate() error {
	if c.Dataset == "" {
		return errors.New("dataset is required")
	}
	if c.TestRatio <= 0 || c.TestRatio >= 1 {
		return fmt.Errorf("test_ratio must be within (0, 1), got %v", c.TestRatio)
	}
	if c.SMOTE.KNeighbors < 1 || c.SMOTE.MNeighbors < 1 {
		return fmt.Errorf("smote.k_neighbors and smote.m_neighbors must be positive, got %d and %d", c.SMOTE.KNeighbors, c.SMOTE.MNeighbors)
	}
	if c.Forest.Trees < 1 {
		return fmt.Errorf("forest.trees must be positive, got %d", c.Forest.Trees)
	}
	if c.Boosting.Rounds < 1 {
		return fmt.Errorf("boosting.rounds must be positive, got %d", c.Boosting.Rounds)
	}
	if c.Boosting.LearningRate <= 0 {
		return fmt.Errorf("boosting.learning_rate must be positive, got %v", c.Boosting.LearningRate)
	}
	if c.Boosting.Subsample <= 0 || c.Boosting.Subsample > 1 {
		return fmt.Errorf("boosting.subsample must be within (0, 1], got %v", c.Boosting.Subsample)
	}
	if c.Boosting.ColSample <= 0 || c.Boosting.ColSample > 1 {
		return fmt.Errorf("boosting.colsample must be within (0, 1], got %v", c.Boosting.ColSample)
	}
	return nil
}
