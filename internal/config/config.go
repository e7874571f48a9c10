package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	// ModelDir holds the artifact loaded at start.
	ModelDir string

	// Soil-grid service.
	SoilGridsURL     string
	SoilGridsTimeout time.Duration
	SoilSearchRadius float64 // degrees, 0 disables the neighbour search
	SoilSearchStep   float64

	// Climate service.
	ClimateURL       string
	ClimateTimeout   time.Duration
	ClimateStartYear int
	ClimateEndYear   int

	// Reverse geocoding.
	GeocoderURL       string
	GeocoderEnabled   bool
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration

	CacheSize int

	// HistoryDSN selects the history store: sqlite://path or postgres://...
	HistoryDSN   string
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", "10s"),
		RequestTimeout:  p.duration("REQUEST_TIMEOUT", "45s"),
		ModelDir:        envOrDefault("MODEL_DIR", "models"),

		SoilGridsURL:     envOrDefault("SOILGRIDS_URL", "https://rest.isric.org/soilgrids/v2.0/properties/query"),
		SoilGridsTimeout: p.duration("SOILGRIDS_TIMEOUT", "30s"),
		SoilSearchRadius: p.float("SOIL_SEARCH_RADIUS", "0.5"),
		SoilSearchStep:   p.float("SOIL_SEARCH_STEP", "0.1"),

		ClimateURL:       envOrDefault("CLIMATE_URL", "https://power.larc.nasa.gov/api/temporal/monthly/point"),
		ClimateTimeout:   p.duration("CLIMATE_TIMEOUT", "30s"),
		ClimateStartYear: p.integer("CLIMATE_START_YEAR", "2000"),
		ClimateEndYear:   p.integer("CLIMATE_END_YEAR", "2024"),

		GeocoderURL:       envOrDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org/reverse"),
		GeocoderEnabled:   p.boolean("GEOCODER_ENABLED", "true"),
		GeocoderUserAgent: envOrDefault("GEOCODER_USER_AGENT", "agromind-service/1.0"),
		GeocoderTimeout:   p.duration("GEOCODER_TIMEOUT", "10s"),

		CacheSize: p.integer("CACHE_SIZE", "1000"),

		HistoryDSN:   os.Getenv("HISTORY_DSN"),
		KafkaBrokers: parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "crop-recommendations"),
	}
	if p.err != nil {
		return nil, p.err
	}

	if cfg.SoilSearchRadius < 0 {
		return nil, fmt.Errorf("SOIL_SEARCH_RADIUS must not be negative, got %v", cfg.SoilSearchRadius)
	}
	if cfg.SoilSearchStep <= 0 {
		return nil, fmt.Errorf("SOIL_SEARCH_STEP must be positive, got %v", cfg.SoilSearchStep)
	}
	if cfg.ClimateStartYear > cfg.ClimateEndYear {
		return nil, fmt.Errorf("CLIMATE_START_YEAR %d is after CLIMATE_END_YEAR %d", cfg.ClimateStartYear, cfg.ClimateEndYear)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("CACHE_SIZE must be positive, got %d", cfg.CacheSize)
	}
	if cfg.ModelDir == "" {
		return nil, fmt.Errorf("MODEL_DIR is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.HistoryDSN != "" && !strings.HasPrefix(cfg.HistoryDSN, "sqlite://") &&
		!strings.HasPrefix(cfg.HistoryDSN, "postgres://") && !strings.HasPrefix(cfg.HistoryDSN, "postgresql://") {
		return nil, fmt.Errorf("HISTORY_DSN must start with sqlite:// or postgres://")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// parser keeps the first parse failure so Load can read every variable
// before reporting.
type parser struct {
	err error
}

func (p *parser) fail(key, value string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %q", key, value)
	}
}

func (p *parser) duration(key, fallback string) time.Duration {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		p.fail(key, s)
	}
	return d
}

func (p *parser) float(key, fallback string) float64 {
	s := envOrDefault(key, fallback)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(key, s)
	}
	return f
}

func (p *parser) integer(key, fallback string) int {
	s := envOrDefault(key, fallback)
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(key, s)
	}
	return n
}

func (p *parser) boolean(key, fallback string) bool {
	s := envOrDefault(key, fallback)
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.fail(key, s)
	}
	return b
}
