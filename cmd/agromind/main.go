package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/agromind-service/internal/adapter/climate"
	httpadapter "github.com/couchcryptid/agromind-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/agromind-service/internal/adapter/kafka"
	"github.com/couchcryptid/agromind-service/internal/adapter/nominatim"
	"github.com/couchcryptid/agromind-service/internal/adapter/postgres"
	"github.com/couchcryptid/agromind-service/internal/adapter/soilgrids"
	"github.com/couchcryptid/agromind-service/internal/adapter/sqlite"
	"github.com/couchcryptid/agromind-service/internal/config"
	"github.com/couchcryptid/agromind-service/internal/domain"
	"github.com/couchcryptid/agromind-service/internal/ml"
	"github.com/couchcryptid/agromind-service/internal/observability"
	"github.com/couchcryptid/agromind-service/internal/recommend"
)

// historyStore is a recommendation store the server owns.
type historyStore interface {
	domain.RecommendationStore
	httpadapter.ReadinessChecker
	Close() error
}

// readiness is ready when every checker is.
type readiness []httpadapter.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	model, err := ml.LoadModel(cfg.ModelDir)
	if err != nil {
		logger.Error("failed to load model", "dir", cfg.ModelDir, "error", err)
		os.Exit(1)
	}
	meta := model.Metadata()
	metrics.ModelClasses.Set(float64(len(model.Classes())))
	logger.Info("model loaded",
		"dir", cfg.ModelDir,
		"type", meta.ModelType,
		"classes", len(meta.Classes),
		"accuracy", meta.Accuracy,
		"trained_at", meta.TrainedAt,
	)

	soilClient := soilgrids.NewClient(cfg.SoilGridsURL, cfg.SoilGridsTimeout, metrics, logger)
	soil := soilgrids.NewCachedSource(
		soilgrids.NewNeighbourSearch(soilClient, cfg.SoilSearchRadius, cfg.SoilSearchStep, logger),
		cfg.CacheSize, metrics,
	)

	climateClient := climate.NewClient(cfg.ClimateURL, cfg.ClimateStartYear, cfg.ClimateEndYear, cfg.ClimateTimeout, metrics, logger)
	climateSource := climate.NewCachedSource(climateClient, cfg.CacheSize, metrics)

	// Initialize geocoder (feature-flagged via GEOCODER_ENABLED).
	var geocoder domain.Geocoder
	if cfg.GeocoderEnabled {
		client := nominatim.NewClient(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, metrics, logger)
		geocoder = nominatim.NewCachedGeocoder(client, cfg.CacheSize, metrics)
		metrics.GeocoderEnabled.Set(1)
		logger.Info("reverse geocoding enabled", "cache_size", cfg.CacheSize, "timeout", cfg.GeocoderTimeout)
	} else {
		logger.Info("reverse geocoding disabled")
	}

	svc := recommend.New(soil, climateSource, geocoder, logger, metrics)
	svc.AttachClassifier(model)
	ready := readiness{svc}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var history historyStore
	if cfg.HistoryDSN != "" {
		history, err = openHistory(ctx, cfg.HistoryDSN)
		if err != nil {
			logger.Error("failed to open history store", "error", err)
			os.Exit(1)
		}
		svc.AddRecorder("history", history)
		ready = append(ready, history)
		logger.Info("recommendation history enabled", "backend", strings.SplitN(cfg.HistoryDSN, "://", 2)[0])
	}

	var publisher *kafkaadapter.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		svc.AddRecorder("kafka", publisher)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	var historyReader httpadapter.History
	if history != nil {
		historyReader = history
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, ready, historyReader, cfg.RequestTimeout, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if history != nil {
		if err := history.Close(); err != nil {
			logger.Error("history store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// openHistory opens the store named by a sqlite:// or postgres:// DSN.
func openHistory(ctx context.Context, dsn string) (historyStore, error) {
	if path, ok := strings.CutPrefix(dsn, "sqlite://"); ok {
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return store, nil
}
