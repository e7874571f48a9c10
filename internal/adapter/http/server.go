// Package http serves the recommendation API alongside the health, readiness
// and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/agromind-service/internal/domain"
	"github.com/couchcryptid/agromind-service/internal/recommend"
)

const (
	maxBodyBytes = 1 << 20

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Recommender produces a recommendation for a request.
type Recommender interface {
	Recommend(ctx context.Context, req domain.RecommendationRequest) (domain.Recommendation, error)
}

// History lists recent recommendations, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]domain.Recommendation, error)
}

// Server exposes the API plus health, readiness, and metrics HTTP endpoints.
type Server struct {
	httpServer     *http.Server
	recommender    Recommender
	history        History
	requestTimeout time.Duration
	logger         *slog.Logger
}

// NewServer creates the HTTP server. A nil history leaves /history unrouted.
func NewServer(addr string, recommender Recommender, ready ReadinessChecker, history History, requestTimeout time.Duration, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: requestTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		recommender:    recommender,
		history:        history,
		requestTimeout: requestTimeout,
		logger:         logger,
	}

	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /predict", s.handlePredict)
	if history != nil {
		mux.HandleFunc("GET /history", s.handleHistory)
	}
	mux.HandleFunc("GET /healthz", handleLiveness)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the AgroMind Crop Recommendation API!"})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "AgroMind API is running smoothly.",
	})
}

func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req domain.RecommendationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	rec, err := s.recommender.Recommend(ctx, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rec)
	case errors.Is(err, domain.ErrInvalidRequest):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnknownLocation):
		writeDetail(w, http.StatusBadRequest, "Location not found or invalid coordinates.")
	case errors.Is(err, recommend.ErrNotReady):
		writeDetail(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("prediction failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Prediction error: "+err.Error())
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("limit must be an integer within [1, %d]", maxHistoryLimit))
			return
		}
		limit = n
	}

	recs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("history lookup failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "History error: "+err.Error())
		return
	}
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
