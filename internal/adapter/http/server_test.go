package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/agromind-service/internal/adapter/http"
	"github.com/couchcryptid/agromind-service/internal/domain"
	"github.com/couchcryptid/agromind-service/internal/recommend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockRecommender struct {
	got domain.RecommendationRequest
	rec domain.Recommendation
	err error
}

func (m *mockRecommender) Recommend(_ context.Context, req domain.RecommendationRequest) (domain.Recommendation, error) {
	m.got = req
	return m.rec, m.err
}

type mockHistory struct {
	limit int
	recs  []domain.Recommendation
	err   error
}

func (m *mockHistory) Recent(_ context.Context, limit int) ([]domain.Recommendation, error) {
	m.limit = limit
	return m.recs, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockRecommender{}, &mockReadiness{err: readyErr}, nil, time.Second, discardLogger())
}

func sampleRecommendation() domain.Recommendation {
	return domain.Recommendation{
		ID:              "0f8fad5b-d9cb-469f-a165-70867728950e",
		Location:        "Ankara, Türkiye",
		Latitude:        39.93,
		Longitude:       32.85,
		SoilType:        domain.SoilLoamy,
		TextureClass:    domain.TextureClayLoam,
		RecommendedCrop: "Wheat",
		Confidence:      0.55,
		Alternatives:    []domain.CropScore{{Crop: "Barley", Probability: 0.2}},
		TargetMonth:     7,
		Soil:            domain.SoilProfile{PH: 6.5, Nitrogen: 2.5, Phosphorus: 20, Potassium: 200, Clay: 31.2, Sand: 28.8, Silt: 40},
		Climate:         domain.ClimateProfile{Temperature: 23.09, Humidity: 92.47, Month: 7, YearsUsed: 25},
		DefaultsUsed:    []string{},
		CreatedAt:       time.Date(2025, 9, 14, 9, 30, 0, 0, time.UTC),
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRootReturnsWelcome(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the AgroMind Crop Recommendation API!", decode(t, rec)["message"])
}

func TestHealthReturnsOK(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "AgroMind API is running smoothly.", body["message"])
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("no model loaded"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no model loaded", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPredictReturnsRecommendation(t *testing.T) {
	m := &mockRecommender{rec: sampleRecommendation()}
	srv := httpadapter.NewServer(":0", m, &mockReadiness{}, nil, time.Second, discardLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"lat": 39.93, "lon": 32.85, "month": 7}`))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NotNil(t, m.got.Lat)
	assert.Equal(t, 39.93, *m.got.Lat)
	assert.Equal(t, 32.85, *m.got.Lon)
	assert.Equal(t, 7, m.got.Month)

	body := decode(t, rec)
	for _, key := range []string{
		"id", "location", "latitude", "longitude", "soil_type", "texture_class",
		"recommended_crop", "confidence", "alternatives", "target_month", "soil",
		"climate", "defaults_used", "created_at",
	} {
		assert.Contains(t, body, key)
	}
	assert.Equal(t, "Wheat", body["recommended_crop"])
	assert.Equal(t, "Loamy", body["soil_type"])
	assert.Equal(t, "2025-09-14T09:30:00Z", body["created_at"])
	assert.Equal(t, []any{}, body["defaults_used"])
	soil := body["soil"].(map[string]any)
	assert.InDelta(t, 6.5, soil["ph"], 1e-9)
	assert.InDelta(t, 200, soil["k"], 1e-9)
}

func TestPredictOpenSea(t *testing.T) {
	r := sampleRecommendation()
	r.Location = "Unknown City, Unknown Country"
	r.Latitude, r.Longitude = 0, -30
	m := &mockRecommender{rec: r}
	srv := httpadapter.NewServer(":0", m, &mockReadiness{}, nil, time.Second, discardLogger())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"lat": 0, "lon": -30}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Unknown City, Unknown Country", body["location"])
	assert.Equal(t, "Wheat", body["recommended_crop"])
}

func TestPredictErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "malformed body",
			body:       `{"lat": `,
			wantStatus: http.StatusBadRequest,
			wantDetail: "invalid request body",
		},
		{
			name:       "wrong type",
			body:       `{"lat": "north", "lon": 1}`,
			wantStatus: http.StatusBadRequest,
			wantDetail: "invalid request body",
		},
		{
			name:       "validation",
			body:       `{"lon": 1}`,
			err:        fmt.Errorf("%w: lat is required", domain.ErrInvalidRequest),
			wantStatus: http.StatusBadRequest,
			wantDetail: "lat is required",
		},
		{
			name:       "geocoder unavailable",
			body:       `{"lat": 39.93, "lon": 32.85}`,
			err:        domain.ErrUnknownLocation,
			wantStatus: http.StatusBadRequest,
			wantDetail: "Location not found or invalid coordinates.",
		},
		{
			name:       "not ready",
			body:       `{"lat": 1, "lon": 1}`,
			err:        recommend.ErrNotReady,
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: "no model loaded",
		},
		{
			name:       "internal",
			body:       `{"lat": 1, "lon": 1}`,
			err:        errors.New("classify: got 6 features, want 7"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Prediction error: classify: got 6 features, want 7",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockRecommender{err: tt.err}
			srv := httpadapter.NewServer(":0", m, &mockReadiness{}, nil, time.Second, discardLogger())

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, decode(t, rec)["detail"], tt.wantDetail)
		})
	}
}

func TestPredictRejectsGet(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predict", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHistoryNotRoutedWithoutStore(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistory(t *testing.T) {
	h := &mockHistory{recs: []domain.Recommendation{sampleRecommendation()}}
	srv := httpadapter.NewServer(":0", &mockRecommender{}, &mockReadiness{}, h, time.Second, discardLogger())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, h.limit)
	recs := decode(t, rec)["recommendations"].([]any)
	require.Len(t, recs, 1)
	assert.Equal(t, "Wheat", recs[0].(map[string]any)["recommended_crop"])
}

func TestHistoryLimit(t *testing.T) {
	tests := []struct {
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"?limit=5", http.StatusOK, 5},
		{"?limit=100", http.StatusOK, 100},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=101", http.StatusBadRequest, 0},
		{"?limit=ten", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			h := &mockHistory{}
			srv := httpadapter.NewServer(":0", &mockRecommender{}, &mockReadiness{}, h, time.Second, discardLogger())

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLimit, h.limit)
		})
	}
}

func TestHistoryEmptyIsArray(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockRecommender{}, &mockReadiness{}, &mockHistory{}, time.Second, discardLogger())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"recommendations":[]}`, rec.Body.String())
}

func TestHistoryStoreError(t *testing.T) {
	h := &mockHistory{err: errors.New("database is locked")}
	srv := httpadapter.NewServer(":0", &mockRecommender{}, &mockReadiness{}, h, time.Second, discardLogger())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "database is locked")
}
