package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agromind"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	Recommendations        *prometheus.CounterVec // labels: outcome={success,invalid,unknown_location,error}
	RecommendationDuration prometheus.Histogram

	// Upstream API metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: source={soil,climate,geocode}, outcome={success,error,empty}
	UpstreamDuration *prometheus.HistogramVec // labels: source
	CacheLookups     *prometheus.CounterVec   // labels: source, result={hit,miss}

	DefaultsApplied *prometheus.CounterVec // labels: field
	RecorderErrors  *prometheus.CounterVec // labels: recorder={history,kafka}
	ModelClasses    prometheus.Gauge
	GeocoderEnabled prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		Recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by outcome.",
		}, []string{"outcome"}),
		RecommendationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_duration_seconds",
			Help:      "Duration of a complete recommendation, upstream calls included.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by source and outcome.",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Upstream cache lookups by source and result.",
		}, []string{"source", "result"}),
		DefaultsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "defaults_applied_total",
			Help:      "Feature values replaced by their default, by field.",
		}, []string{"field"}),
		RecorderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recorder_errors_total",
			Help:      "Failures to record a recommendation, by recorder.",
		}, []string{"recorder"}),
		ModelClasses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_classes",
			Help:      "Number of crops the loaded model can recommend.",
		}),
		GeocoderEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocoder_enabled",
			Help:      "1 when the location check is enabled, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Recommendations,
		m.RecommendationDuration,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.CacheLookups,
		m.DefaultsApplied,
		m.RecorderErrors,
		m.ModelClasses,
		m.GeocoderEnabled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
