package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/platewise/engine/internal/application/criteria"
	"github.com/platewise/engine/internal/application/recommend"
	"github.com/platewise/engine/internal/domain/recommendation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Engine metrics
	extractionsTotal      *prometheus.CounterVec
	extractionDuration    prometheus.Histogram
	recommendationsServed *prometheus.CounterVec
	coldStartsTotal       prometheus.Counter

	// Storage metrics
	dbQueryDuration *prometheus.HistogramVec
}

var (
	_ criteria.Observer  = (*MetricsCollector)(nil)
	_ recommend.Observer = (*MetricsCollector)(nil)
)

// NewMetricsCollector creates a collector on its own registry, with the Go
// runtime and process collectors registered
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &MetricsCollector{
		logger:   logger.Named("metrics"),
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		extractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "criteria_extractions_total",
				Help: "Criteria extractions by outcome",
			},
			[]string{"outcome"},
		),
		extractionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "criteria_extraction_duration_seconds",
				Help:    "Criteria extraction duration in seconds, retries included",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
		),
		recommendationsServed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recommendations_served_total",
				Help: "Recommendations returned to callers by strategy type",
			},
			[]string{"type"},
		),
		coldStartsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "recommendation_cold_starts_total",
				Help: "Recommendation requests served without order history",
			},
		),

		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Catalog and order history query duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"table", "status"},
		),
	}
}

// Registry exposes the underlying registry
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GinMiddleware records request counts and latencies by route template
func (m *MetricsCollector) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// RecordHTTPRequest records one served request
func (m *MetricsCollector) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ObserveExtraction implements criteria.Observer
func (m *MetricsCollector) ObserveExtraction(outcome criteria.Outcome, d time.Duration) {
	m.extractionsTotal.WithLabelValues(string(outcome)).Inc()
	m.extractionDuration.Observe(d.Seconds())
}

// ObserveRecommendations implements recommend.Observer
func (m *MetricsCollector) ObserveRecommendations(recs []recommendation.Recommendation, coldStart bool) {
	if coldStart {
		m.coldStartsTotal.Inc()
	}
	for _, r := range recs {
		m.recommendationsServed.WithLabelValues(string(r.Type)).Inc()
	}
}

// ObserveQuery records one database query; matches the query monitor hook
func (m *MetricsCollector) ObserveQuery(table string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(table, status).Observe(d.Seconds())
}
