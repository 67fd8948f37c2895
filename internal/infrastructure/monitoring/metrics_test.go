package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/platewise/engine/internal/application/criteria"
	"github.com/platewise/engine/internal/domain/recommendation"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMetricsCollector_Observers(t *testing.T) {
	m := NewMetricsCollector(zaptest.NewLogger(t))

	m.ObserveExtraction(criteria.OutcomeOK, 20*time.Millisecond)
	m.ObserveExtraction(criteria.OutcomeDegraded, time.Second)
	m.ObserveExtraction(criteria.OutcomeDegraded, time.Second)
	m.ObserveRecommendations([]recommendation.Recommendation{
		{Type: recommendation.Popular},
		{Type: recommendation.Popular},
	}, true)
	m.ObserveRecommendations([]recommendation.Recommendation{{Type: recommendation.Frequent}}, false)
	m.ObserveQuery("food_items", time.Millisecond, nil)
	m.ObserveQuery("orders", time.Millisecond, errors.New("down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.extractionsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.extractionsTotal.WithLabelValues("degraded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.recommendationsServed.WithLabelValues("popular")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recommendationsServed.WithLabelValues("frequent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.coldStartsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(m.dbQueryDuration))
}

func TestMetricsCollector_GinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetricsCollector(zaptest.NewLogger(t))
	router := gin.New()
	router.Use(m.GinMiddleware())
	router.GET("/api/v1/recommendations/:strategy", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/popular", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/recommendations/:strategy", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "http_requests_total"))
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}

func TestTracingProvider_Disabled(t *testing.T) {
	tp, err := NewTracingProvider(context.Background(), TracingConfig{}, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.False(t, tp.Enabled())
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestMeterProvider_ExportsThroughRegistry(t *testing.T) {
	m := NewMetricsCollector(zaptest.NewLogger(t))
	mp, err := NewMeterProvider(m, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	counter, err := mp.provider.Meter("platewise-test").Int64Counter("upstream_calls")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream_calls_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNewTraceClient_Protocol(t *testing.T) {
	grpcClient := newTraceClient(TracingConfig{Protocol: "grpc", OTLPEndpoint: "collector:4317", Insecure: true})
	httpClient := newTraceClient(TracingConfig{Protocol: "http", OTLPEndpoint: "collector:4318"})
	assert.NotNil(t, grpcClient)
	assert.NotNil(t, httpClient)
	assert.NotEqual(t, fmt.Sprintf("%T", grpcClient), fmt.Sprintf("%T", httpClient))
}
