package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/medscan/medscan-api/internal/handler"
	extractionhandler "github.com/medscan/medscan-api/internal/handler/extraction"
	"github.com/medscan/medscan-api/internal/handler/health"
	"github.com/medscan/medscan-api/internal/middleware"
	"github.com/medscan/medscan-api/internal/service/extraction"
	"github.com/medscan/medscan-api/pkg/metrics"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	m := metrics.New("medscan", reg)

	r := NewRouter(
		extractionhandler.NewHandler(extraction.NewService(nil, nil, extraction.WithMetrics(m))),
		health.NewHandler(),
		handler.NewHandler(reg),
		RouterConfig{
			RateLimit:    100,
			RateBurst:    100,
			MaxBodyBytes: 1 << 20,
			CORSConfig:   middleware.DefaultCORSConfig(),
			Metrics:      m,
			Logger:       zerolog.Nop(),
		},
	)
	r.Setup()
	return r.Engine()
}

func TestRoutes(t *testing.T) {
	engine := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodGet, "/health/ready", "", http.StatusOK},
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodPost, "/api/v1/extract-text", "RESULTADOS\nGlucosa 90 mg/dL", http.StatusOK},
		{http.MethodPost, "/api/v1/extract", `{"text":"Glucosa: 90 mg/dL"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		if strings.HasPrefix(tt.body, "{") {
			req.Header.Set("Content-Type", "application/json")
		}
		engine.ServeHTTP(w, req)

		assert.Equal(t, tt.status, w.Code, tt.path)
		assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID), tt.path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	engine := newTestRouter(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/extract-text", strings.NewReader("Glucosa 90 mg/dL")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `medscan_extraction_reports_total{source="rules"} 1`)
	assert.Contains(t, w.Body.String(), `medscan_http_requests_total`)
}
