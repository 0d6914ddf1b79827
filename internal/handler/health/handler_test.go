package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medscan/medscan-api/internal/handler"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(&r.RouterGroup)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLiveness(t *testing.T) {
	w := serve(NewHandler(), "/health/live")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadiness(t *testing.T) {
	breaker := Check{Name: "ai", Run: func(context.Context) (string, error) { return "closed", nil }}
	redis := Check{Name: "redis", Run: func(context.Context) (string, error) { return "", errors.New("connection refused") }}

	w := serve(NewHandler(breaker), "/health/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, map[string]interface{}{"ai": "closed"}, resp.Data)

	w = serve(NewHandler(breaker, redis), "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp = handler.Response{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, map[string]interface{}{"ai": "closed", "redis": "connection refused"}, resp.Data)
}
