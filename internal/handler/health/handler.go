package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medscan/medscan-api/internal/handler"
)

const checkTimeout = 2 * time.Second

// Check reports the state of one dependency. A non-nil error marks the service not ready.
type Check struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

type Handler struct {
	checks []Check
}

func NewHandler(checks ...Check) *Handler {
	return &Handler{
		checks: checks,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("", h.LivenessCheck)
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "healthy"}))
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		state, err := check.Run(ctx)
		if err != nil {
			status = http.StatusServiceUnavailable
			state = err.Error()
		}
		results[check.Name] = state
	}

	if status != http.StatusOK {
		c.JSON(status, handler.NewErrorResponse("not ready", results))
		return
	}
	c.JSON(status, handler.NewSuccessResponse(results))
}
