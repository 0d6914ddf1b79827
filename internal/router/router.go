package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/medscan/medscan-api/internal/handler"
	"github.com/medscan/medscan-api/internal/middleware"
	"github.com/medscan/medscan-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine   *gin.Engine
	extractH Handler
	healthH  Handler
	h        *handler.Handler
	config   RouterConfig
}

type RouterConfig struct {
	RateLimit      rate.Limit
	RateBurst      int
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	CORSConfig     middleware.CORSConfig
	// Metrics enables request metrics and the /metrics endpoint when set.
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

func NewRouter(extractH, healthH Handler, h *handler.Handler, config RouterConfig) *Router {
	engine := gin.New()

	r := &Router{
		engine:   engine,
		extractH: extractH,
		healthH:  healthH,
		h:        h,
		config:   config,
	}

	// Core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(config.Logger),
		middleware.Logger(config.Logger),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
	)
	if config.Metrics != nil {
		engine.Use(middleware.Metrics(config.Metrics))
	}
	engine.Use(middleware.ErrorHandler())

	return r
}

func (r *Router) Setup() {
	r.healthH.RegisterRoutes(&r.engine.RouterGroup)
	if r.config.Metrics != nil {
		r.engine.GET("/metrics", r.h.MetricsHandler())
	}

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  r.config.RateLimit,
		Burst: r.config.RateBurst,
	})

	api := r.engine.Group("/api/v1")
	api.Use(
		rateLimiter.RateLimit(),
		middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: r.config.MaxBodyBytes}),
		middleware.Timeout(middleware.TimeoutConfig{Duration: r.config.RequestTimeout}),
	)
	r.healthH.RegisterRoutes(api)
	r.extractH.RegisterRoutes(api)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
