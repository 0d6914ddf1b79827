package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/medscan/medscan-api/internal/ai"
	"github.com/medscan/medscan-api/internal/cache"
	"github.com/medscan/medscan-api/internal/config"
	"github.com/medscan/medscan-api/internal/extraction"
	"github.com/medscan/medscan-api/internal/handler"
	extractionHandler "github.com/medscan/medscan-api/internal/handler/extraction"
	"github.com/medscan/medscan-api/internal/handler/health"
	"github.com/medscan/medscan-api/internal/middleware"
	"github.com/medscan/medscan-api/internal/router"
	extractionService "github.com/medscan/medscan-api/internal/service/extraction"
	"github.com/medscan/medscan-api/pkg/logger"
	"github.com/medscan/medscan-api/pkg/messaging"
	"github.com/medscan/medscan-api/pkg/messaging/redis"
	"github.com/medscan/medscan-api/pkg/metrics"
	"github.com/medscan/medscan-api/pkg/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Setup(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	gin.SetMode(gin.ReleaseMode)

	// Metrics
	var (
		m   *metrics.Metrics
		reg *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(cfg.Metrics.Namespace, reg)
	}

	// Report cache
	cacheOpts := []cache.Option{}
	if m != nil {
		cacheOpts = append(cacheOpts, cache.WithObserver(m.CacheObserver()))
	}
	reportCache := cache.New(cfg.Cache.ToCacheConfig(), cacheOpts...)

	// Extraction service
	svcOpts := []extractionService.Option{
		extractionService.WithTimeout(cfg.AI.Timeout),
		extractionService.WithMinEntityScore(cfg.AI.MinScore),
		extractionService.WithLogger(log.With().Str("component", "extraction").Logger()),
	}
	if m != nil {
		svcOpts = append(svcOpts, extractionService.WithMetrics(m))
	}

	checks := []health.Check{}

	if cfg.AI.Enabled {
		aiOpts := []ai.Option{ai.WithLogger(log.With().Str("component", "ai").Logger())}
		if m != nil {
			aiOpts = append(aiOpts, ai.WithMetrics(m))
		}
		aiClient := ai.NewClient(cfg.AI.ToClientConfig(), aiOpts...)
		svcOpts = append(svcOpts, extractionService.WithExtractor(aiClient))

		checks = append(checks, health.Check{
			Name: "ai",
			Run: func(context.Context) (string, error) {
				return string(aiClient.BreakerState()), nil
			},
		})

		checkAI(aiClient, log)
	} else {
		log.Warn().Msg("ai extractor disabled, all reports use rule-based parsing")
	}

	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), log)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()

		dispatcher := worker.NewDispatcher(
			messaging.NewChannelPublisher(broker, cfg.Redis.Channel),
			worker.DefaultDispatcherConfig(),
			log,
			m,
		)
		dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
		dispatcher.Start(dispatcherCtx)
		defer dispatcher.Wait()
		defer stopDispatcher()

		svcOpts = append(svcOpts, extractionService.WithPublisher(dispatcher))
		checks = append(checks, health.Check{
			Name: "redis",
			Run: func(ctx context.Context) (string, error) {
				if err := broker.Ping(ctx); err != nil {
					return "", err
				}
				return "up", nil
			},
		})
	}

	svc := extractionService.NewService(reportCache, extraction.NewParser(extraction.DefaultLibrary()), svcOpts...)

	// Setup router
	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	}

	var gatherer prometheus.Gatherer
	if reg != nil {
		gatherer = reg
	}

	r := router.NewRouter(
		extractionHandler.NewHandler(svc),
		health.NewHandler(checks...),
		handler.NewHandler(gatherer),
		router.RouterConfig{
			RateLimit:      rate.Limit(cfg.Server.RateLimit),
			RateBurst:      cfg.Server.RateBurst,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			RequestTimeout: cfg.Server.RequestTimeout,
			CORSConfig:     corsConfig,
			Metrics:        m,
			Logger:         log,
		},
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

// checkAI logs whether the inference endpoint answers. Failure is not fatal:
// requests fall back to rule-based parsing.
func checkAI(client *ai.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Check(ctx); err != nil {
		log.Warn().Err(err).Msg("ai extractor not reachable at startup")
		return
	}
	log.Info().Msg("ai extractor reachable")
}
