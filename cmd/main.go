package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/duynhne/imagegen-service/config"
	"github.com/duynhne/imagegen-service/internal/core/repository"
	"github.com/duynhne/imagegen-service/internal/core/supabase"
	"github.com/duynhne/imagegen-service/internal/images"
	"github.com/duynhne/imagegen-service/internal/logger"
	logicv1 "github.com/duynhne/imagegen-service/internal/logic/v1"
	"github.com/duynhne/imagegen-service/internal/replicate"
	webv1 "github.com/duynhne/imagegen-service/internal/web/v1"
	"github.com/duynhne/imagegen-service/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		panic("Configuration validation failed: " + err.Error())
	}

	// Initialize Zerolog with LOG_LEVEL from config
	logger.Setup(cfg.Logging.Level)

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Str("port", cfg.Service.Port).
		Msg("Service starting")

	// Initialize OpenTelemetry tracing
	var tp interface{ Shutdown(context.Context) error }
	var err error
	if cfg.Tracing.Enabled {
		tp, err = middleware.InitTracing(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing")
		} else {
			log.Info().
				Str("endpoint", cfg.Tracing.Endpoint).
				Float64("sample_rate", cfg.Tracing.SampleRate).
				Msg("Tracing initialized")
		}
	} else {
		log.Info().Msg("Tracing disabled (TRACING_ENABLED=false)")
	}

	// Initialize Pyroscope profiling
	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg.Service.Name, cfg.Profiling.Endpoint); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize profiling")
		} else {
			log.Info().
				Str("endpoint", cfg.Profiling.Endpoint).
				Msg("Profiling initialized")
			defer middleware.StopProfiling()
		}
	} else {
		log.Info().Msg("Profiling disabled (PROFILING_ENABLED=false)")
	}

	// Record-store client (Supabase REST)
	store, err := supabase.New(supabase.Config{
		URL:    cfg.Supabase.URL,
		APIKey: cfg.Supabase.Key,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create record-store client")
	}
	log.Info().Msg("Record-store client ready")

	// Generation-service client (Replicate predictions)
	generator, err := replicate.New(replicate.Config{
		BaseURL:        cfg.Replicate.BaseURL,
		Token:          cfg.Replicate.Token,
		ModelVersion:   cfg.Replicate.ModelVersion,
		InferenceSteps: cfg.Replicate.InferenceSteps,
		GuidanceScale:  cfg.Replicate.GuidanceScale,
		NegativePrompt: cfg.Replicate.NegativePrompt,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create generation-service client")
	}
	log.Info().Str("model_version", cfg.Replicate.ModelVersion).Msg("Generation-service client ready")

	// Wire repositories, collaborators and business logic
	studio := logicv1.NewStudioService(
		repository.NewUserRepository(store),
		repository.NewGenerationRepository(store),
		repository.NewSessionStore(),
		generator,
		images.NewFetcher(nil),
	)
	handler := webv1.NewHandler(studio)

	r := gin.Default()

	var isShuttingDown atomic.Bool

	// Tracing middleware
	r.Use(middleware.TracingMiddleware(cfg.Service.Name))

	// Logging middleware
	r.Use(middleware.LoggingMiddleware())

	// Prometheus middleware
	r.Use(middleware.PrometheusMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Readiness check
	// Returns 503 once shutdown has started, to drain traffic before HTTP shutdown.
	r.GET("/ready", func(c *gin.Context) {
		if isShuttingDown.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (canonical API - frontend-aligned)
	apiV1 := r.Group("/api/v1")
	handler.RegisterRoutes(apiV1)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Service.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Service.Port).Msg("Starting imagegen service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	// Fail readiness first and wait for propagation (best practice for K8s rollout).
	isShuttingDown.Store(true)
	drainDelay := cfg.GetReadinessDrainDelayDuration()
	if drainDelay > 0 {
		log.Info().Dur("delay", drainDelay).Msg("Readiness drain delay started")
		time.Sleep(drainDelay)
		log.Info().Dur("delay", drainDelay).Msg("Readiness drain delay completed")
	}

	// Shutdown context with configurable timeout
	shutdownTimeout := cfg.GetShutdownTimeoutDuration()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info().Dur("timeout", shutdownTimeout).Msg("Shutting down server...")

	// 1. Shutdown HTTP server; in-flight generations either finish and are
	// discarded or are cancelled with their request contexts.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		log.Info().Msg("HTTP server shutdown complete")
	}

	// 2. Shutdown tracer
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Tracer shutdown error")
		} else {
			log.Info().Msg("Tracer shutdown complete")
		}
	}

	log.Info().Msg("Graceful shutdown complete")
}
