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

	"github.com/duynhne/warehouse-user-service/config"
	"github.com/duynhne/warehouse-user-service/internal/core/repository"
	"github.com/duynhne/warehouse-user-service/internal/core/secrets"
	"github.com/duynhne/warehouse-user-service/internal/core/warehouse"
	"github.com/duynhne/warehouse-user-service/internal/logging"
	logicv1 "github.com/duynhne/warehouse-user-service/internal/logic/v1"
	v1 "github.com/duynhne/warehouse-user-service/internal/web/v1"
	"github.com/duynhne/warehouse-user-service/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		panic("Configuration validation failed: " + err.Error())
	}

	// Initialize Zerolog with LOG_LEVEL / LOG_FORMAT from config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Str("port", cfg.Service.Port).
		Str("warehouse_driver", cfg.Warehouse.Driver).
		Str("secrets_backend", cfg.Secrets.Backend).
		Msg("Service starting")

	// Initialize OpenTelemetry tracing
	var tp interface{ Shutdown(context.Context) error }
	if cfg.Tracing.Enabled {
		if tracerProvider, err := middleware.InitTracing(cfg); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing")
		} else {
			tp = tracerProvider
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
		if err := middleware.InitProfiling(cfg); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize profiling")
		} else {
			log.Info().
				Str("endpoint", cfg.Profiling.Endpoint).
				Msg("Profiling initialized")
			defer func() {
				if err := middleware.StopProfiling(); err != nil {
					log.Warn().Err(err).Msg("Profiler shutdown error")
				} else {
					log.Info().Msg("Profiler shutdown complete")
				}
			}()
		}
	} else {
		log.Info().Msg("Profiling disabled (PROFILING_ENABLED=false)")
	}

	// Secret store holding the warehouse credentials. Nothing is fetched until
	// the first request that needs a connection.
	var store secrets.Store
	switch cfg.Secrets.Backend {
	case config.SecretsBackendAWS:
		awsStore, err := secrets.NewAWSStoreFromRegion(context.Background(), cfg.Secrets.Region)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create secrets manager client")
		}
		store = awsStore
	default:
		store = secrets.NewEnvStore(cfg.Warehouse.Static)
	}

	var dialer warehouse.Dialer
	switch cfg.Warehouse.Driver {
	case config.DriverPostgres:
		dialer = warehouse.NewPgxDialer()
	default:
		dialer = warehouse.NewSnowflakeDialer(cfg.GetWarehouseLoginTimeoutDuration())
	}

	provider := warehouse.NewProvider(store, cfg.Secrets.SecretName, dialer)
	log.Info().Str("secret_name", cfg.Secrets.SecretName).Msg("Warehouse connection provider ready")

	handler := v1.NewHandler(
		logicv1.NewUserService(repository.NewUserRepository(provider)),
		logicv1.NewQueryService(repository.NewQueryRunner(provider)),
		cfg.Service.Version,
	)

	r := gin.Default()

	var isShuttingDown atomic.Bool

	// Tracing middleware
	r.Use(middleware.TracingMiddleware())

	// Logging middleware
	r.Use(middleware.LoggingMiddleware())

	// Prometheus middleware
	r.Use(middleware.PrometheusMiddleware())

	// Health checks (liveness + warehouse round trip)
	handler.RegisterHealthRoutes(r)

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

	// API v1
	handler.RegisterRoutes(r.Group("/api/v1"))

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Service.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Service.Port).Msg("Starting warehouse user service")
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

	// Fail readiness first and wait for propagation.
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

	// 1. Shutdown HTTP server. In-flight requests close their own warehouse
	// connections, so there is no pool to drain afterwards.
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
