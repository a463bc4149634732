// Package main is the entry point for the comfybridge worker.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"comfybridge/internal/api"
	"comfybridge/internal/collect"
	"comfybridge/internal/config"
	"comfybridge/internal/engine"
	"comfybridge/internal/jobs"
	"comfybridge/internal/monitor"
	"comfybridge/internal/runstore"
	"comfybridge/internal/tracing"
	"comfybridge/internal/upload"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	logger.Info("starting worker",
		slog.String("port", cfg.Port),
		slog.String("engine", cfg.ComfyHost),
		slog.String("monitor_mode", cfg.MonitorMode),
	)

	// Initialize tracing
	ctx := context.Background()
	tracer, err := tracing.Init(ctx, &tracing.Config{
		ServiceName:    "comfybridge-worker",
		ServiceVersion: "1.0.0",
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TraceSampleRate,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Initialize the job record store
	var store runstore.Store
	switch cfg.StoreType {
	case "redis":
		redisStore, err := runstore.NewRedisStore(&runstore.RedisConfig{
			URL:      cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "jobs",
			TTL:      cfg.StoreTTL,
		})
		if err != nil {
			logger.Error("failed to connect to Redis, falling back to memory store", "error", err)
			store = runstore.NewMemoryStore(&runstore.Config{
				MaxRecords: cfg.StoreMaxRecords,
				TTLSeconds: int64(cfg.StoreTTL.Seconds()),
			})
		} else {
			store = redisStore
			logger.Info("using Redis job store", slog.String("url", cfg.RedisURL))
		}
	default:
		store = runstore.NewMemoryStore(&runstore.Config{
			MaxRecords: cfg.StoreMaxRecords,
			TTLSeconds: int64(cfg.StoreTTL.Seconds()),
		})
		logger.Info("using in-memory job store")
	}
	defer store.Close()

	// Engine client and process supervisor
	client := engine.NewClient(cfg.ComfyHost, logger)
	supervisor := engine.NewSupervisor(engine.SupervisorConfig{
		Dir:           cfg.ComfyDir,
		PythonBin:     cfg.PythonBin,
		Host:          cfg.ComfyHost,
		Managed:       cfg.ManagedEngine,
		ProbeAttempts: cfg.ProbeAttempts,
		ProbeInterval: cfg.ProbeInterval,
	}, client, logger)
	defer supervisor.Stop()

	// Artifact uploader; without a bucket, artifacts are returned inline
	var uploader upload.Uploader
	if cfg.BucketEndpointURL != "" && cfg.BucketName != "" {
		s3Uploader, err := upload.NewS3Uploader(&upload.S3Config{
			Endpoint:        cfg.BucketEndpointURL,
			Bucket:          cfg.BucketName,
			Region:          cfg.BucketRegion,
			AccessKeyID:     cfg.BucketAccessKey,
			SecretAccessKey: cfg.BucketSecretKey,
			UseSSL:          cfg.BucketUseSSL,
			Prefix:          cfg.BucketPrefix,
			PresignExpiry:   cfg.PresignExpiry,
		})
		if err != nil {
			logger.Error("failed to create S3 uploader", "error", err)
			os.Exit(1)
		}
		uploader = s3Uploader
		logger.Info("artifacts will be uploaded",
			slog.String("endpoint", cfg.BucketEndpointURL),
			slog.String("bucket", cfg.BucketName),
		)
	} else {
		logger.Info("artifacts will be returned as base64")
	}

	// Monitoring strategy, selected once at startup
	var mon monitor.Monitor
	switch cfg.MonitorMode {
	case config.MonitorModePoll:
		mon = monitor.NewPollMonitor(client, monitor.PollConfig{
			Timeout:  cfg.PollTimeout,
			Interval: cfg.PollInterval,
			Logger:   logger,
		})
	default:
		mon = monitor.NewStreamMonitor(monitor.StreamConfig{
			Host:              cfg.ComfyHost,
			ReconnectAttempts: cfg.WSReconnectTries,
			ReconnectDelay:    cfg.WSReconnectDelay,
			HandshakeTimeout:  cfg.WSHandshakeTimeout,
			Logger:            logger,
		})
	}

	// Optional strict workflow pre-validation
	var schema *jobs.WorkflowSchema
	if cfg.StrictWorkflowSchema {
		schema, err = jobs.NewWorkflowSchema()
		if err != nil {
			logger.Error("failed to compile workflow schema", "error", err)
			os.Exit(1)
		}
		logger.Info("strict workflow validation enabled")
	}

	orchestrator := jobs.New(jobs.Config{
		Engine:        client,
		Runner:        supervisor,
		Monitor:       mon,
		Collector:     collect.New(client, uploader, logger),
		Store:         store,
		Schema:        schema,
		ProbeAttempts: cfg.ProbeAttempts,
		ProbeInterval: cfg.ProbeInterval,
		Logger:        logger,
	})

	// HTTP surface
	handlers := api.NewHandlers(api.HandlersConfig{
		Orchestrator:   orchestrator,
		Engine:         client,
		Store:          store,
		Logger:         logger,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(handlers),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
