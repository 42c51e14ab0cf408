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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/cache"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/config"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/db"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/httpapi"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/platforms"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/runner"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/tracing"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("Service failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := tracing.Initialize(cfg.Tracing, logger); err != nil {
		logger.Warn("Tracing disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	client, err := db.NewClient(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close()

	if err := client.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	sessions := db.NewSessionStore(client.Wrapper(), logger)
	responses := db.NewResponseStore(client.Wrapper(), logger)

	// Sessions stranded in running by a previous process cannot resume.
	if n, err := sessions.SweepStaleRunning(ctx); err != nil {
		logger.Warn("Stale session sweep failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("Marked stale running sessions as errored", zap.Int64("count", n))
	}

	var analysisCache *cache.AnalysisCache
	if cfg.Redis.Enabled {
		analysisCache, err = cache.New(ctx, cfg.Redis.Addr, time.Duration(cfg.Redis.TTLSecs)*time.Second, logger)
		if err != nil {
			logger.Warn("Analysis cache unavailable, continuing without it", zap.Error(err))
		}
	}
	defer analysisCache.Close()

	registry := platforms.NewRegistry(logger)
	auditRunner := runner.New(sessions, responses, registry, logger)
	supervisor := runner.NewSupervisor(auditRunner, logger)

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("Metrics server listening", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	apiServer := httpapi.NewServer(cfg.Server.Port, httpapi.NewRouter(httpapi.Deps{
		Sessions:     sessions,
		Responses:    responses,
		Cache:        analysisCache,
		Supervisor:   supervisor,
		DB:           client.Wrapper(),
		MaxQuestions: cfg.MaxQuestions,
		Logger:       logger,
	}))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API server listening", zap.Int("port", cfg.Server.Port))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	}

	grace := time.Duration(cfg.Server.ShutdownGraceSecs) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("API server shutdown incomplete", zap.Error(err))
	}
	_ = metricsServer.Shutdown(shutdownCtx)

	// In-flight audits get the remaining grace period; anything still
	// running is swept to errored on next startup.
	supervisor.Shutdown(shutdownCtx)

	logger.Info("Shutdown complete")
	return nil
}
