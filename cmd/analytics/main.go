package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/incident-analytics/internal/adapter/httpapi"
	"github.com/couchcryptid/incident-analytics/internal/analytics"
	"github.com/couchcryptid/incident-analytics/internal/config"
	"github.com/couchcryptid/incident-analytics/internal/dataset"
	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	loader := dataset.NewCSVLoader(cfg.FetchTimeout, cfg.FetchMaxRetries, logger, metrics)
	cache := dataset.NewCache(loader, cfg.CacheMaxEntries, logger, metrics)
	svc := analytics.NewService(cache, analytics.ServiceConfig{
		Source:       cfg.SourceURL,
		GeoSampleMax: cfg.GeoSampleMax,
		TopDistricts: cfg.TopDistricts,
		TopTypes:     cfg.TopTypes,
	}, logger, metrics)

	defaultRange := domain.YearRange{Min: cfg.MinYear, Max: cfg.MaxYear}
	srv := httpapi.NewServer(cfg.HTTPAddr, svc, defaultRange, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Warm the dataset in the background so /readyz flips without blocking
	// startup; the first query triggers the load anyway if this fails.
	go func() {
		if err := svc.Warm(ctx); err != nil {
			logger.Error("dataset warm-up failed", "source", cfg.SourceURL, "error", err)
		}
	}()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
