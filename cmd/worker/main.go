// Command worker runs the I/O-performing side of the ingestion pipeline
// standalone: the feed parser, feed finder, content fetcher and image
// prober, wired onto their own in-process bus. Because messaging.Bus has no
// distributed implementation in this repository, a standalone worker
// process has nothing feeding it messages from a separate harbor process —
// cmd/harbor wires both sides onto one shared bus for a runnable
// deployment. This binary is kept as the worker process class's own
// entrypoint, ready to be pointed at a shared bus once a distributed one
// exists.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rssant/internal/domain/imageproc"
	"rssant/internal/infra/fetcher"
	"rssant/internal/infra/scraper"
	workerPkg "rssant/internal/infra/worker"
	"rssant/internal/messaging"
	"rssant/internal/usecase/worker"
	"rssant/pkg/config"
)

func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if config.GetEnvString("LOG_LEVEL", "info") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// createHTTPClient builds the client used for feed parsing/discovery and
// image probing. Content fetching gets its own client, scoped by
// ContentFetchConfig's SSRF guard.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

func main() {
	logger := initLogger()

	metrics := workerPkg.NewMetrics()
	metrics.MustRegister()
	cfg, err := workerPkg.LoadConfigFromEnv(logger, metrics)
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.Int("bus_max_concurrent", cfg.BusMaxConcurrent),
		slog.Duration("probe_timeout", cfg.ProbeTimeout),
		slog.Int("health_port", cfg.HealthPort))

	httpClient := createHTTPClient()
	contentFetchConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("failed to load content fetch configuration, using defaults", slog.Any("error", err))
		contentFetchConfig = fetcher.DefaultConfig()
	}

	bus := messaging.NewInProcessBus(cfg.BusMaxConcurrent)

	w := worker.New(worker.Deps{
		FeedParser:     scraper.NewFeedParser(httpClient),
		FeedFinder:     scraper.NewFeedFinder(httpClient),
		ContentFetcher: fetcher.NewReadabilityFetcher(contentFetchConfig),
		Prober:         imageproc.NewProber(httpClient, contentFetchConfig.Parallelism),
		Bus:            bus,
		Logger:         logger,
		ProbeTimeout:   cfg.ProbeTimeout,
	})
	w.RegisterHandlers(bus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetricsServer(ctx, logger, config.GetEnvInt("METRICS_PORT", 9090))

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	healthServer.SetReady(true)
	logger.Info("worker started")

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := bus.Shutdown(shutdownCtx); err != nil {
		logger.Error("bus shutdown failed", slog.Any("error", err))
	}

	logger.Info("worker stopped")
}
