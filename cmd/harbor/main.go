// Command harbor runs the stateful side of the ingestion pipeline: the
// database-backed repositories, the harbor message handlers, and the
// scheduler that drives check_feed/clean_feed_creation. Because the bus the
// harbor and worker handlers communicate over is in-process, this binary
// also wires and registers the worker handlers on the same bus, so the full
// pipeline runs end-to-end in one process. cmd/worker remains a separate,
// independently runnable binary for the worker process class.
package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"rssant/internal/domain/imageproc"
	pgRepo "rssant/internal/infra/adapter/persistence/postgres"
	"rssant/internal/infra/db"
	"rssant/internal/infra/fetcher"
	"rssant/internal/infra/scraper"
	workerPkg "rssant/internal/infra/worker"
	"rssant/internal/messaging"
	"rssant/internal/usecase/harbor"
	"rssant/internal/usecase/scheduler"
	usecaseWorker "rssant/internal/usecase/worker"
	"rssant/pkg/config"
)

func waitForMigrations(logger *slog.Logger, database *sql.DB) {
	const probe = "SELECT 1 FROM feeds LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := database.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

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

func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	waitForMigrations(logger, database)
	return database
}

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	metrics := workerPkg.NewMetrics()
	metrics.MustRegister()
	cfg, err := workerPkg.LoadConfigFromEnv(logger, metrics)
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("harbor configuration loaded",
		slog.Int("check_feed_seconds", cfg.CheckFeedSeconds),
		slog.Duration("clean_feed_creation_interval", cfg.CleanFeedCreationInterval),
		slog.Int("bus_max_concurrent", cfg.BusMaxConcurrent),
		slog.Int("health_port", cfg.HealthPort))

	feeds := pgRepo.NewFeedRepo(database)
	feedCreations := pgRepo.NewFeedCreationRepo(database)
	storys := pgRepo.NewStoryRepo(database)
	userFeeds := pgRepo.NewUserFeedRepo(database)
	feedURLMaps := pgRepo.NewFeedUrlMapRepo(database)

	bus := messaging.NewInProcessBus(cfg.BusMaxConcurrent)

	h := harbor.New(harbor.Deps{
		Feeds:         feeds,
		Storys:        storys,
		FeedCreations: feedCreations,
		UserFeeds:     userFeeds,
		FeedURLMaps:   feedURLMaps,
		Bus:           bus,
		Logger:        logger,
	})
	h.RegisterHandlers(bus)

	httpClient := createHTTPClient()
	contentFetchConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("failed to load content fetch configuration, using defaults", slog.Any("error", err))
		contentFetchConfig = fetcher.DefaultConfig()
	}

	w := usecaseWorker.New(usecaseWorker.Deps{
		FeedParser:     scraper.NewFeedParser(httpClient),
		FeedFinder:     scraper.NewFeedFinder(httpClient),
		ContentFetcher: fetcher.NewReadabilityFetcher(contentFetchConfig),
		Prober:         imageproc.NewProber(httpClient, contentFetchConfig.Parallelism),
		Bus:            bus,
		Logger:         logger,
		ProbeTimeout:   cfg.ProbeTimeout,
	})
	w.RegisterHandlers(bus)

	sched := scheduler.New(scheduler.Deps{
		Feeds:         feeds,
		FeedCreations: feedCreations,
		Bus:           bus,
		Logger:        logger,
		Metrics:       metrics,
		Config: scheduler.Config{
			CheckFeedSeconds:          cfg.CheckFeedSeconds,
			CleanFeedCreationInterval: cfg.CleanFeedCreationInterval,
		},
	})
	cronSched, err := sched.Start()
	if err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("scheduler started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	healthServer.SetReady(true)
	logger.Info("harbor started")

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		cronSched.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		logger.Warn("cron stop timed out")
	}

	if err := bus.Shutdown(shutdownCtx); err != nil {
		logger.Error("bus shutdown failed", slog.Any("error", err))
	}

	logger.Info("harbor stopped")
}
