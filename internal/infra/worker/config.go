package worker

import (
	"fmt"
	"log/slog"
	"time"

	"rssant/internal/pkg/config"
)

// Config holds the tunables shared by the harbor and worker binaries: how
// often the scheduler ticks, how long an image probe batch is allowed to
// run, how many messages the in-process bus may dispatch concurrently, and
// which port the health/metrics HTTP servers bind to.
//
// All fields have sensible defaults and are loaded via the fail-open
// strategy in LoadConfigFromEnv: an invalid environment value never aborts
// startup, it falls back to the default and logs a warning.
type Config struct {
	// CheckFeedSeconds is the base interval, in seconds, between check_feed
	// ticks. Default: 300 (5 minutes).
	CheckFeedSeconds int

	// CleanFeedCreationInterval is the interval between clean_feed_creation
	// ticks. Default: 5 minutes.
	CleanFeedCreationInterval time.Duration

	// ProbeTimeout bounds a single detect_story_images batch. Default: 20s.
	ProbeTimeout time.Duration

	// BusMaxConcurrent is the number of in-process bus handler invocations
	// allowed to run concurrently. Default: 10.
	BusMaxConcurrent int

	// HealthPort is the port the health check HTTP server listens on.
	// Default: 9091.
	HealthPort int
}

// DefaultConfig returns a Config with production-ready default values.
func DefaultConfig() Config {
	return Config{
		CheckFeedSeconds:          300,
		CleanFeedCreationInterval: 5 * time.Minute,
		ProbeTimeout:              20 * time.Second,
		BusMaxConcurrent:          10,
		HealthPort:                9091,
	}
}

// Validate checks that every field is within its accepted range.
func (c *Config) Validate() error {
	var errs []error

	if err := config.ValidateIntRange(c.CheckFeedSeconds, 30, 3600); err != nil {
		errs = append(errs, fmt.Errorf("check feed seconds: %w", err))
	}
	if err := config.ValidateDuration(c.CleanFeedCreationInterval, 30*time.Second, 1*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("clean feed creation interval: %w", err))
	}
	if err := config.ValidateDuration(c.ProbeTimeout, 1*time.Second, 5*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("probe timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.BusMaxConcurrent, 1, 1000); err != nil {
		errs = append(errs, fmt.Errorf("bus max concurrent: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads Config from environment variables with validation
// and automatic fallback to default values on failure. It never returns an
// error: this is the fail-open strategy the rest of the ambient stack uses.
//
// Environment variables:
//   - CHECK_FEED_SECONDS: integer 30-3600 (default: 300)
//   - CLEAN_FEED_CREATION_INTERVAL: duration string, e.g. "5m" (default: 5m)
//   - PROBE_TIMEOUT: duration string, e.g. "20s" (default: 20s)
//   - BUS_MAX_CONCURRENT: integer 1-1000 (default: 10)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *Metrics) (*Config, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	applyInt := func(field, envKey string, cur *int, min, max int) {
		result := config.LoadEnvInt(envKey, *cur, func(v int) error {
			return config.ValidateIntRange(v, min, max)
		})
		*cur = result.Value.(int)
		if result.FallbackApplied {
			fallbackApplied = true
			metrics.RecordValidationError(field)
			metrics.RecordFallback(field, "default")
			for _, warning := range result.Warnings {
				logger.Warn("configuration fallback applied", slog.String("field", field), slog.String("warning", warning))
			}
		}
	}

	applyDuration := func(field, envKey string, cur *time.Duration, min, max time.Duration) {
		result := config.LoadEnvDuration(envKey, *cur, func(d time.Duration) error {
			return config.ValidateDuration(d, min, max)
		})
		*cur = result.Value.(time.Duration)
		if result.FallbackApplied {
			fallbackApplied = true
			metrics.RecordValidationError(field)
			metrics.RecordFallback(field, "default")
			for _, warning := range result.Warnings {
				logger.Warn("configuration fallback applied", slog.String("field", field), slog.String("warning", warning))
			}
		}
	}

	applyInt("check_feed_seconds", "CHECK_FEED_SECONDS", &cfg.CheckFeedSeconds, 30, 3600)
	applyDuration("clean_feed_creation_interval", "CLEAN_FEED_CREATION_INTERVAL", &cfg.CleanFeedCreationInterval, 30*time.Second, 1*time.Hour)
	applyDuration("probe_timeout", "PROBE_TIMEOUT", &cfg.ProbeTimeout, 1*time.Second, 5*time.Minute)
	applyInt("bus_max_concurrent", "BUS_MAX_CONCURRENT", &cfg.BusMaxConcurrent, 1, 1000)
	applyInt("health_port", "WORKER_HEALTH_PORT", &cfg.HealthPort, 1024, 65535)

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
