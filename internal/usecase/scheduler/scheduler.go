// Package scheduler implements the two periodic harbor-side ticks that keep
// the ingestion pipeline moving without any external trigger: re-checking
// feeds that have gone stale, and retrying or garbage-collecting stuck
// FeedCreations.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"rssant/internal/messaging"
	"rssant/internal/repository"

	"github.com/robfig/cron/v3"
)

// Config tunes the scheduler's intervals and deadlines.
type Config struct {
	// CheckFeedSeconds is the base interval between check_feed ticks, and
	// the base of the jittered outdate deadline each tick computes.
	CheckFeedSeconds int

	// CleanFeedCreationInterval is the interval between clean_feed_creation
	// ticks.
	CleanFeedCreationInterval time.Duration
}

// DefaultConfig matches the original system's tuning: a five-minute feed
// check cadence and a five-minute janitor cadence.
func DefaultConfig() Config {
	return Config{
		CheckFeedSeconds:          300,
		CleanFeedCreationInterval: 5 * time.Minute,
	}
}

const (
	terminalCreationAge = 24 * time.Hour
	updatingStuckAge    = 30 * time.Minute
	pendingStuckAge     = 60 * time.Minute
	retryExpireAfter    = time.Hour
)

// TickMetrics receives tick-level telemetry. *worker.Metrics satisfies this
// interface without either package importing the other.
type TickMetrics interface {
	RecordTickRun(tick, status string)
	RecordTickDuration(tick string, seconds float64)
	RecordTickSuccess(tick string)
}

type noopMetrics struct{}

func (noopMetrics) RecordTickRun(string, string)       {}
func (noopMetrics) RecordTickDuration(string, float64) {}
func (noopMetrics) RecordTickSuccess(string)           {}

// Scheduler owns the two cron.Cron entries and the repositories/bus they
// drive.
type Scheduler struct {
	feeds         repository.FeedRepository
	feedCreations repository.FeedCreationRepository
	bus           messaging.Bus
	logger        *slog.Logger
	config        Config
	metrics       TickMetrics
	now           func() time.Time
	randFloat     func() float64
}

// Deps collects Scheduler's constructor dependencies.
type Deps struct {
	Feeds         repository.FeedRepository
	FeedCreations repository.FeedCreationRepository
	Bus           messaging.Bus
	Logger        *slog.Logger
	Config        Config
	Metrics       TickMetrics
}

// New builds a Scheduler from deps. A zero Config substitutes DefaultConfig.
func New(deps Deps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg.CheckFeedSeconds <= 0 {
		cfg = DefaultConfig()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Scheduler{
		feeds:         deps.Feeds,
		feedCreations: deps.FeedCreations,
		bus:           deps.Bus,
		logger:        logger,
		config:        cfg,
		metrics:       metrics,
		now:           time.Now,
		randFloat:     rand.Float64,
	}
}

// Start registers both ticks on a new cron.Cron and starts it running. The
// caller is responsible for stopping the returned cron.Cron on shutdown.
func (s *Scheduler) Start() (*cron.Cron, error) {
	c := cron.New()

	checkFeedSpec := fmt.Sprintf("@every %ds", s.config.CheckFeedSeconds)
	if _, err := c.AddFunc(checkFeedSpec, func() {
		s.runTick("check_feed", s.CheckFeed)
	}); err != nil {
		return nil, fmt.Errorf("scheduler: register check_feed: %w", err)
	}

	cleanSpec := fmt.Sprintf("@every %s", s.config.CleanFeedCreationInterval)
	if _, err := c.AddFunc(cleanSpec, func() {
		s.runTick("clean_feed_creation", s.CleanFeedCreation)
	}); err != nil {
		return nil, fmt.Errorf("scheduler: register clean_feed_creation: %w", err)
	}

	c.Start()
	return c, nil
}

// runTick runs fn, recording its duration and success/failure status.
func (s *Scheduler) runTick(tick string, fn func(context.Context) error) {
	start := s.now()
	err := fn(context.Background())
	s.metrics.RecordTickDuration(tick, s.now().Sub(start).Seconds())
	if err != nil {
		s.metrics.RecordTickRun(tick, "failure")
		s.logger.Error(tick+" tick failed", "error", err)
		return
	}
	s.metrics.RecordTickRun(tick, "success")
	s.metrics.RecordTickSuccess(tick)
}
