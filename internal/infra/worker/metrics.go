package worker

import (
	"rssant/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus metrics for the harbor/worker binaries. It
// embeds the standard ConfigMetrics for configuration monitoring and adds
// metrics for the two scheduler ticks and the message bus itself.
type Metrics struct {
	// Embedded configuration metrics.
	*config.ConfigMetrics

	// TickRunsTotal counts scheduler tick executions by tick name
	// (check_feed, clean_feed_creation) and status (success, failure).
	TickRunsTotal *prometheus.CounterVec

	// TickDurationSeconds measures how long each tick took.
	TickDurationSeconds *prometheus.HistogramVec

	// MessagesHandledTotal counts bus message deliveries by message name
	// and status (ok, error).
	MessagesHandledTotal *prometheus.CounterVec

	// ProbeDurationSeconds measures detect_story_images batch duration.
	ProbeDurationSeconds prometheus.Histogram

	// OutdatedFeedsTotal counts feeds picked up by check_feed across all
	// ticks.
	OutdatedFeedsTotal prometheus.Counter

	// LastTickSuccessTimestamp records the Unix timestamp of the last
	// successful run of each tick.
	LastTickSuccessTimestamp *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance with all metrics initialized.
// Metrics are auto-registered with Prometheus via promauto.
func NewMetrics() *Metrics {
	return &Metrics{
		ConfigMetrics: config.NewConfigMetrics("ingestion"),

		TickRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestion_tick_runs_total",
			Help: "Total number of scheduler tick runs by tick name and status",
		}, []string{"tick", "status"}),

		TickDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingestion_tick_duration_seconds",
			Help:    "Duration of scheduler tick execution in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60},
		}, []string{"tick"}),

		MessagesHandledTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestion_messages_handled_total",
			Help: "Total number of bus messages handled by message name and status",
		}, []string{"message", "status"}),

		ProbeDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingestion_image_probe_duration_seconds",
			Help:    "Duration of a detect_story_images probe batch in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 20, 30},
		}),

		OutdatedFeedsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ingestion_outdated_feeds_total",
			Help: "Total number of feeds picked up by check_feed across all ticks",
		}),

		LastTickSuccessTimestamp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ingestion_tick_last_success_timestamp",
			Help: "Unix timestamp of the last successful run of each tick",
		}, []string{"tick"}),
	}
}

// MustRegister is a no-op kept for API symmetry with LoadConfigFromEnv's
// callers: metrics are auto-registered via promauto when created.
func (m *Metrics) MustRegister() {}

// RecordTickRun increments the tick run counter for the given tick and
// status ("success" or "failure").
func (m *Metrics) RecordTickRun(tick, status string) {
	m.TickRunsTotal.WithLabelValues(tick, status).Inc()
}

// RecordTickDuration observes how long a tick took, in seconds.
func (m *Metrics) RecordTickDuration(tick string, seconds float64) {
	m.TickDurationSeconds.WithLabelValues(tick).Observe(seconds)
}

// RecordTickSuccess records the current time as the last successful run of
// tick.
func (m *Metrics) RecordTickSuccess(tick string) {
	m.LastTickSuccessTimestamp.WithLabelValues(tick).SetToCurrentTime()
}

// RecordMessageHandled increments the message-handled counter for the given
// message name and status ("ok" or "error").
func (m *Metrics) RecordMessageHandled(name, status string) {
	m.MessagesHandledTotal.WithLabelValues(name, status).Inc()
}

// RecordProbeDuration observes a detect_story_images batch duration, in
// seconds.
func (m *Metrics) RecordProbeDuration(seconds float64) {
	m.ProbeDurationSeconds.Observe(seconds)
}

// RecordOutdatedFeeds adds count to the outdated-feeds total.
func (m *Metrics) RecordOutdatedFeeds(count int) {
	m.OutdatedFeedsTotal.Add(float64(count))
}
