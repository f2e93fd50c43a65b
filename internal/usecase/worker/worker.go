// Package worker implements the I/O-performing side of the ingestion
// pipeline: the five actors that discover, fetch, and probe on harbor's
// behalf. Handlers hold no persistent state of their own; every decision
// worth remembering is handed back to harbor in a follow-up message.
package worker

import (
	"log/slog"
	"time"

	"rssant/internal/domain/imageproc"
	"rssant/internal/infra/fetcher"
	"rssant/internal/infra/scraper"
	"rssant/internal/messaging"
)

// defaultProbeTimeout bounds a single detect_story_images batch when the
// triggering message carries no expiry of its own.
const defaultProbeTimeout = 20 * time.Second

// Worker wires the feed parser, feed finder, content fetcher and image
// prober behind the five worker actors, and the bus they're registered on
// and emit follow-up messages through.
type Worker struct {
	feedParser     *scraper.FeedParser
	feedFinder     *scraper.FeedFinder
	contentFetcher *fetcher.ReadabilityFetcher
	prober         *imageproc.Prober
	bus            messaging.Bus
	logger         *slog.Logger
	probeTimeout   time.Duration
	now            func() time.Time
}

// Deps collects Worker's constructor dependencies.
type Deps struct {
	FeedParser     *scraper.FeedParser
	FeedFinder     *scraper.FeedFinder
	ContentFetcher *fetcher.ReadabilityFetcher
	Prober         *imageproc.Prober
	Bus            messaging.Bus
	Logger         *slog.Logger
	ProbeTimeout   time.Duration
}

// New builds a Worker from deps. If deps.Logger or deps.ProbeTimeout are
// unset, sane defaults are substituted.
func New(deps Deps) *Worker {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	probeTimeout := deps.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	return &Worker{
		feedParser:     deps.FeedParser,
		feedFinder:     deps.FeedFinder,
		contentFetcher: deps.ContentFetcher,
		prober:         deps.Prober,
		bus:            deps.Bus,
		logger:         logger,
		probeTimeout:   probeTimeout,
		now:            time.Now,
	}
}

// RegisterHandlers binds all five worker actors onto bus.
func (w *Worker) RegisterHandlers(bus messaging.Bus) {
	bus.RegisterHandler(messaging.WorkerFindFeed, w.handleFindFeed)
	bus.RegisterHandler(messaging.WorkerSyncFeed, w.handleSyncFeed)
	bus.RegisterHandler(messaging.WorkerFetchStory, w.handleFetchStory)
	bus.RegisterHandler(messaging.WorkerProcessStoryWebpage, w.handleProcessStoryWebpage)
	bus.RegisterHandler(messaging.WorkerDetectStoryImages, w.handleDetectStoryImages)
}

// wrongPayloadTypeError is returned when a handler receives a payload of the
// wrong concrete type. Handler takes any, so handlers stay defensive even
// though InProcessBus only ever delivers what RegisterHandlers expects.
type wrongPayloadTypeError struct {
	name string
}

func (e *wrongPayloadTypeError) Error() string {
	return "worker: handler " + e.name + " received unexpected payload type"
}
