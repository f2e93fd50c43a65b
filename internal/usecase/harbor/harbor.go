// Package harbor implements the stateful, DB-owning side of the ingestion
// pipeline: the five actors that persist what the worker side discovers and
// fetches. Every handler is registered on a messaging.Bus and guards its
// writes with status checks and upserts so at-least-once redelivery is safe.
package harbor

import (
	"log/slog"
	"time"

	"rssant/internal/domain/imageproc"
	"rssant/internal/messaging"
	"rssant/internal/repository"
)

// Harbor wires the repositories and image rewriter behind the five harbor
// actors, and the bus they're registered on and emit follow-up messages
// through.
type Harbor struct {
	feeds         repository.FeedRepository
	storys        repository.StoryRepository
	feedCreations repository.FeedCreationRepository
	userFeeds     repository.UserFeedRepository
	feedURLMaps   repository.FeedUrlMapRepository
	rewriter      *imageproc.Rewriter
	bus           messaging.Bus
	logger        *slog.Logger
	now           func() time.Time
}

// Deps collects Harbor's constructor dependencies.
type Deps struct {
	Feeds         repository.FeedRepository
	Storys        repository.StoryRepository
	FeedCreations repository.FeedCreationRepository
	UserFeeds     repository.UserFeedRepository
	FeedURLMaps   repository.FeedUrlMapRepository
	Rewriter      *imageproc.Rewriter
	Bus           messaging.Bus
	Logger        *slog.Logger
}

// New builds a Harbor from deps. If deps.Rewriter or deps.Logger are nil,
// sane defaults are substituted.
func New(deps Deps) *Harbor {
	rewriter := deps.Rewriter
	if rewriter == nil {
		rewriter = imageproc.NewRewriter()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Harbor{
		feeds:         deps.Feeds,
		storys:        deps.Storys,
		feedCreations: deps.FeedCreations,
		userFeeds:     deps.UserFeeds,
		feedURLMaps:   deps.FeedURLMaps,
		rewriter:      rewriter,
		bus:           deps.Bus,
		logger:        logger,
		now:           time.Now,
	}
}

// RegisterHandlers binds all five harbor actors onto bus.
func (h *Harbor) RegisterHandlers(bus messaging.Bus) {
	bus.RegisterHandler(messaging.HarborUpdateFeedCreationStatus, h.handleUpdateFeedCreationStatus)
	bus.RegisterHandler(messaging.HarborSaveFeedCreationResult, h.handleSaveFeedCreationResult)
	bus.RegisterHandler(messaging.HarborUpdateFeed, h.handleUpdateFeed)
	bus.RegisterHandler(messaging.HarborUpdateStory, h.handleUpdateStory)
	bus.RegisterHandler(messaging.HarborUpdateStoryImages, h.handleUpdateStoryImages)
}

// wrongPayloadTypeError is returned when a handler receives a payload of the
// wrong concrete type. Handler takes any, so handlers stay defensive even
// though InProcessBus only ever delivers what RegisterHandlers expects.
type wrongPayloadTypeError struct {
	name string
}

func (e *wrongPayloadTypeError) Error() string {
	return "harbor: handler " + e.name + " received unexpected payload type"
}
