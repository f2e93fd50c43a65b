package messaging

import "time"

// Message names, one per handler registered on the bus.
const (
	WorkerFindFeed             = "worker.find_feed"
	WorkerSyncFeed             = "worker.sync_feed"
	WorkerFetchStory           = "worker.fetch_story"
	WorkerProcessStoryWebpage  = "worker.process_story_webpage"
	WorkerDetectStoryImages    = "worker.detect_story_images"
	HarborUpdateFeedCreationStatus = "harbor.update_feed_creation_status"
	HarborSaveFeedCreationResult   = "harbor.save_feed_creation_result"
	HarborUpdateFeed               = "harbor.update_feed"
	HarborUpdateStory              = "harbor.update_story"
	HarborUpdateStoryImages        = "harbor.update_story_images"
)

// FeedSchema is the canonical, validated shape exchanged at the worker→harbor
// boundary for a fetched or discovered feed.
type FeedSchema struct {
	URL               string
	Title             string
	ContentHashBase64 string
	Link              string
	Author            string
	Icon              string
	Description       string
	Version           string
	Encoding          string
	ETag              string
	LastModified      string
	DtUpdated         time.Time
	Storys            []StorySchema
}

// StorySchema is the canonical shape of a single feed entry.
type StorySchema struct {
	UniqueID          string
	Title             string
	ContentHashBase64 string
	Author            string
	Link              string
	Summary           string
	Content           string
	DtPublished       time.Time
	DtUpdated         time.Time
}

// FindFeed asks the worker to discover a feed at URL on behalf of a pending
// FeedCreation.
type FindFeed struct {
	FeedCreationID int64
	URL            string
}

// SyncFeed asks the worker to re-poll an already-known feed, using
// conditional-request headers when available.
type SyncFeed struct {
	FeedID            int64
	URL               string
	ContentHashBase64 string
	ETag              string
	LastModified      string
}

// FetchStory asks the worker to retrieve a story's webpage for readability
// extraction.
type FetchStory struct {
	StoryID int64
	URL     string
}

// ProcessStoryWebpage carries a fetched webpage body back into the worker's
// readability-extraction step.
type ProcessStoryWebpage struct {
	StoryID int64
	URL     string
	Text    string
}

// ImageStatus pairs a probed image URL with its observed status. Status is
// either an HTTP status code or one of the synthetic codes below.
type ImageStatus struct {
	URL    string
	Status int
}

// Synthetic statuses recorded by the image prober in place of a real HTTP
// status code.
const (
	StatusRefererDeny       = -1
	StatusRefererNotAllowed = -2
)

// DetectStoryImages asks the worker to probe every image URL found in a
// story's content.
type DetectStoryImages struct {
	StoryID    int64
	StoryURL   string
	ImageURLs  []string
}

// UpdateFeedCreationStatus is a simple status write on a FeedCreation row.
type UpdateFeedCreationStatus struct {
	FeedCreationID int64
	Status         string
}

// SaveFeedCreationResult reports the outcome of find_feed back to harbor:
// Feed is nil when discovery failed.
type SaveFeedCreationResult struct {
	FeedCreationID int64
	Messages       []string
	Feed           *FeedSchema
}

// UpdateFeed delivers a normalized FeedSchema for upsert/merge. IsRefresh
// marks a forced re-check (user-triggered), which relaxes the
// inline-image-probe trigger.
type UpdateFeed struct {
	FeedID    int64
	Feed      FeedSchema
	IsRefresh bool
}

// UpdateStory persists readability-extracted content for a single story.
type UpdateStory struct {
	StoryID int64
	Content string
	Summary string
	URL     string
}

// UpdateStoryImages carries probe results back for Image Rewriter
// application.
type UpdateStoryImages struct {
	StoryID  int64
	StoryURL string
	Images   []ImageStatus
}
