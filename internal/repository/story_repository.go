package repository

import (
	"context"

	"rssant/internal/domain/entity"
)

// BulkSaveResult reports the outcome of a StoryRepository.BulkSaveByFeed
// call: which rows actually changed, and how many moved to a different
// monthly bucket.
type BulkSaveResult struct {
	ModifiedStorys []*entity.Story
	NumReallocate  int
}

// StoryRepository persists Stories under the per-feed (feed_id, unique_id)
// uniqueness and (feed_id, offset) packed-id invariants.
type StoryRepository interface {
	Get(ctx context.Context, id int64) (*entity.Story, error)
	GetByFeedAndUniqueID(ctx context.Context, feedID int64, uniqueID string) (*entity.Story, error)

	// BulkSaveByFeed upserts stories keyed by UniqueID: inserts new rows,
	// updates rows whose ContentHashBase64 differs, skips unchanged rows.
	// Atomic per call; maintains the feed's MonthlyStoryCount as a
	// side-effect of insertion and month reallocation.
	BulkSaveByFeed(ctx context.Context, feedID int64, storys []*entity.Story) (*BulkSaveResult, error)

	// ExistingHashes returns the ContentHashBase64 of whichever of uniqueIDs
	// already exist under feedID, keyed by UniqueID. Callers use it to
	// filter out unchanged stories before calling BulkSaveByFeed, avoiding a
	// row lock for candidates that will be skipped anyway.
	ExistingHashes(ctx context.Context, feedID int64, uniqueIDs []string) (map[string]string, error)

	// UpdateContent overwrites a story's content/summary/link, typically
	// with a readability-extracted result that supersedes the teaser the
	// feed shipped with. link replaces the stored Link when non-empty,
	// tracking a fetch that followed redirects to a different URL.
	UpdateContent(ctx context.Context, storyID int64, content, summary, link string) error
}
