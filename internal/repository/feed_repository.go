package repository

import (
	"context"
	"time"

	"rssant/internal/domain/entity"
)

// FeedRepository persists Feed rows and the monotonic per-feed Story offset
// sequence they own.
type FeedRepository interface {
	Get(ctx context.Context, id int64) (*entity.Feed, error)
	GetByURL(ctx context.Context, url string) (*entity.Feed, error)
	Create(ctx context.Context, feed *entity.Feed) error
	Update(ctx context.Context, feed *entity.Feed) error
	Delete(ctx context.Context, id int64) error

	// TakeOutdated returns Feeds whose DtChecked is older than olderThan,
	// the source of work for the periodic check_feed tick.
	TakeOutdated(ctx context.Context, olderThan time.Time) ([]*entity.Feed, error)

	// NextOffset allocates the next monotonic per-feed Story offset.
	NextOffset(ctx context.Context, feedID int64) (int64, error)

	// IncrementMonthlyCount adjusts Feed.MonthlyStoryCount[monthID] by delta,
	// creating the bucket if absent.
	IncrementMonthlyCount(ctx context.Context, feedID int64, monthID int32, delta int64) error

	// MergeInto reassigns all Storys and UserFeeds owned by sourceFeedID to
	// targetFeedID, then deletes the source Feed. Atomic.
	MergeInto(ctx context.Context, sourceFeedID, targetFeedID int64) error
}
