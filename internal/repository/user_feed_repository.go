package repository

import (
	"context"

	"rssant/internal/domain/entity"
)

// UserFeedRepository persists subscription rows linking users to Feeds.
type UserFeedRepository interface {
	Exists(ctx context.Context, userID, feedID int64) (bool, error)
	Create(ctx context.Context, uf *entity.UserFeed) error

	// ReassignFeed moves every UserFeed row from sourceFeedID to
	// targetFeedID, skipping rows that would collide with an existing
	// (user_id, target_feed_id) row.
	ReassignFeed(ctx context.Context, sourceFeedID, targetFeedID int64) error
}
