package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rssant/internal/domain/entity"
	"rssant/internal/repository"
)

type UserFeedRepo struct{ db *sql.DB }

func NewUserFeedRepo(db *sql.DB) repository.UserFeedRepository {
	return &UserFeedRepo{db: db}
}

func (r *UserFeedRepo) Exists(ctx context.Context, userID, feedID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_feeds WHERE user_id = $1 AND feed_id = $2)`,
		userID, feedID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return exists, nil
}

func (r *UserFeedRepo) Create(ctx context.Context, uf *entity.UserFeed) error {
	const query = `INSERT INTO user_feeds (user_id, feed_id, is_from_bookmark) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, uf.UserID, uf.FeedID, uf.IsFromBookmark)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *UserFeedRepo) ReassignFeed(ctx context.Context, sourceFeedID, targetFeedID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ReassignFeed: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const dropColliding = `
DELETE FROM user_feeds uf
WHERE uf.feed_id = $1
  AND EXISTS (SELECT 1 FROM user_feeds t WHERE t.user_id = uf.user_id AND t.feed_id = $2)`
	if _, err := tx.ExecContext(ctx, dropColliding, sourceFeedID, targetFeedID); err != nil {
		return fmt.Errorf("ReassignFeed: drop colliding: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE user_feeds SET feed_id = $1 WHERE feed_id = $2`, targetFeedID, sourceFeedID); err != nil {
		return fmt.Errorf("ReassignFeed: reassign: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ReassignFeed: Commit: %w", err)
	}
	return nil
}
