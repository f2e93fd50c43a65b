package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rssant/internal/domain/entity"
	"rssant/internal/repository"
)

type FeedCreationRepo struct{ db *sql.DB }

func NewFeedCreationRepo(db *sql.DB) repository.FeedCreationRepository {
	return &FeedCreationRepo{db: db}
}

const feedCreationColumns = `id, user_id, url, is_from_bookmark, status, message, feed_id, dt_created, dt_updated`

func scanFeedCreation(row interface{ Scan(...any) error }) (*entity.FeedCreation, error) {
	var fc entity.FeedCreation
	var status string
	if err := row.Scan(&fc.ID, &fc.UserID, &fc.URL, &fc.IsFromBookmark, &status,
		&fc.Message, &fc.FeedID, &fc.DtCreated, &fc.DtUpdated); err != nil {
		return nil, err
	}
	fc.Status = entity.FeedCreationStatus(status)
	return &fc, nil
}

func (r *FeedCreationRepo) Get(ctx context.Context, id int64) (*entity.FeedCreation, error) {
	query := `SELECT ` + feedCreationColumns + ` FROM feed_creations WHERE id = $1`
	fc, err := scanFeedCreation(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return fc, nil
}

func (r *FeedCreationRepo) Create(ctx context.Context, fc *entity.FeedCreation) error {
	const query = `
INSERT INTO feed_creations (user_id, url, is_from_bookmark, status, message, feed_id, dt_created, dt_updated)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id`
	err := r.db.QueryRowContext(ctx, query, fc.UserID, fc.URL, fc.IsFromBookmark,
		string(fc.Status), fc.Message, fc.FeedID, fc.DtCreated, fc.DtUpdated).Scan(&fc.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *FeedCreationRepo) UpdateStatus(ctx context.Context, id int64, status entity.FeedCreationStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE feed_creations SET status = $1, dt_updated = now() WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	return nil
}

func (r *FeedCreationRepo) Update(ctx context.Context, fc *entity.FeedCreation) error {
	const query = `
UPDATE feed_creations SET
    user_id = $1, url = $2, is_from_bookmark = $3, status = $4, message = $5,
    feed_id = $6, dt_updated = $7
WHERE id = $8`
	_, err := r.db.ExecContext(ctx, query, fc.UserID, fc.URL, fc.IsFromBookmark,
		string(fc.Status), fc.Message, fc.FeedID, fc.DtUpdated, fc.ID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

func (r *FeedCreationRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
DELETE FROM feed_creations
WHERE status IN ('READY', 'ERROR') AND dt_updated < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("DeleteTerminalOlderThan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteTerminalOlderThan: RowsAffected: %w", err)
	}
	return n, nil
}

func (r *FeedCreationRepo) FindStuck(ctx context.Context, status entity.FeedCreationStatus, cutoff time.Time) ([]*entity.FeedCreation, error) {
	query := `SELECT ` + feedCreationColumns + ` FROM feed_creations WHERE status = $1 AND dt_updated < $2`
	rows, err := r.db.QueryContext(ctx, query, string(status), cutoff)
	if err != nil {
		return nil, fmt.Errorf("FindStuck: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]*entity.FeedCreation, 0, 16)
	for rows.Next() {
		fc, err := scanFeedCreation(rows)
		if err != nil {
			return nil, fmt.Errorf("FindStuck: Scan: %w", err)
		}
		results = append(results, fc)
	}
	return results, rows.Err()
}
