// Package postgres implements the repository interfaces over database/sql
// with the jackc/pgx/v5 stdlib driver, following the teacher's query style:
// hand-written SQL, preallocated result slices, method-name-prefixed error
// wrapping.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rssant/internal/domain/entity"
	"rssant/internal/pkg/monthid"
	"rssant/internal/repository"
)

type FeedRepo struct{ db *sql.DB }

func NewFeedRepo(db *sql.DB) repository.FeedRepository {
	return &FeedRepo{db: db}
}

const feedColumns = `id, url, title, link, author, icon, description, version,
       encoding, etag, last_modified, content_hash_base64, status,
       dt_updated, dt_checked, dt_synced`

func scanFeed(row interface{ Scan(...any) error }) (*entity.Feed, error) {
	var f entity.Feed
	var status string
	if err := row.Scan(&f.ID, &f.URL, &f.Title, &f.Link, &f.Author, &f.Icon,
		&f.Description, &f.Version, &f.Encoding, &f.ETag, &f.LastModified,
		&f.ContentHashBase64, &status, &f.DtUpdated, &f.DtChecked, &f.DtSynced); err != nil {
		return nil, err
	}
	f.Status = entity.FeedStatus(status)
	return &f, nil
}

func (r *FeedRepo) Get(ctx context.Context, id int64) (*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE id = $1`
	f, err := scanFeed(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	if err := r.loadMonthlyCounts(ctx, f); err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return f, nil
}

func (r *FeedRepo) GetByURL(ctx context.Context, url string) (*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE url = $1`
	f, err := scanFeed(r.db.QueryRowContext(ctx, query, url))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByURL: %w", err)
	}
	if err := r.loadMonthlyCounts(ctx, f); err != nil {
		return nil, fmt.Errorf("GetByURL: %w", err)
	}
	return f, nil
}

func (r *FeedRepo) loadMonthlyCounts(ctx context.Context, f *entity.Feed) error {
	rows, err := r.db.QueryContext(ctx, `SELECT month_id, count FROM feed_monthly_story_counts WHERE feed_id = $1`, f.ID)
	if err != nil {
		return fmt.Errorf("loadMonthlyCounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	f.MonthlyStoryCount = make(map[int32]int64)
	for rows.Next() {
		var monthID int32
		var count int64
		if err := rows.Scan(&monthID, &count); err != nil {
			return fmt.Errorf("loadMonthlyCounts: Scan: %w", err)
		}
		f.MonthlyStoryCount[monthID] = count
	}
	return rows.Err()
}

func (r *FeedRepo) Create(ctx context.Context, feed *entity.Feed) error {
	const query = `
INSERT INTO feeds (url, title, link, author, icon, description, version,
                    encoding, etag, last_modified, content_hash_base64, status,
                    dt_updated, dt_checked, dt_synced)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		feed.URL, feed.Title, feed.Link, feed.Author, feed.Icon, feed.Description,
		feed.Version, feed.Encoding, feed.ETag, feed.LastModified, feed.ContentHashBase64,
		string(feed.Status), feed.DtUpdated, feed.DtChecked, feed.DtSynced,
	).Scan(&feed.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *FeedRepo) Update(ctx context.Context, feed *entity.Feed) error {
	const query = `
UPDATE feeds SET
    url = $1, title = $2, link = $3, author = $4, icon = $5, description = $6,
    version = $7, encoding = $8, etag = $9, last_modified = $10,
    content_hash_base64 = $11, status = $12, dt_updated = $13, dt_checked = $14, dt_synced = $15
WHERE id = $16`
	_, err := r.db.ExecContext(ctx, query,
		feed.URL, feed.Title, feed.Link, feed.Author, feed.Icon, feed.Description,
		feed.Version, feed.Encoding, feed.ETag, feed.LastModified, feed.ContentHashBase64,
		string(feed.Status), feed.DtUpdated, feed.DtChecked, feed.DtSynced, feed.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

func (r *FeedRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func (r *FeedRepo) TakeOutdated(ctx context.Context, olderThan time.Time) ([]*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE dt_checked < $1 ORDER BY dt_checked ASC`
	rows, err := r.db.QueryContext(ctx, query, olderThan)
	if err != nil {
		return nil, fmt.Errorf("TakeOutdated: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, 100)
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("TakeOutdated: Scan: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

func (r *FeedRepo) NextOffset(ctx context.Context, feedID int64) (int64, error) {
	const query = `
INSERT INTO feed_offsets (feed_id, next_offset) VALUES ($1, 1)
ON CONFLICT (feed_id) DO UPDATE SET next_offset = feed_offsets.next_offset + 1
RETURNING next_offset - 1`
	var offset int64
	if err := r.db.QueryRowContext(ctx, query, feedID).Scan(&offset); err != nil {
		return 0, fmt.Errorf("NextOffset: %w", err)
	}
	return offset, nil
}

func (r *FeedRepo) IncrementMonthlyCount(ctx context.Context, feedID int64, monthID int32, delta int64) error {
	const query = `
INSERT INTO feed_monthly_story_counts (feed_id, month_id, count) VALUES ($1, $2, $3)
ON CONFLICT (feed_id, month_id) DO UPDATE SET count = feed_monthly_story_counts.count + $3`
	_, err := r.db.ExecContext(ctx, query, feedID, monthID, delta)
	if err != nil {
		return fmt.Errorf("IncrementMonthlyCount: %w", err)
	}
	return nil
}

func (r *FeedRepo) MergeInto(ctx context.Context, sourceFeedID, targetFeedID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("MergeInto: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// offset and id both encode feed_id, and the source and target feeds'
	// offset counters advance independently — a straight feed_id reassignment
	// would leave moved stories sharing (feed_id, offset) with whatever the
	// target already owns (or later allocates). Renumber each moved story
	// against the target's own counter instead, inside this transaction.
	rows, err := tx.QueryContext(ctx, `SELECT id FROM storys WHERE feed_id = $1 ORDER BY "offset" ASC FOR UPDATE`, sourceFeedID)
	if err != nil {
		return fmt.Errorf("MergeInto: select storys: %w", err)
	}
	var storyIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("MergeInto: scan story id: %w", err)
		}
		storyIDs = append(storyIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("MergeInto: %w", err)
	}
	rows.Close()

	for _, storyID := range storyIDs {
		offset, err := nextOffsetTx(ctx, tx, targetFeedID)
		if err != nil {
			return fmt.Errorf("MergeInto: allocate offset: %w", err)
		}
		newID := monthid.StoryID(targetFeedID, offset)
		if _, err := tx.ExecContext(ctx, `UPDATE storys SET feed_id = $1, "offset" = $2, id = $3 WHERE id = $4`,
			targetFeedID, offset, newID, storyID); err != nil {
			return fmt.Errorf("MergeInto: renumber story: %w", err)
		}
	}

	// UserFeed rows that would collide with an existing (user_id, target)
	// subscription are dropped rather than violating the unique constraint.
	if _, err := tx.ExecContext(ctx, `
DELETE FROM user_feeds uf
WHERE uf.feed_id = $1
  AND EXISTS (SELECT 1 FROM user_feeds t WHERE t.user_id = uf.user_id AND t.feed_id = $2)`,
		sourceFeedID, targetFeedID); err != nil {
		return fmt.Errorf("MergeInto: drop colliding user_feeds: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE user_feeds SET feed_id = $1 WHERE feed_id = $2`, targetFeedID, sourceFeedID); err != nil {
		return fmt.Errorf("MergeInto: reassign user_feeds: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO feed_monthly_story_counts (feed_id, month_id, count)
SELECT $1, month_id, count FROM feed_monthly_story_counts WHERE feed_id = $2
ON CONFLICT (feed_id, month_id) DO UPDATE SET count = feed_monthly_story_counts.count + EXCLUDED.count`,
		targetFeedID, sourceFeedID); err != nil {
		return fmt.Errorf("MergeInto: merge monthly counts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM feed_monthly_story_counts WHERE feed_id = $1`, sourceFeedID); err != nil {
		return fmt.Errorf("MergeInto: clear source monthly counts: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM feed_offsets WHERE feed_id = $1`, sourceFeedID); err != nil {
		return fmt.Errorf("MergeInto: clear source offsets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM feeds WHERE id = $1`, sourceFeedID); err != nil {
		return fmt.Errorf("MergeInto: delete source feed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("MergeInto: Commit: %w", err)
	}
	return nil
}
