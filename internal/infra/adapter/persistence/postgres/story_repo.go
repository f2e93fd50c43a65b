package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rssant/internal/domain/entity"
	"rssant/internal/pkg/monthid"
	"rssant/internal/repository"

	"github.com/lib/pq"
)

type StoryRepo struct{ db *sql.DB }

func NewStoryRepo(db *sql.DB) repository.StoryRepository {
	return &StoryRepo{db: db}
}

const storyColumns = `id, feed_id, "offset", unique_id, title, link, author,
       content, summary, content_hash_base64, dt_published, dt_updated`

func scanStory(row interface{ Scan(...any) error }) (*entity.Story, error) {
	var s entity.Story
	if err := row.Scan(&s.ID, &s.FeedID, &s.Offset, &s.UniqueID, &s.Title, &s.Link,
		&s.Author, &s.Content, &s.Summary, &s.ContentHashBase64, &s.DtPublished, &s.DtUpdated); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StoryRepo) Get(ctx context.Context, id int64) (*entity.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM storys WHERE id = $1`
	s, err := scanStory(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return s, nil
}

func (r *StoryRepo) GetByFeedAndUniqueID(ctx context.Context, feedID int64, uniqueID string) (*entity.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM storys WHERE feed_id = $1 AND unique_id = $2`
	s, err := scanStory(r.db.QueryRowContext(ctx, query, feedID, uniqueID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByFeedAndUniqueID: %w", err)
	}
	return s, nil
}

// ExistingHashes batches the per-unique-id lookup into a single ANY($2)
// query instead of one round trip per candidate story.
func (r *StoryRepo) ExistingHashes(ctx context.Context, feedID int64, uniqueIDs []string) (map[string]string, error) {
	hashes := make(map[string]string, len(uniqueIDs))
	if len(uniqueIDs) == 0 {
		return hashes, nil
	}

	const query = `SELECT unique_id, content_hash_base64 FROM storys WHERE feed_id = $1 AND unique_id = ANY($2)`
	rows, err := r.db.QueryContext(ctx, query, feedID, pq.Array(uniqueIDs))
	if err != nil {
		return nil, fmt.Errorf("ExistingHashes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uniqueID, hash string
		if err := rows.Scan(&uniqueID, &hash); err != nil {
			return nil, fmt.Errorf("ExistingHashes: scan: %w", err)
		}
		hashes[uniqueID] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistingHashes: %w", err)
	}
	return hashes, nil
}

func (r *StoryRepo) UpdateContent(ctx context.Context, storyID int64, content, summary, link string) error {
	const query = `
UPDATE storys SET content = $1, summary = $2,
    link = CASE WHEN $3 != '' THEN $3 ELSE link END
WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, content, summary, link, storyID)
	if err != nil {
		return fmt.Errorf("UpdateContent: %w", err)
	}
	return nil
}

// BulkSaveByFeed upserts storys keyed by (feed_id, unique_id) inside a single
// transaction: new unique_ids are inserted with a freshly allocated monotone
// offset, changed rows are updated in place, unchanged rows are skipped.
// Moving a row's DtPublished across a month boundary decrements its old
// monthly bucket and increments the new one, counted in NumReallocate.
func (r *StoryRepo) BulkSaveByFeed(ctx context.Context, feedID int64, storys []*entity.Story) (*repository.BulkSaveResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("BulkSaveByFeed: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result := &repository.BulkSaveResult{ModifiedStorys: make([]*entity.Story, 0, len(storys))}

	for _, candidate := range storys {
		if err := candidate.Validate(); err != nil {
			return nil, fmt.Errorf("BulkSaveByFeed: %w", err)
		}
		candidate.FeedID = feedID

		var existing entity.Story
		row := tx.QueryRowContext(ctx, `SELECT `+storyColumns+` FROM storys WHERE feed_id = $1 AND unique_id = $2 FOR UPDATE`,
			feedID, candidate.UniqueID)
		err := row.Scan(&existing.ID, &existing.FeedID, &existing.Offset, &existing.UniqueID,
			&existing.Title, &existing.Link, &existing.Author, &existing.Content, &existing.Summary,
			&existing.ContentHashBase64, &existing.DtPublished, &existing.DtUpdated)

		switch err {
		case sql.ErrNoRows:
			offset, err := nextOffsetTx(ctx, tx, feedID)
			if err != nil {
				return nil, fmt.Errorf("BulkSaveByFeed: %w", err)
			}
			candidate.Offset = offset
			candidate.ID = monthid.StoryID(feedID, offset)

			const insert = `
INSERT INTO storys (id, feed_id, "offset", unique_id, title, link, author,
                     content, summary, content_hash_base64, dt_published, dt_updated)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
			if _, err := tx.ExecContext(ctx, insert, candidate.ID, candidate.FeedID, candidate.Offset,
				candidate.UniqueID, candidate.Title, candidate.Link, candidate.Author, candidate.Content,
				candidate.Summary, candidate.ContentHashBase64, candidate.DtPublished, candidate.DtUpdated); err != nil {
				return nil, fmt.Errorf("BulkSaveByFeed: insert: %w", err)
			}

			monthID := monthid.IDOfMonth(candidate.DtPublished.Year(), int(candidate.DtPublished.Month()))
			if err := r.incrementMonthlyCountTx(ctx, tx, feedID, monthID, 1); err != nil {
				return nil, fmt.Errorf("BulkSaveByFeed: %w", err)
			}
			result.ModifiedStorys = append(result.ModifiedStorys, candidate)

		case nil:
			if existing.ContentHashBase64 == candidate.ContentHashBase64 {
				continue
			}
			candidate.ID = existing.ID
			candidate.Offset = existing.Offset

			const update = `
UPDATE storys SET title = $1, link = $2, author = $3, content = $4, summary = $5,
    content_hash_base64 = $6, dt_published = $7, dt_updated = $8
WHERE id = $9`
			if _, err := tx.ExecContext(ctx, update, candidate.Title, candidate.Link, candidate.Author,
				candidate.Content, candidate.Summary, candidate.ContentHashBase64, candidate.DtPublished,
				candidate.DtUpdated, candidate.ID); err != nil {
				return nil, fmt.Errorf("BulkSaveByFeed: update: %w", err)
			}

			oldMonth := monthid.IDOfMonth(existing.DtPublished.Year(), int(existing.DtPublished.Month()))
			newMonth := monthid.IDOfMonth(candidate.DtPublished.Year(), int(candidate.DtPublished.Month()))
			if oldMonth != newMonth {
				if err := r.incrementMonthlyCountTx(ctx, tx, feedID, oldMonth, -1); err != nil {
					return nil, fmt.Errorf("BulkSaveByFeed: %w", err)
				}
				if err := r.incrementMonthlyCountTx(ctx, tx, feedID, newMonth, 1); err != nil {
					return nil, fmt.Errorf("BulkSaveByFeed: %w", err)
				}
				result.NumReallocate++
			}
			result.ModifiedStorys = append(result.ModifiedStorys, candidate)

		default:
			return nil, fmt.Errorf("BulkSaveByFeed: lookup: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("BulkSaveByFeed: Commit: %w", err)
	}
	return result, nil
}

// nextOffsetTx allocates the next monotone per-feed offset inside tx.
// Shared with FeedRepo.MergeInto, which renumbers moved stories against the
// same counter storys are ordinarily allocated from.
func nextOffsetTx(ctx context.Context, tx *sql.Tx, feedID int64) (int64, error) {
	const query = `
INSERT INTO feed_offsets (feed_id, next_offset) VALUES ($1, 1)
ON CONFLICT (feed_id) DO UPDATE SET next_offset = feed_offsets.next_offset + 1
RETURNING next_offset - 1`
	var offset int64
	if err := tx.QueryRowContext(ctx, query, feedID).Scan(&offset); err != nil {
		return 0, fmt.Errorf("nextOffsetTx: %w", err)
	}
	return offset, nil
}

func (r *StoryRepo) incrementMonthlyCountTx(ctx context.Context, tx *sql.Tx, feedID int64, monthID int32, delta int64) error {
	const query = `
INSERT INTO feed_monthly_story_counts (feed_id, month_id, count) VALUES ($1, $2, $3)
ON CONFLICT (feed_id, month_id) DO UPDATE SET count = feed_monthly_story_counts.count + $3`
	_, err := tx.ExecContext(ctx, query, feedID, monthID, delta)
	if err != nil {
		return fmt.Errorf("incrementMonthlyCountTx: %w", err)
	}
	return nil
}
