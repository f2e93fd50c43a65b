package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rssant/internal/domain/entity"
	"rssant/internal/repository"
)

type FeedUrlMapRepo struct{ db *sql.DB }

func NewFeedUrlMapRepo(db *sql.DB) repository.FeedUrlMapRepository {
	return &FeedUrlMapRepo{db: db}
}

func (r *FeedUrlMapRepo) Create(ctx context.Context, m *entity.FeedUrlMap) error {
	const query = `
INSERT INTO feed_url_maps (source, target) VALUES ($1, $2)
ON CONFLICT (source) DO UPDATE SET target = EXCLUDED.target`
	_, err := r.db.ExecContext(ctx, query, m.Source, m.Target)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *FeedUrlMapRepo) GetBySource(ctx context.Context, source string) (*entity.FeedUrlMap, error) {
	var m entity.FeedUrlMap
	err := r.db.QueryRowContext(ctx, `SELECT source, target FROM feed_url_maps WHERE source = $1`, source).
		Scan(&m.Source, &m.Target)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetBySource: %w", err)
	}
	return &m, nil
}
