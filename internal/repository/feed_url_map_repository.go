package repository

import (
	"context"

	"rssant/internal/domain/entity"
)

// FeedUrlMapRepository persists the append-only audit of url resolutions
// consulted by discovery to short-circuit repeated failed lookups.
type FeedUrlMapRepository interface {
	Create(ctx context.Context, m *entity.FeedUrlMap) error
	GetBySource(ctx context.Context, source string) (*entity.FeedUrlMap, error)
}
