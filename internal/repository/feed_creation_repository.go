package repository

import (
	"context"
	"time"

	"rssant/internal/domain/entity"
)

// FeedCreationRepository persists subscription-request rows.
type FeedCreationRepository interface {
	Get(ctx context.Context, id int64) (*entity.FeedCreation, error)
	Create(ctx context.Context, fc *entity.FeedCreation) error
	UpdateStatus(ctx context.Context, id int64, status entity.FeedCreationStatus) error
	Update(ctx context.Context, fc *entity.FeedCreation) error

	// DeleteTerminalOlderThan removes READY/ERROR rows whose DtUpdated
	// precedes cutoff. Returns the count deleted.
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// FindStuck returns rows in status older than cutoff, for the janitor's
	// retry sweep.
	FindStuck(ctx context.Context, status entity.FeedCreationStatus, cutoff time.Time) ([]*entity.FeedCreation, error)
}
