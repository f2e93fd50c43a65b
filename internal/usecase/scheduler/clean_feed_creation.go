package scheduler

import (
	"context"
	"fmt"

	"rssant/internal/domain/entity"
	"rssant/internal/messaging"
)

// CleanFeedCreation deletes terminal FeedCreations old enough that no one is
// still waiting on their result, and retries ones stuck mid-flight: an
// UPDATING creation older than 30m, or a PENDING one older than 60m, is
// switched back to PENDING and has find_feed re-emitted for it.
func (s *Scheduler) CleanFeedCreation(ctx context.Context) error {
	now := s.now()

	deleted, err := s.feedCreations.DeleteTerminalOlderThan(ctx, now.Add(-terminalCreationAge))
	if err != nil {
		return fmt.Errorf("clean_feed_creation: delete terminal: %w", err)
	}

	stuckUpdating, err := s.feedCreations.FindStuck(ctx, entity.FeedCreationUpdating, now.Add(-updatingStuckAge))
	if err != nil {
		return fmt.Errorf("clean_feed_creation: find stuck updating: %w", err)
	}
	stuckPending, err := s.feedCreations.FindStuck(ctx, entity.FeedCreationPending, now.Add(-pendingStuckAge))
	if err != nil {
		return fmt.Errorf("clean_feed_creation: find stuck pending: %w", err)
	}

	stuck := append(stuckUpdating, stuckPending...)
	expireAt := now.Add(retryExpireAfter)
	for _, creation := range stuck {
		if err := s.feedCreations.UpdateStatus(ctx, creation.ID, entity.FeedCreationPending); err != nil {
			s.logger.WarnContext(ctx, "failed to reset stuck feed creation to pending",
				"feed_creation_id", creation.ID, "error", err)
			continue
		}
		s.bus.Hope(ctx, messaging.WorkerFindFeed, messaging.FindFeed{
			FeedCreationID: creation.ID,
			URL:            creation.URL,
		}, expireAt)
	}

	s.logger.InfoContext(ctx, "clean_feed_creation tick",
		"deleted_terminal", deleted, "retried_updating", len(stuckUpdating), "retried_pending", len(stuckPending))
	return nil
}
