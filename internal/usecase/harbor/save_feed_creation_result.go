package harbor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rssant/internal/domain/entity"
	"rssant/internal/messaging"
)

// handleSaveFeedCreationResult reports the outcome of find_feed back to
// harbor. A nil Feed means discovery failed and the creation is marked
// ERROR; otherwise the resolved Feed is upserted by url and the creation
// marked READY. The follow-up update_feed is Hope, not Tell: once the
// FeedCreation itself has a terminal status, losing the first sync under
// load is acceptable since the next scheduler tick will pick the feed up.
func (h *Harbor) handleSaveFeedCreationResult(ctx context.Context, payload any) error {
	msg, ok := payload.(messaging.SaveFeedCreationResult)
	if !ok {
		return &wrongPayloadTypeError{name: messaging.HarborSaveFeedCreationResult}
	}

	creation, err := h.feedCreations.Get(ctx, msg.FeedCreationID)
	if err != nil {
		return fmt.Errorf("save_feed_creation_result: %w", err)
	}
	if creation == nil {
		h.logger.WarnContext(ctx, "feed creation not found, dropping result",
			"feed_creation_id", msg.FeedCreationID)
		return nil
	}
	if creation.Status == entity.FeedCreationReady {
		h.logger.InfoContext(ctx, "feed creation already ready", "feed_creation_id", msg.FeedCreationID)
		return nil
	}

	now := h.now()
	creation.Message = strings.Join(msg.Messages, "\n\n")
	creation.DtUpdated = now

	if msg.Feed == nil {
		creation.Status = entity.FeedCreationError
		if err := h.feedCreations.Update(ctx, creation); err != nil {
			return fmt.Errorf("save_feed_creation_result: %w", err)
		}
		if err := h.feedURLMaps.Create(ctx, &entity.FeedUrlMap{
			Source: creation.URL,
			Target: entity.NotFoundTarget,
		}); err != nil {
			return fmt.Errorf("save_feed_creation_result: record not-found map: %w", err)
		}
		return nil
	}

	feed, err := h.feeds.GetByURL(ctx, msg.Feed.URL)
	if err != nil {
		return fmt.Errorf("save_feed_creation_result: %w", err)
	}
	if feed == nil {
		feed = &entity.Feed{
			URL:       msg.Feed.URL,
			Status:    entity.FeedStatusReady,
			DtUpdated: now,
		}
		if err := h.feeds.Create(ctx, feed); err != nil {
			return fmt.Errorf("save_feed_creation_result: create feed: %w", err)
		}
	}

	feedID := feed.ID
	creation.Status = entity.FeedCreationReady
	creation.FeedID = &feedID
	if err := h.feedCreations.Update(ctx, creation); err != nil {
		return fmt.Errorf("save_feed_creation_result: %w", err)
	}

	exists, err := h.userFeeds.Exists(ctx, creation.UserID, feed.ID)
	if err != nil {
		return fmt.Errorf("save_feed_creation_result: %w", err)
	}
	if !exists {
		if err := h.userFeeds.Create(ctx, &entity.UserFeed{
			UserID:         creation.UserID,
			FeedID:         feed.ID,
			IsFromBookmark: creation.IsFromBookmark,
		}); err != nil {
			return fmt.Errorf("save_feed_creation_result: create user feed: %w", err)
		}
	}

	if err := h.feedURLMaps.Create(ctx, &entity.FeedUrlMap{Source: creation.URL, Target: feed.URL}); err != nil {
		return fmt.Errorf("save_feed_creation_result: record url map: %w", err)
	}
	if feed.URL != creation.URL {
		if err := h.feedURLMaps.Create(ctx, &entity.FeedUrlMap{Source: feed.URL, Target: feed.URL}); err != nil {
			return fmt.Errorf("save_feed_creation_result: record canonical map: %w", err)
		}
	}

	h.bus.Hope(ctx, messaging.HarborUpdateFeed, messaging.UpdateFeed{
		FeedID: feed.ID,
		Feed:   *msg.Feed,
	}, time.Time{})
	return nil
}
