package worker

import (
	"context"

	"rssant/internal/domain/entity"
	"rssant/internal/domain/normalize"
	"rssant/internal/messaging"
)

// handleFindFeed discovers a feed URL for a pending FeedCreation and reports
// the outcome back to harbor. The creation is flipped to UPDATING before
// discovery starts so a concurrent retry sees work in progress rather than
// PENDING.
func (w *Worker) handleFindFeed(ctx context.Context, payload any) error {
	msg, ok := payload.(messaging.FindFeed)
	if !ok {
		return &wrongPayloadTypeError{name: messaging.WorkerFindFeed}
	}

	if err := w.bus.Tell(ctx, messaging.HarborUpdateFeedCreationStatus, messaging.UpdateFeedCreationStatus{
		FeedCreationID: msg.FeedCreationID,
		Status:         string(entity.FeedCreationUpdating),
	}); err != nil {
		w.logger.WarnContext(ctx, "failed to mark feed creation updating", "error", err)
	}

	feedURL, messages := w.feedFinder.Find(ctx, msg.URL)
	if feedURL == "" {
		return w.bus.Tell(ctx, messaging.HarborSaveFeedCreationResult, messaging.SaveFeedCreationResult{
			FeedCreationID: msg.FeedCreationID,
			Messages:       messages,
		})
	}

	now := w.now()
	parsed, meta, err := w.feedParser.Fetch(ctx, feedURL, "", "", now)
	if err != nil {
		messages = append(messages, "found a candidate feed url but failed to fetch/parse it: "+err.Error())
		return w.bus.Tell(ctx, messaging.HarborSaveFeedCreationResult, messaging.SaveFeedCreationResult{
			FeedCreationID: msg.FeedCreationID,
			Messages:       messages,
		})
	}

	schema := normalize.Normalize(*parsed, meta, now, now)
	return w.bus.Tell(ctx, messaging.HarborSaveFeedCreationResult, messaging.SaveFeedCreationResult{
		FeedCreationID: msg.FeedCreationID,
		Messages:       messages,
		Feed:           &schema,
	})
}
