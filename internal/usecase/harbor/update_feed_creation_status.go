package harbor

import (
	"context"
	"fmt"

	"rssant/internal/domain/entity"
	"rssant/internal/messaging"
)

// handleUpdateFeedCreationStatus is a simple status write on a FeedCreation
// row; idempotent by construction since it always sets the same status for
// a given message.
func (h *Harbor) handleUpdateFeedCreationStatus(ctx context.Context, payload any) error {
	msg, ok := payload.(messaging.UpdateFeedCreationStatus)
	if !ok {
		return &wrongPayloadTypeError{name: messaging.HarborUpdateFeedCreationStatus}
	}
	if err := h.feedCreations.UpdateStatus(ctx, msg.FeedCreationID, entity.FeedCreationStatus(msg.Status)); err != nil {
		return fmt.Errorf("update_feed_creation_status: %w", err)
	}
	return nil
}
