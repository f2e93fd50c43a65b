package harbor

import (
	"context"
	"fmt"

	"rssant/internal/messaging"
)

// handleUpdateStory persists readability-extracted content for a single
// story. Told rather than hoped: losing a readability result silently would
// leave the story on its (often teaser) RSS content indefinitely, with no
// periodic retry to paper over it.
func (h *Harbor) handleUpdateStory(ctx context.Context, payload any) error {
	msg, ok := payload.(messaging.UpdateStory)
	if !ok {
		return &wrongPayloadTypeError{name: messaging.HarborUpdateStory}
	}
	if err := h.storys.UpdateContent(ctx, msg.StoryID, msg.Content, msg.Summary, msg.URL); err != nil {
		return fmt.Errorf("update_story: %w", err)
	}
	return nil
}
