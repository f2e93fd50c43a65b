package harbor

import (
	"context"
	"fmt"

	"rssant/internal/messaging"
)

// handleUpdateStoryImages applies the Image Rewriter to the story's current
// HTML, substituting a proxied URL for every image whose probed status is
// in the denied set, then persists the result if anything changed.
func (h *Harbor) handleUpdateStoryImages(ctx context.Context, payload any) error {
	msg, ok := payload.(messaging.UpdateStoryImages)
	if !ok {
		return &wrongPayloadTypeError{name: messaging.HarborUpdateStoryImages}
	}

	story, err := h.storys.Get(ctx, msg.StoryID)
	if err != nil {
		return fmt.Errorf("update_story_images: %w", err)
	}
	if story == nil {
		h.logger.WarnContext(ctx, "story not found, dropping image rewrite", "story_id", msg.StoryID)
		return nil
	}

	rewritten, changed := h.rewriter.Rewrite(story.Content, msg.StoryURL, msg.Images)
	if !changed {
		return nil
	}
	if err := h.storys.UpdateContent(ctx, story.ID, rewritten, story.Summary, ""); err != nil {
		return fmt.Errorf("update_story_images: %w", err)
	}
	return nil
}
