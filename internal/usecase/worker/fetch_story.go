package worker

import (
	"context"

	"rssant/internal/messaging"
)

// handleFetchStory retrieves a story's source webpage for readability
// enrichment. ReadabilityFetcher already performs extraction as part of the
// fetch (its SSRF guard and circuit breaker are scoped around the full
// round trip), so the text handed to process_story_webpage is already the
// extracted article body rather than raw HTML — process_story_webpage
// still exists as its own message so the summary/image steps stay a
// separate, independently retryable stage.
func (w *Worker) handleFetchStory(ctx context.Context, payload any) error {
	msg, ok := payload.(messaging.FetchStory)
	if !ok {
		return &wrongPayloadTypeError{name: messaging.WorkerFetchStory}
	}

	content, finalURL, err := w.contentFetcher.FetchContent(ctx, msg.URL)
	if err != nil {
		w.logger.WarnContext(ctx, "fetch_story failed, leaving story on its feed content",
			"story_id", msg.StoryID, "url", msg.URL, "error", err)
		return nil
	}

	return w.bus.Tell(ctx, messaging.WorkerProcessStoryWebpage, messaging.ProcessStoryWebpage{
		StoryID: msg.StoryID,
		URL:     finalURL,
		Text:    content,
	})
}
