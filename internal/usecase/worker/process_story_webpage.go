package worker

import (
	"context"

	"rssant/internal/domain/imageproc"
	"rssant/internal/messaging"
	"rssant/internal/pkg/texthash"
)

// summaryMaxLen bounds the persisted summary length, matching the
// normalizer's own story summary truncation.
const summaryMaxLen = 300

// handleProcessStoryWebpage derives a summary from the fetched content,
// hands both back to harbor, and queues an image probe if the content
// contains any.
func (w *Worker) handleProcessStoryWebpage(ctx context.Context, payload any) error {
	msg, ok := payload.(messaging.ProcessStoryWebpage)
	if !ok {
		return &wrongPayloadTypeError{name: messaging.WorkerProcessStoryWebpage}
	}

	summary := texthash.Shorten(texthash.HTMLToText(msg.Text), summaryMaxLen)
	if err := w.bus.Tell(ctx, messaging.HarborUpdateStory, messaging.UpdateStory{
		StoryID: msg.StoryID,
		Content: msg.Text,
		Summary: summary,
		URL:     msg.URL,
	}); err != nil {
		return err
	}

	imageURLs := imageproc.ExtractImageURLs(msg.Text)
	if len(imageURLs) == 0 {
		return nil
	}
	w.bus.Hope(ctx, messaging.WorkerDetectStoryImages, messaging.DetectStoryImages{
		StoryID:   msg.StoryID,
		StoryURL:  msg.URL,
		ImageURLs: imageURLs,
	}, w.now().Add(w.probeTimeout))
	return nil
}
