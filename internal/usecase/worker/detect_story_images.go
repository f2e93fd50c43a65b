package worker

import (
	"context"

	"rssant/internal/messaging"
)

// handleDetectStoryImages probes every image URL concurrently under an
// overall deadline and reports results back to harbor regardless of how
// many probes actually completed. The deadline comes from ctx when the
// triggering message already carries one (messaging.Bus.Hope threads its
// expireAt through as a context deadline); only a message with no expiry of
// its own falls back to w.probeTimeout.
func (w *Worker) handleDetectStoryImages(ctx context.Context, payload any) error {
	msg, ok := payload.(messaging.DetectStoryImages)
	if !ok {
		return &wrongPayloadTypeError{name: messaging.WorkerDetectStoryImages}
	}

	var probeCtx context.Context
	var cancel context.CancelFunc
	if _, ok := ctx.Deadline(); ok {
		probeCtx, cancel = context.WithCancel(ctx)
	} else {
		probeCtx, cancel = context.WithTimeout(ctx, w.probeTimeout)
	}
	defer cancel()

	statuses := w.prober.Probe(probeCtx, msg.StoryURL, msg.ImageURLs)
	return w.bus.Tell(ctx, messaging.HarborUpdateStoryImages, messaging.UpdateStoryImages{
		StoryID:  msg.StoryID,
		StoryURL: msg.StoryURL,
		Images:   statuses,
	})
}
