package worker

import (
	"context"
	"errors"

	"rssant/internal/domain/normalize"
	"rssant/internal/infra/scraper"
	"rssant/internal/messaging"
	"rssant/internal/pkg/texthash"
)

// handleSyncFeed re-polls an already-known feed using conditional-request
// headers, and a second content-hash comparison on top of that, so an
// origin that ignores If-None-Match still results in a no-op when nothing
// actually changed.
func (w *Worker) handleSyncFeed(ctx context.Context, payload any) error {
	msg, ok := payload.(messaging.SyncFeed)
	if !ok {
		return &wrongPayloadTypeError{name: messaging.WorkerSyncFeed}
	}

	now := w.now()
	parsed, meta, err := w.feedParser.Fetch(ctx, msg.URL, msg.ETag, msg.LastModified, now)
	if err != nil {
		if errors.Is(err, scraper.ErrNotModified) {
			return nil
		}
		w.logger.WarnContext(ctx, "sync_feed fetch/parse failed, skipping",
			"feed_id", msg.FeedID, "url", msg.URL, "error", err)
		return nil
	}

	bodyHash := texthash.ContentHashBase64(string(meta.BodyBytes))
	if msg.ContentHashBase64 != "" && bodyHash == msg.ContentHashBase64 {
		return nil
	}

	schema := normalize.Normalize(*parsed, meta, now, now)
	return w.bus.Tell(ctx, messaging.HarborUpdateFeed, messaging.UpdateFeed{
		FeedID: msg.FeedID,
		Feed:   schema,
	})
}
