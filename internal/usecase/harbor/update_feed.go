package harbor

import (
	"context"
	"fmt"
	"time"

	"rssant/internal/domain/entity"
	"rssant/internal/domain/freshness"
	"rssant/internal/domain/imageproc"
	"rssant/internal/messaging"
	"rssant/internal/pkg/texthash"
)

// inlineImageProbeTextThreshold is the rune-count ceiling below which a
// modified story is considered short enough to warrant an inline image
// probe instead of a full webpage re-fetch.
const inlineImageProbeTextThreshold = 1000

// inlineImageProbeDeadline bounds how long an inline detect_story_images
// batch is allowed to run; it becomes the Hope message's expireAt, which
// InProcessBus threads through as the handler's ctx deadline.
const inlineImageProbeDeadline = 20 * time.Second

// handleUpdateFeed upserts a normalized FeedSchema onto the Feed it targets.
// If the payload's url has moved to one another Feed already owns, the
// target Feed absorbs the loaded one (merge) and no further work happens.
// Otherwise the payload's fields are applied, storys are bulk-saved, and
// each modified story either gets a full webpage fetch queued or an inline
// image probe, depending on freshness heuristics.
func (h *Harbor) handleUpdateFeed(ctx context.Context, payload any) error {
	msg, ok := payload.(messaging.UpdateFeed)
	if !ok {
		return &wrongPayloadTypeError{name: messaging.HarborUpdateFeed}
	}

	feed, err := h.feeds.Get(ctx, msg.FeedID)
	if err != nil {
		return fmt.Errorf("update_feed: %w", err)
	}
	if feed == nil {
		h.logger.WarnContext(ctx, "feed not found, dropping update", "feed_id", msg.FeedID)
		return nil
	}

	if msg.Feed.URL != "" && msg.Feed.URL != feed.URL {
		target, err := h.feeds.GetByURL(ctx, msg.Feed.URL)
		if err != nil {
			return fmt.Errorf("update_feed: %w", err)
		}
		if target != nil && target.ID != feed.ID {
			h.logger.InfoContext(ctx, "merging feed into canonical url owner",
				"source_feed_id", feed.ID, "target_feed_id", target.ID, "url", msg.Feed.URL)
			if err := h.feeds.MergeInto(ctx, feed.ID, target.ID); err != nil {
				return fmt.Errorf("update_feed: merge: %w", err)
			}
			return nil
		}
	}

	now := h.now()
	applyFeedFields(feed, msg.Feed)
	if feed.DtUpdated.IsZero() {
		feed.DtUpdated = now
	}
	feed.DtChecked = now
	feed.DtSynced = now
	feed.Status = entity.FeedStatusReady
	if err := h.feeds.Update(ctx, feed); err != nil {
		return fmt.Errorf("update_feed: %w", err)
	}

	storys := make([]*entity.Story, 0, len(msg.Feed.Storys))
	for _, s := range msg.Feed.Storys {
		story := &entity.Story{
			FeedID:            feed.ID,
			UniqueID:          s.UniqueID,
			Title:             s.Title,
			Link:              s.Link,
			Author:            s.Author,
			Content:           s.Content,
			Summary:           s.Summary,
			ContentHashBase64: s.ContentHashBase64,
			DtPublished:       s.DtPublished,
			DtUpdated:         s.DtUpdated,
		}
		if story.DtPublished.IsZero() {
			story.DtPublished = now
		}
		if story.DtUpdated.IsZero() {
			story.DtUpdated = now
		}
		storys = append(storys, story)
	}

	storys, err = h.filterUnchangedStorys(ctx, feed.ID, storys)
	if err != nil {
		return fmt.Errorf("update_feed: %w", err)
	}

	result, err := h.storys.BulkSaveByFeed(ctx, feed.ID, storys)
	if err != nil {
		return fmt.Errorf("update_feed: %w", err)
	}
	h.logger.InfoContext(ctx, "saved feed storys",
		"feed_id", feed.ID, "total", len(storys),
		"num_modified", len(result.ModifiedStorys), "num_reallocate", result.NumReallocate)

	// Reload so the modified-story decisions below see the monthly counts
	// bulk-save just wrote, not the stale in-memory snapshot.
	freshFeed, err := h.feeds.Get(ctx, feed.ID)
	if err != nil {
		return fmt.Errorf("update_feed: reload: %w", err)
	}
	if freshFeed == nil {
		return nil
	}

	needFetchStorys := freshness.IsFeedNeedFetchStorys(freshFeed.URL)
	for _, story := range result.ModifiedStorys {
		if story.Link == "" {
			continue
		}
		if needFetchStorys && !freshness.IsFulltextStory(freshFeed, story) {
			h.bus.Tell(ctx, messaging.WorkerFetchStory, messaging.FetchStory{
				StoryID: story.ID,
				URL:     story.Link,
			})
			continue
		}
		h.emitInlineImageProbe(ctx, story, msg.IsRefresh)
	}
	return nil
}

// filterUnchangedStorys drops candidates whose ContentHashBase64 already
// matches the stored row, sparing BulkSaveByFeed a row lock it would only
// skip anyway. New storys (absent from the batch lookup) always pass
// through.
func (h *Harbor) filterUnchangedStorys(ctx context.Context, feedID int64, storys []*entity.Story) ([]*entity.Story, error) {
	if len(storys) == 0 {
		return storys, nil
	}
	uniqueIDs := make([]string, len(storys))
	for i, s := range storys {
		uniqueIDs[i] = s.UniqueID
	}
	existingHashes, err := h.storys.ExistingHashes(ctx, feedID, uniqueIDs)
	if err != nil {
		return nil, fmt.Errorf("filterUnchangedStorys: %w", err)
	}

	filtered := make([]*entity.Story, 0, len(storys))
	for _, s := range storys {
		if hash, ok := existingHashes[s.UniqueID]; ok && hash == s.ContentHashBase64 {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered, nil
}

// applyFeedFields copies every non-empty string field and non-zero
// DtUpdated from schema onto feed, leaving fields the payload left blank
// untouched.
func applyFeedFields(feed *entity.Feed, schema messaging.FeedSchema) {
	setIfNonEmpty(&feed.URL, schema.URL)
	setIfNonEmpty(&feed.Title, schema.Title)
	setIfNonEmpty(&feed.ContentHashBase64, schema.ContentHashBase64)
	setIfNonEmpty(&feed.Link, schema.Link)
	setIfNonEmpty(&feed.Author, schema.Author)
	setIfNonEmpty(&feed.Icon, schema.Icon)
	setIfNonEmpty(&feed.Description, schema.Description)
	setIfNonEmpty(&feed.Version, schema.Version)
	setIfNonEmpty(&feed.Encoding, schema.Encoding)
	setIfNonEmpty(&feed.ETag, schema.ETag)
	setIfNonEmpty(&feed.LastModified, schema.LastModified)
	if !schema.DtUpdated.IsZero() {
		feed.DtUpdated = schema.DtUpdated
	}
}

func setIfNonEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// emitInlineImageProbe hopes a detect_story_images request when the story
// is either an explicit refresh or short enough that it's likely to be a
// teaser rather than a full article, and actually contains images.
func (h *Harbor) emitInlineImageProbe(ctx context.Context, story *entity.Story, isRefresh bool) {
	text := texthash.HTMLToText(story.Content)
	if !isRefresh && len([]rune(text)) >= inlineImageProbeTextThreshold {
		return
	}
	imageURLs := imageproc.ExtractImageURLs(story.Content)
	if len(imageURLs) == 0 {
		return
	}
	h.bus.Hope(ctx, messaging.WorkerDetectStoryImages, messaging.DetectStoryImages{
		StoryID:   story.ID,
		StoryURL:  story.Link,
		ImageURLs: imageURLs,
	}, h.now().Add(inlineImageProbeDeadline))
}
