package scheduler

import (
	"context"
	"fmt"
	"time"

	"rssant/internal/messaging"
)

// CheckFeed computes a jittered outdate deadline, loads every Feed whose
// dt_checked predates it, and hopes one sync_feed per Feed with an expiry
// set to that same deadline — so work left over when the next tick fires
// naturally drops instead of piling up.
func (s *Scheduler) CheckFeed(ctx context.Context) error {
	jitter := s.randFloat() / 10
	outdate := time.Duration(float64(s.config.CheckFeedSeconds)*(1+jitter)) * time.Second

	now := s.now()
	feeds, err := s.feeds.TakeOutdated(ctx, now.Add(-outdate))
	if err != nil {
		return fmt.Errorf("check_feed: %w", err)
	}

	expireAt := now.Add(outdate)
	for _, feed := range feeds {
		s.bus.Hope(ctx, messaging.WorkerSyncFeed, messaging.SyncFeed{
			FeedID:            feed.ID,
			URL:               feed.URL,
			ContentHashBase64: feed.ContentHashBase64,
			ETag:              feed.ETag,
			LastModified:      feed.LastModified,
		}, expireAt)
	}
	s.logger.InfoContext(ctx, "check_feed tick", "num_outdated", len(feeds), "outdate", outdate)
	return nil
}
