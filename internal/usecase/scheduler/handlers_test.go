package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rssant/internal/domain/entity"
	"rssant/internal/messaging"
)

func newTestScheduler() (*Scheduler, *fakeFeedRepo, *fakeFeedCreationRepo, *fakeBus) {
	feeds := &fakeFeedRepo{}
	creations := &fakeFeedCreationRepo{}
	bus := &fakeBus{}
	s := New(Deps{
		Feeds:         feeds,
		FeedCreations: creations,
		Bus:           bus,
		Config:        Config{CheckFeedSeconds: 300, CleanFeedCreationInterval: 5 * time.Minute},
	})
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	s.randFloat = func() float64 { return 0 }
	return s, feeds, creations, bus
}

func TestCheckFeed_HopesSyncFeedForOutdatedFeeds(t *testing.T) {
	s, feeds, _, bus := newTestScheduler()
	now := s.now()
	feeds.byID = []*entity.Feed{
		{ID: 1, URL: "https://example.com/a", DtChecked: now.Add(-10 * time.Minute)},
		{ID: 2, URL: "https://example.com/b", DtChecked: now},
	}

	err := s.CheckFeed(context.Background())
	require.NoError(t, err)

	require.Len(t, bus.hopes, 1)
	assert.Equal(t, messaging.WorkerSyncFeed, bus.hopes[0].Name)
	sync := bus.hopes[0].Payload.(messaging.SyncFeed)
	assert.Equal(t, int64(1), sync.FeedID)
	assert.Equal(t, now.Add(300*time.Second), bus.hopes[0].ExpireAt)
}

func TestCheckFeed_NoOutdatedFeedsHopesNothing(t *testing.T) {
	s, feeds, _, bus := newTestScheduler()
	feeds.byID = []*entity.Feed{{ID: 1, URL: "https://example.com/a", DtChecked: s.now()}}

	err := s.CheckFeed(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bus.hopes)
}

func TestCleanFeedCreation_DeletesOldTerminal(t *testing.T) {
	s, _, creations, _ := newTestScheduler()
	now := s.now()
	creations.rows = []*entity.FeedCreation{
		{ID: 1, Status: entity.FeedCreationReady, DtUpdated: now.Add(-48 * time.Hour)},
		{ID: 2, Status: entity.FeedCreationReady, DtUpdated: now},
	}

	err := s.CleanFeedCreation(context.Background())
	require.NoError(t, err)

	require.Len(t, creations.rows, 1)
	assert.Equal(t, int64(2), creations.rows[0].ID)
}

func TestCleanFeedCreation_RetriesStuckUpdatingAndPending(t *testing.T) {
	s, _, creations, bus := newTestScheduler()
	now := s.now()
	creations.rows = []*entity.FeedCreation{
		{ID: 10, URL: "https://example.com/stuck-updating", Status: entity.FeedCreationUpdating, DtUpdated: now.Add(-45 * time.Minute)},
		{ID: 11, URL: "https://example.com/stuck-pending", Status: entity.FeedCreationPending, DtUpdated: now.Add(-90 * time.Minute)},
		{ID: 12, URL: "https://example.com/fresh-pending", Status: entity.FeedCreationPending, DtUpdated: now.Add(-5 * time.Minute)},
	}

	err := s.CleanFeedCreation(context.Background())
	require.NoError(t, err)

	require.Len(t, bus.hopes, 2)
	var ids []int64
	for _, h := range bus.hopes {
		assert.Equal(t, messaging.WorkerFindFeed, h.Name)
		ids = append(ids, h.Payload.(messaging.FindFeed).FeedCreationID)
	}
	assert.ElementsMatch(t, []int64{10, 11}, ids)

	assert.ElementsMatch(t, []int64{10, 11}, creations.statusUpdates)
	for _, fc := range creations.rows {
		if fc.ID == 10 || fc.ID == 11 {
			assert.Equal(t, entity.FeedCreationPending, fc.Status)
		}
	}
}
