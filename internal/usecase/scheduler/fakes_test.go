package scheduler

import (
	"context"
	"time"

	"rssant/internal/domain/entity"
	"rssant/internal/messaging"
)

type fakeFeedRepo struct {
	byID []*entity.Feed
}

func (r *fakeFeedRepo) Get(_ context.Context, id int64) (*entity.Feed, error) { return nil, nil }
func (r *fakeFeedRepo) GetByURL(_ context.Context, url string) (*entity.Feed, error) {
	return nil, nil
}
func (r *fakeFeedRepo) Create(_ context.Context, feed *entity.Feed) error { return nil }
func (r *fakeFeedRepo) Update(_ context.Context, feed *entity.Feed) error { return nil }
func (r *fakeFeedRepo) Delete(_ context.Context, id int64) error         { return nil }

func (r *fakeFeedRepo) TakeOutdated(_ context.Context, olderThan time.Time) ([]*entity.Feed, error) {
	var out []*entity.Feed
	for _, f := range r.byID {
		if f.DtChecked.Before(olderThan) {
			out = append(out, f)
		}
	}
	return out, nil
}
func (r *fakeFeedRepo) NextOffset(_ context.Context, feedID int64) (int64, error) { return 0, nil }
func (r *fakeFeedRepo) IncrementMonthlyCount(_ context.Context, feedID int64, monthID int32, delta int64) error {
	return nil
}
func (r *fakeFeedRepo) MergeInto(_ context.Context, sourceFeedID, targetFeedID int64) error {
	return nil
}

type fakeFeedCreationRepo struct {
	rows              []*entity.FeedCreation
	deleteCutoff      time.Time
	deletedCount      int64
	statusUpdates     []int64
}

func (r *fakeFeedCreationRepo) Get(_ context.Context, id int64) (*entity.FeedCreation, error) {
	for _, fc := range r.rows {
		if fc.ID == id {
			return fc, nil
		}
	}
	return nil, nil
}
func (r *fakeFeedCreationRepo) Create(_ context.Context, fc *entity.FeedCreation) error { return nil }

func (r *fakeFeedCreationRepo) UpdateStatus(_ context.Context, id int64, status entity.FeedCreationStatus) error {
	r.statusUpdates = append(r.statusUpdates, id)
	for _, fc := range r.rows {
		if fc.ID == id {
			fc.Status = status
		}
	}
	return nil
}
func (r *fakeFeedCreationRepo) Update(_ context.Context, fc *entity.FeedCreation) error { return nil }

func (r *fakeFeedCreationRepo) DeleteTerminalOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.deleteCutoff = cutoff
	var remaining []*entity.FeedCreation
	var n int64
	for _, fc := range r.rows {
		if fc.IsTerminal() && fc.DtUpdated.Before(cutoff) {
			n++
			continue
		}
		remaining = append(remaining, fc)
	}
	r.rows = remaining
	r.deletedCount = n
	return n, nil
}

func (r *fakeFeedCreationRepo) FindStuck(_ context.Context, status entity.FeedCreationStatus, cutoff time.Time) ([]*entity.FeedCreation, error) {
	var out []*entity.FeedCreation
	for _, fc := range r.rows {
		if fc.Status == status && fc.DtUpdated.Before(cutoff) {
			out = append(out, fc)
		}
	}
	return out, nil
}

type fakeBus struct {
	hopes []fakeDelivery
}

type fakeDelivery struct {
	Name     string
	Payload  any
	ExpireAt time.Time
}

func (b *fakeBus) RegisterHandler(string, messaging.Handler) {}
func (b *fakeBus) Tell(context.Context, string, any) error   { return nil }
func (b *fakeBus) Hope(_ context.Context, name string, payload any, expireAt time.Time) {
	b.hopes = append(b.hopes, fakeDelivery{Name: name, Payload: payload, ExpireAt: expireAt})
}
func (b *fakeBus) Shutdown(context.Context) error { return nil }
