package harbor

import (
	"context"
	"time"

	"rssant/internal/domain/entity"
	"rssant/internal/messaging"
	"rssant/internal/repository"
)

// fakeFeedRepo is an in-memory repository.FeedRepository sufficient for
// harbor handler tests: no persistence, no concurrency control, just enough
// behavior to exercise the handlers' decisions.
type fakeFeedRepo struct {
	byID        map[int64]*entity.Feed
	nextID      int64
	nextOffsets map[int64]int64
	merged      []mergeCall
}

type mergeCall struct{ source, target int64 }

func newFakeFeedRepo() *fakeFeedRepo {
	return &fakeFeedRepo{byID: make(map[int64]*entity.Feed), nextOffsets: make(map[int64]int64)}
}

func (r *fakeFeedRepo) Get(_ context.Context, id int64) (*entity.Feed, error) {
	f, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	clone := *f
	return &clone, nil
}

func (r *fakeFeedRepo) GetByURL(_ context.Context, url string) (*entity.Feed, error) {
	for _, f := range r.byID {
		if f.URL == url {
			clone := *f
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeFeedRepo) Create(_ context.Context, feed *entity.Feed) error {
	r.nextID++
	feed.ID = r.nextID
	clone := *feed
	r.byID[feed.ID] = &clone
	return nil
}

func (r *fakeFeedRepo) Update(_ context.Context, feed *entity.Feed) error {
	clone := *feed
	r.byID[feed.ID] = &clone
	return nil
}

func (r *fakeFeedRepo) Delete(_ context.Context, id int64) error {
	delete(r.byID, id)
	return nil
}

func (r *fakeFeedRepo) TakeOutdated(_ context.Context, olderThan time.Time) ([]*entity.Feed, error) {
	var out []*entity.Feed
	for _, f := range r.byID {
		if f.DtChecked.Before(olderThan) {
			clone := *f
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeFeedRepo) NextOffset(_ context.Context, feedID int64) (int64, error) {
	offset := r.nextOffsets[feedID]
	r.nextOffsets[feedID] = offset + 1
	return offset, nil
}

func (r *fakeFeedRepo) IncrementMonthlyCount(_ context.Context, feedID int64, monthID int32, delta int64) error {
	f, ok := r.byID[feedID]
	if !ok {
		return nil
	}
	if f.MonthlyStoryCount == nil {
		f.MonthlyStoryCount = make(map[int32]int64)
	}
	f.MonthlyStoryCount[monthID] += delta
	return nil
}

func (r *fakeFeedRepo) MergeInto(_ context.Context, sourceFeedID, targetFeedID int64) error {
	r.merged = append(r.merged, mergeCall{source: sourceFeedID, target: targetFeedID})
	delete(r.byID, sourceFeedID)
	return nil
}

// fakeStoryRepo is an in-memory repository.StoryRepository.
type fakeStoryRepo struct {
	byID   map[int64]*entity.Story
	nextID int64
}

func newFakeStoryRepo() *fakeStoryRepo {
	return &fakeStoryRepo{byID: make(map[int64]*entity.Story)}
}

func (r *fakeStoryRepo) Get(_ context.Context, id int64) (*entity.Story, error) {
	s, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	clone := *s
	return &clone, nil
}

func (r *fakeStoryRepo) GetByFeedAndUniqueID(_ context.Context, feedID int64, uniqueID string) (*entity.Story, error) {
	for _, s := range r.byID {
		if s.FeedID == feedID && s.UniqueID == uniqueID {
			clone := *s
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeStoryRepo) BulkSaveByFeed(_ context.Context, feedID int64, storys []*entity.Story) (*repository.BulkSaveResult, error) {
	result := &repository.BulkSaveResult{ModifiedStorys: make([]*entity.Story, 0, len(storys))}
	for _, candidate := range storys {
		var existing *entity.Story
		for _, s := range r.byID {
			if s.FeedID == feedID && s.UniqueID == candidate.UniqueID {
				existing = s
				break
			}
		}
		if existing == nil {
			r.nextID++
			candidate.ID = r.nextID
			candidate.FeedID = feedID
			clone := *candidate
			r.byID[candidate.ID] = &clone
			result.ModifiedStorys = append(result.ModifiedStorys, candidate)
			continue
		}
		if existing.ContentHashBase64 == candidate.ContentHashBase64 {
			continue
		}
		candidate.ID = existing.ID
		candidate.FeedID = feedID
		clone := *candidate
		r.byID[candidate.ID] = &clone
		if existing.DtPublished.Month() != candidate.DtPublished.Month() || existing.DtPublished.Year() != candidate.DtPublished.Year() {
			result.NumReallocate++
		}
		result.ModifiedStorys = append(result.ModifiedStorys, candidate)
	}
	return result, nil
}

func (r *fakeStoryRepo) ExistingHashes(_ context.Context, feedID int64, uniqueIDs []string) (map[string]string, error) {
	wanted := make(map[string]bool, len(uniqueIDs))
	for _, id := range uniqueIDs {
		wanted[id] = true
	}
	hashes := make(map[string]string)
	for _, s := range r.byID {
		if s.FeedID == feedID && wanted[s.UniqueID] {
			hashes[s.UniqueID] = s.ContentHashBase64
		}
	}
	return hashes, nil
}

func (r *fakeStoryRepo) UpdateContent(_ context.Context, storyID int64, content, summary, link string) error {
	s, ok := r.byID[storyID]
	if !ok {
		return nil
	}
	s.Content = content
	s.Summary = summary
	if link != "" {
		s.Link = link
	}
	return nil
}

// fakeFeedCreationRepo is an in-memory repository.FeedCreationRepository.
type fakeFeedCreationRepo struct {
	byID map[int64]*entity.FeedCreation
}

func newFakeFeedCreationRepo() *fakeFeedCreationRepo {
	return &fakeFeedCreationRepo{byID: make(map[int64]*entity.FeedCreation)}
}

func (r *fakeFeedCreationRepo) Get(_ context.Context, id int64) (*entity.FeedCreation, error) {
	fc, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	clone := *fc
	return &clone, nil
}

func (r *fakeFeedCreationRepo) Create(_ context.Context, fc *entity.FeedCreation) error {
	clone := *fc
	r.byID[fc.ID] = &clone
	return nil
}

func (r *fakeFeedCreationRepo) UpdateStatus(_ context.Context, id int64, status entity.FeedCreationStatus) error {
	if fc, ok := r.byID[id]; ok {
		fc.Status = status
	}
	return nil
}

func (r *fakeFeedCreationRepo) Update(_ context.Context, fc *entity.FeedCreation) error {
	clone := *fc
	r.byID[fc.ID] = &clone
	return nil
}

func (r *fakeFeedCreationRepo) DeleteTerminalOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, fc := range r.byID {
		if fc.IsTerminal() && fc.DtUpdated.Before(cutoff) {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeFeedCreationRepo) FindStuck(_ context.Context, status entity.FeedCreationStatus, cutoff time.Time) ([]*entity.FeedCreation, error) {
	var out []*entity.FeedCreation
	for _, fc := range r.byID {
		if fc.Status == status && fc.DtUpdated.Before(cutoff) {
			clone := *fc
			out = append(out, &clone)
		}
	}
	return out, nil
}

// fakeUserFeedRepo is an in-memory repository.UserFeedRepository.
type fakeUserFeedRepo struct {
	rows []*entity.UserFeed
}

func newFakeUserFeedRepo() *fakeUserFeedRepo {
	return &fakeUserFeedRepo{}
}

func (r *fakeUserFeedRepo) Exists(_ context.Context, userID, feedID int64) (bool, error) {
	for _, uf := range r.rows {
		if uf.UserID == userID && uf.FeedID == feedID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserFeedRepo) Create(_ context.Context, uf *entity.UserFeed) error {
	clone := *uf
	r.rows = append(r.rows, &clone)
	return nil
}

func (r *fakeUserFeedRepo) ReassignFeed(_ context.Context, sourceFeedID, targetFeedID int64) error {
	for _, uf := range r.rows {
		if uf.FeedID == sourceFeedID {
			uf.FeedID = targetFeedID
		}
	}
	return nil
}

// fakeFeedURLMapRepo is an in-memory repository.FeedUrlMapRepository.
type fakeFeedURLMapRepo struct {
	rows []*entity.FeedUrlMap
}

func newFakeFeedURLMapRepo() *fakeFeedURLMapRepo {
	return &fakeFeedURLMapRepo{}
}

func (r *fakeFeedURLMapRepo) Create(_ context.Context, m *entity.FeedUrlMap) error {
	clone := *m
	r.rows = append(r.rows, &clone)
	return nil
}

func (r *fakeFeedURLMapRepo) GetBySource(_ context.Context, source string) (*entity.FeedUrlMap, error) {
	for _, m := range r.rows {
		if m.Source == source {
			clone := *m
			return &clone, nil
		}
	}
	return nil, nil
}

// fakeBus is a minimal messaging.Bus recording every Tell/Hope for
// assertion. Registered handlers are stored but never invoked, so no
// cross-handler effects take place.
type fakeBus struct {
	handlers map[string]messaging.Handler
	tells    []fakeDelivery
	hopes    []fakeDelivery
}

type fakeDelivery struct {
	Name     string
	Payload  any
	ExpireAt time.Time
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]messaging.Handler)}
}

func (b *fakeBus) RegisterHandler(name string, fn messaging.Handler) {
	b.handlers[name] = fn
}

func (b *fakeBus) Tell(ctx context.Context, name string, payload any) error {
	b.tells = append(b.tells, fakeDelivery{Name: name, Payload: payload})
	return nil
}

func (b *fakeBus) Hope(ctx context.Context, name string, payload any, expireAt time.Time) {
	b.hopes = append(b.hopes, fakeDelivery{Name: name, Payload: payload, ExpireAt: expireAt})
}

func (b *fakeBus) Shutdown(_ context.Context) error {
	return nil
}
