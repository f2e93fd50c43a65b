// Package entity defines the core domain entities and validation logic for the
// ingestion pipeline: Feed, Story, FeedCreation, UserFeed and FeedUrlMap, along
// with their validation rules and domain-specific errors.
package entity

import "time"

// FeedStatus is the lifecycle state of a Feed.
type FeedStatus string

const (
	FeedStatusPending  FeedStatus = "PENDING"
	FeedStatusUpdating FeedStatus = "UPDATING"
	FeedStatusReady    FeedStatus = "READY"
	FeedStatusError    FeedStatus = "ERROR"
)

// Feed represents a subscribed RSS/Atom source and its last-known sync state.
// Url is unique across live Feeds; when a Feed's Url moves to one another
// Feed already owns, the moved Feed is merged into that owner and the source
// Feed is destroyed. Which of the two is older is not considered.
type Feed struct {
	ID                int64
	URL               string
	Title             string
	Link              string
	Author            string
	Icon              string
	Description       string
	Version           string
	Encoding          string
	ETag              string
	LastModified      string
	ContentHashBase64 string
	Status            FeedStatus
	DtUpdated         time.Time
	DtChecked         time.Time
	DtSynced          time.Time
	// MonthlyStoryCount maps a dense year-month id (see internal/pkg/monthid) to the
	// number of Stories published in that month. Maintained by bulk story save.
	MonthlyStoryCount map[int32]int64
}

// TotalStorys sums MonthlyStoryCount; a convenience derived from the month map
// rather than a separately persisted counter.
func (f *Feed) TotalStorys() int64 {
	var total int64
	for _, c := range f.MonthlyStoryCount {
		total += c
	}
	return total
}

// Validate checks structural invariants that must hold before a Feed is
// persisted. It does not perform network validation of URL; callers that
// accept Feed URLs from external input should also call ValidateURL.
func (f *Feed) Validate() error {
	if f.URL == "" {
		return &ValidationError{Field: "url", Message: "feed url is required"}
	}
	if f.Status == "" {
		f.Status = FeedStatusPending
	}
	switch f.Status {
	case FeedStatusPending, FeedStatusUpdating, FeedStatusReady, FeedStatusError:
	default:
		return &ValidationError{Field: "status", Message: "invalid feed status: " + string(f.Status)}
	}
	if f.DtChecked.Before(f.DtSynced) {
		return &ValidationError{Field: "dt_checked", Message: "dt_checked must not precede dt_synced"}
	}
	return nil
}
