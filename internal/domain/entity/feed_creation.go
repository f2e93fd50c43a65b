package entity

import "time"

// FeedCreationStatus is the lifecycle state of a FeedCreation request.
type FeedCreationStatus string

const (
	FeedCreationPending  FeedCreationStatus = "PENDING"
	FeedCreationUpdating FeedCreationStatus = "UPDATING"
	FeedCreationReady    FeedCreationStatus = "READY"
	FeedCreationError    FeedCreationStatus = "ERROR"
)

// FeedCreation tracks a user-initiated request to subscribe to a feed url
// whose outcome (Feed, found via discovery, or failure) is not yet known.
// FeedID is nil until the request resolves to READY.
type FeedCreation struct {
	ID             int64
	UserID         int64
	URL            string
	IsFromBookmark bool
	Status         FeedCreationStatus
	Message        string
	FeedID         *int64
	DtCreated      time.Time
	DtUpdated      time.Time
}

// IsTerminal reports whether the creation request has reached READY or ERROR
// and will not transition further without external intervention.
func (fc *FeedCreation) IsTerminal() bool {
	return fc.Status == FeedCreationReady || fc.Status == FeedCreationError
}
