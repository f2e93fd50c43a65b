package entity

// NotFoundTarget is the sentinel FeedUrlMap.Target recorded when discovery
// could not resolve Source to any Feed.
const NotFoundTarget = "NOT_FOUND"

// FeedUrlMap is an append-only audit record: Source resolved to canonical
// Target (or to NotFoundTarget). Consulted by discovery to short-circuit
// repeated failed lookups.
type FeedUrlMap struct {
	Source string
	Target string
}
