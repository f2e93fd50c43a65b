// Package freshness implements the content-intelligence heuristics that
// decide whether a feed is "productive" (news-like cadence), whether a
// story already carries full text, and whether a feed's storys need
// per-story webpage fetching at all. All functions are pure: no I/O, no
// persistence, safe to call from any actor.
package freshness

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"rssant/internal/domain/entity"
	"rssant/internal/pkg/monthid"
	"rssant/internal/pkg/texthash"
)

// productiveWindowMonths is the number of trailing monthly buckets examined
// by IsProductiveFeed.
const productiveWindowMonths = 18

// productiveFreqThreshold is the minimum stories/day rate that marks a feed
// as productive.
const productiveFreqThreshold = 1.0

// IsProductiveFeed classifies a feed as "news-like": one that already
// publishes at a high enough cadence that its RSS entries are assumed to
// carry full text, so per-story webpage fetching is unnecessary.
//
// monthlyCounts is Feed.MonthlyStoryCount; date anchors the trailing window.
func IsProductiveFeed(monthlyCounts map[int32]int64, date time.Time) bool {
	year := date.Year()
	if year < 1970 || year > 9999 {
		return true
	}

	endID := monthid.IDOfMonth(year, int(date.Month()))
	counts := make([]int64, 0, productiveWindowMonths)
	for i := productiveWindowMonths - 1; i >= 0; i-- {
		id := endID - int32(i)
		if id < 0 {
			id = 0
		}
		counts = append(counts, monthlyCounts[id])
	}

	allZero := true
	for _, c := range counts {
		if c != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return true
	}

	last3 := counts[len(counts)-3:]
	var max3 int64
	for _, c := range last3 {
		if c > max3 {
			max3 = c
		}
	}
	freq3m := float64(max3) / 30.0

	var sumNonZero int64
	var countNonZero int64
	for _, c := range counts {
		if c != 0 {
			sumNonZero += c
			countNonZero++
		}
	}
	var freq18m float64
	if countNonZero > 0 {
		freq18m = (float64(sumNonZero) / float64(countNonZero)) / 30.0
	}

	freq := freq3m
	if freq18m > freq {
		freq = freq18m
	}
	return freq >= productiveFreqThreshold
}

var anchorTagPattern = regexp.MustCompile(`(?i)<a\s+[^>]*href=`)
var bareURLPattern = regexp.MustCompile(`https?://\S+`)
var imgTagPattern = regexp.MustCompile(`(?i)<img\s`)

// IsFulltextStory decides whether story.Content already carries the story's
// full text, so no webpage fetch is needed to enrich it. The checks run as
// a short-circuit ladder matching original_source exactly: an empty check
// earlier in the list always wins over a later one.
func IsFulltextStory(feed *entity.Feed, story *entity.Story) bool {
	if story.Content == "" {
		return false
	}
	if len([]rune(story.Content)) >= 2000 {
		return true
	}
	if story.DtPublished.IsZero() {
		return true
	}
	if IsProductiveFeed(feed.MonthlyStoryCount, story.DtPublished) {
		return true
	}
	if len(anchorTagPattern.FindAllString(story.Content, -1)) >= 2 {
		return true
	}
	if len(bareURLPattern.FindAllString(story.Content, -1)) >= 3 {
		return true
	}
	if len(imgTagPattern.FindAllString(story.Content, -1)) >= 1 {
		return true
	}
	return false
}

// fullContentHostSuffixes lists hosts whose RSS entries are already known to
// carry complete content, so per-story webpage fetching would be wasted
// work. Matched by hostname suffix.
var fullContentHostSuffixes = []string{
	"v2ex.com",
	"news.ycombinator.com",
	"github.com",
	"pypi.org",
}

// IsFeedNeedFetchStorys reports whether storys belonging to feedURL's feed
// should be enriched with a per-story webpage fetch. False for the known
// full-content host blacklist.
func IsFeedNeedFetchStorys(feedURL string) bool {
	u, err := url.Parse(feedURL)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, suffix := range fullContentHostSuffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return false
		}
	}
	return true
}

// ContentHashBase64 re-exports texthash.ContentHashBase64 for callers that
// only import freshness; the canonical implementation lives in internal/pkg/texthash
// since the normalizer needs it independently of any heuristic.
func ContentHashBase64(parts ...string) string {
	return texthash.ContentHashBase64(parts...)
}
