// Package normalize folds raw parser output and HTTP response metadata into
// the canonical FeedSchema/StorySchema the harbor side consumes, matching
// the field-fallback rules of the original "parse_found" / "get_storys"
// normalization step.
package normalize

import (
	"net/url"
	"strings"
	"time"

	"rssant/internal/messaging"
	"rssant/internal/pkg/texthash"
)

const (
	maxTitleLen   = 200
	maxUniqueIDLen = 200
	maxSummaryLen = 300
)

// ParsedFeed is the parser-neutral shape a feed parser produces: feed-level
// metadata plus entries, decoupled from any specific parsing library so this
// package never imports one.
type ParsedFeed struct {
	Link            string
	AuthorHref      string
	Title           string
	Author          string
	Version         string
	Icon            string
	Logo            string
	Description     string
	Subtitle        string
	UpdatedParsed   *time.Time
	PublishedParsed *time.Time
	Entries         []ParsedEntry
}

// ParsedEntry is a single feed item as produced by the parser.
type ParsedEntry struct {
	ID              string
	Link            string
	Title           string
	Author          string
	ContentParts    []string // entry.content[*].value, in document order
	Description     string
	Summary         string
	PublishedParsed *time.Time
	UpdatedParsed   *time.Time
}

// HTTPMeta is the subset of the raw HTTP response the normalizer needs.
type HTTPMeta struct {
	FinalURL     string
	BodyBytes    []byte
	ETag         string
	LastModified string
	Encoding     string
}

// Normalize folds parsed and httpMeta into a canonical FeedSchema. now is
// injected so future-timestamp clamping is deterministic in tests; fallback
// is the dt_updated value used when the parser provided nothing usable.
func Normalize(parsed ParsedFeed, httpMeta HTTPMeta, now time.Time, fallback time.Time) messaging.FeedSchema {
	finalURL, err := url.QueryUnescape(httpMeta.FinalURL)
	if err != nil {
		finalURL = httpMeta.FinalURL
	}

	link, err := url.QueryUnescape(parsed.Link)
	if err != nil {
		link = parsed.Link
	}
	if !strings.HasPrefix(link, "http") && parsed.AuthorHref != "" {
		link = parsed.AuthorHref
	}

	icon := parsed.Icon
	if icon == "" {
		icon = parsed.Logo
	}
	description := parsed.Description
	if description == "" {
		description = parsed.Subtitle
	}

	dtUpdated := clampFuture(firstNonNil(parsed.UpdatedParsed, parsed.PublishedParsed), now, fallback)

	storys := make([]messaging.StorySchema, 0, len(parsed.Entries))
	for _, e := range parsed.Entries {
		storys = append(storys, normalizeEntry(e, now, fallback))
	}

	return messaging.FeedSchema{
		URL:               finalURL,
		Title:             texthash.Shorten(parsed.Title, maxTitleLen),
		ContentHashBase64: texthash.ContentHashBase64(string(httpMeta.BodyBytes)),
		Link:              link,
		Author:            texthash.Shorten(parsed.Author, maxTitleLen),
		Icon:              icon,
		Description:       description,
		Version:           texthash.Shorten(parsed.Version, maxTitleLen),
		Encoding:          httpMeta.Encoding,
		ETag:              httpMeta.ETag,
		LastModified:      httpMeta.LastModified,
		DtUpdated:         dtUpdated,
		Storys:            storys,
	}
}

func normalizeEntry(e ParsedEntry, now, fallback time.Time) messaging.StorySchema {
	uniqueIDSrc := e.ID
	if uniqueIDSrc == "" {
		uniqueIDSrc = e.Link
	}
	uniqueID := texthash.Shorten(uniqueIDSrc, maxUniqueIDLen)

	content := strings.Join(e.ContentParts, "\n<br/>\n")
	if content == "" {
		content = e.Description
	}
	if content == "" {
		content = e.Summary
	}

	summarySource := e.Summary
	if summarySource == "" {
		summarySource = content
	}
	summary := texthash.Shorten(texthash.HTMLToText(summarySource), maxSummaryLen)

	title := texthash.Shorten(e.Title, maxTitleLen)
	contentHash := texthash.ContentHashBase64(content, summary, title)

	link, err := url.QueryUnescape(e.Link)
	if err != nil {
		link = e.Link
	}

	dtPublished := clampFuture(firstNonNil(e.PublishedParsed, e.UpdatedParsed), now, fallback)
	dtUpdated := clampFuture(firstNonNil(e.UpdatedParsed, e.PublishedParsed), now, fallback)

	return messaging.StorySchema{
		UniqueID:          uniqueID,
		Title:             title,
		ContentHashBase64: contentHash,
		Author:            e.Author,
		Link:              link,
		Summary:           summary,
		Content:           content,
		DtPublished:       dtPublished,
		DtUpdated:         dtUpdated,
	}
}

// clampFuture returns t if it is set and not after now, otherwise fallback.
func clampFuture(t *time.Time, now, fallback time.Time) time.Time {
	if t == nil || t.IsZero() || t.After(now) {
		return fallback
	}
	return *t
}

func firstNonNil(a, b *time.Time) *time.Time {
	if a != nil {
		return a
	}
	return b
}
