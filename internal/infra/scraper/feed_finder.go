package scraper

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// commonFeedPaths are well-known paths probed when HTML link discovery finds
// nothing: direct fetch first, then these, in order.
var commonFeedPaths = []string{
	"/feed",
	"/rss",
	"/feed.xml",
	"/rss.xml",
	"/atom.xml",
	"/index.xml",
}

const (
	rssXMLType  = "rss+xml"
	atomXMLType = "atom+xml"
)

// FeedFinder discovers a feed URL for an arbitrary target URL: first by
// trying the URL itself as a feed, then by parsing its HTML for
// <link rel="alternate"> feed tags, then by probing commonFeedPaths.
type FeedFinder struct {
	client *http.Client
	parser *FeedParser
}

func NewFeedFinder(client *http.Client) *FeedFinder {
	return &FeedFinder{client: client, parser: NewFeedParser(client)}
}

// Find returns the first URL that parses as a feed, or "" if none was found,
// along with a human-readable log of what it tried, in order: the target URL
// itself, HTML <link rel="alternate"> discovery, then commonFeedPaths.
func (f *FeedFinder) Find(ctx context.Context, targetURL string) (string, []string) {
	var messages []string

	if f.isValidFeed(ctx, targetURL) {
		messages = append(messages, "found feed at the given url: "+targetURL)
		return targetURL, messages
	}
	messages = append(messages, "given url is not a feed: "+targetURL)

	if candidate, msg := f.discoverFromHTML(ctx, targetURL); candidate != "" {
		messages = append(messages, msg)
		return candidate, messages
	} else if msg != "" {
		messages = append(messages, msg)
	}

	if candidate, msg := f.discoverFromCommonPaths(ctx, targetURL); candidate != "" {
		messages = append(messages, msg)
		return candidate, messages
	} else {
		messages = append(messages, msg)
	}

	return "", messages
}

func (f *FeedFinder) discoverFromHTML(ctx context.Context, baseURL string) (string, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return "", "failed to build request for html discovery: " + err.Error()
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", "failed to fetch html for link discovery: " + err.Error()
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", "html fetch returned non-200 status, skipping link discovery"
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "failed to parse html for link discovery: " + err.Error()
	}

	var candidates []string
	doc.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		linkType, _ := s.Attr("type")
		if !isFeedType(linkType) {
			return
		}
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}
		if resolved := resolveURL(baseURL, href); resolved != "" {
			candidates = append(candidates, resolved)
		}
	})
	if len(candidates) == 0 {
		return "", "no <link rel=alternate> feed tags found in html"
	}

	for _, candidate := range candidates {
		if f.isValidFeed(ctx, candidate) {
			return candidate, "found feed via html <link rel=alternate>: " + candidate
		}
	}
	return "", "html <link rel=alternate> candidates did not parse as feeds"
}

func (f *FeedFinder) discoverFromCommonPaths(ctx context.Context, baseURL string) (string, string) {
	for _, path := range commonFeedPaths {
		candidate := resolveURL(baseURL, path)
		if candidate == "" {
			continue
		}
		if f.isValidFeed(ctx, candidate) {
			return candidate, "found feed at common path: " + candidate
		}
	}
	return "", "no feed found at any common path"
}

func (f *FeedFinder) isValidFeed(ctx context.Context, feedURL string) bool {
	parsed, _, err := f.parser.Fetch(ctx, feedURL, "", "", time.Now())
	return err == nil && parsed != nil && len(parsed.Entries) > 0
}

func isFeedType(linkType string) bool {
	return strings.Contains(linkType, rssXMLType) || strings.Contains(linkType, atomXMLType)
}

func resolveURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
