// Package scraper fetches and parses RSS/Atom feeds with circuit breaker and
// retry reliability patterns, folding the parsed result into the
// parser-neutral shape internal/domain/normalize expects.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"rssant/internal/domain/normalize"
	"rssant/internal/resilience/circuitbreaker"
	"rssant/internal/resilience/retry"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// ErrNotModified is returned by Fetch when the origin responded 304, meaning
// the caller's cached ETag/LastModified are still current.
var ErrNotModified = errors.New("scraper: feed not modified")

// FeedParser retrieves a feed over HTTP and converts it into the
// parser-neutral normalize.ParsedFeed plus normalize.HTTPMeta; turning
// those into a FeedSchema is left to normalize.Normalize. It carries its own circuit
// breaker and retry policy so a misbehaving origin cannot cascade into
// worker exhaustion.
type FeedParser struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	userAgent      string
}

func NewFeedParser(client *http.Client) *FeedParser {
	return &FeedParser{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
		userAgent:      "rssant-worker/1.0",
	}
}

// Fetch retrieves feedURL, sending If-None-Match/If-Modified-Since when
// etag/lastModified are non-empty, and returns the parsed feed with its
// HTTP metadata; it does not call normalize.Normalize, and now is unused.
// A 304 response yields ErrNotModified.
func (p *FeedParser) Fetch(ctx context.Context, feedURL, etag, lastModified string, now time.Time) (*normalize.ParsedFeed, normalize.HTTPMeta, error) {
	type fetchResult struct {
		parsed normalize.ParsedFeed
		meta   normalize.HTTPMeta
	}

	var result fetchResult
	retryErr := retry.WithBackoff(ctx, p.retryConfig, func() error {
		cbResult, err := p.circuitBreaker.Execute(func() (interface{}, error) {
			return p.doFetch(ctx, feedURL, etag, lastModified)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("url", feedURL),
					slog.String("state", p.circuitBreaker.State().String()))
			}
			return err
		}
		r := cbResult.(struct {
			parsed normalize.ParsedFeed
			meta   normalize.HTTPMeta
		})
		result = fetchResult(r)
		return nil
	})
	if retryErr != nil {
		return nil, normalize.HTTPMeta{}, retryErr
	}
	return &result.parsed, result.meta, nil
}

func (p *FeedParser) doFetch(ctx context.Context, feedURL, etag, lastModified string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("doFetch: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("doFetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return nil, ErrNotModified
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("doFetch: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("doFetch: read body: %w", err)
	}

	fp := gofeed.NewParser()
	gf, err := fp.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("doFetch: parse: %w", err)
	}

	return struct {
		parsed normalize.ParsedFeed
		meta   normalize.HTTPMeta
	}{
		parsed: toParsedFeed(gf),
		meta: normalize.HTTPMeta{
			FinalURL:     resp.Request.URL.String(),
			BodyBytes:    body,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Encoding:     gf.Language,
		},
	}, nil
}

func toParsedFeed(gf *gofeed.Feed) normalize.ParsedFeed {
	pf := normalize.ParsedFeed{
		Link:        gf.Link,
		Title:       gf.Title,
		Version:     gf.FeedVersion,
		Icon:        iconURL(gf),
		Description: gf.Description,
	}
	if gf.Author != nil {
		pf.Author = gf.Author.Name
		pf.AuthorHref = gf.Author.Email
	}
	if gf.UpdatedParsed != nil {
		pf.UpdatedParsed = gf.UpdatedParsed
	}
	if gf.PublishedParsed != nil {
		pf.PublishedParsed = gf.PublishedParsed
	}

	pf.Entries = make([]normalize.ParsedEntry, 0, len(gf.Items))
	for _, it := range gf.Items {
		entry := normalize.ParsedEntry{
			ID:              it.GUID,
			Link:            it.Link,
			Title:           it.Title,
			Description:     it.Description,
			PublishedParsed: it.PublishedParsed,
			UpdatedParsed:   it.UpdatedParsed,
		}
		if it.Content != "" {
			entry.ContentParts = []string{it.Content}
		}
		if it.Author != nil {
			entry.Author = it.Author.Name
		}
		pf.Entries = append(pf.Entries, entry)
	}
	return pf
}

func iconURL(gf *gofeed.Feed) string {
	if gf.Image != nil {
		return gf.Image.URL
	}
	return ""
}
