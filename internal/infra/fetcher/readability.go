package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"rssant/internal/resilience/circuitbreaker"

	"github.com/go-shiori/go-readability"
)

// ReadabilityFetcher fetches a story's source webpage and extracts clean
// article text via go-shiori/go-readability. It is called by the worker's
// fetch_story handler; ContentFetchConfig.Threshold is not consulted.
//
// It is SSRF-guarded (validateURL on the initial request and every
// redirect hop), circuit-breaker-wrapped, size-limited, and safe for
// concurrent use.
type ReadabilityFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         ContentFetchConfig
}

func NewReadabilityFetcher(config ContentFetchConfig) *ReadabilityFetcher {
	cbConfig := circuitbreaker.Config{
		Name:             "content-fetch",
		MaxRequests:      5,
		Interval:         60 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
	cb := circuitbreaker.New(cbConfig)

	f := &ReadabilityFetcher{
		circuitBreaker: cb,
		config:         config,
	}

	f.client = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}
	return f
}

// fetchResult carries doFetch's result through circuitBreaker.Execute's
// interface{} return, so FetchContent can hand the caller the URL the
// content was actually read from alongside the content itself.
type fetchResult struct {
	content  string
	finalURL string
}

// FetchContent validates urlStr, fetches it through the circuit breaker,
// and returns the extracted article body as cleaned HTML along with the
// final URL the response came from (redirects followed).
func (f *ReadabilityFetcher) FetchContent(ctx context.Context, urlStr string) (content, finalURL string, err error) {
	if err := validateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return "", "", err
	}

	result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.doFetch(ctx, urlStr)
	})
	if err != nil {
		return "", "", err
	}
	fr := result.(fetchResult)
	return fr.content, fr.finalURL, nil
}

func (f *ReadabilityFetcher) doFetch(ctx context.Context, urlStr string) (fetchResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fetchResult{}, fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", "rssant-worker/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return fetchResult{}, fmt.Errorf("%w: request exceeded %v", ErrTimeout, f.config.Timeout)
		}
		if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
			return fetchResult{}, urlErr.Err
		}
		return fetchResult{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fetchResult{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	limitedReader := io.LimitReader(resp.Body, f.config.MaxBodySize+1)
	htmlBytes, err := io.ReadAll(limitedReader)
	if err != nil {
		return fetchResult{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(htmlBytes)) > f.config.MaxBodySize {
		return fetchResult{}, fmt.Errorf("%w: response size %d bytes exceeds limit %d bytes",
			ErrBodyTooLarge, len(htmlBytes), f.config.MaxBodySize)
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		parsedURL = nil
	}
	if resp.Request != nil && resp.Request.URL != nil {
		parsedURL = resp.Request.URL
	}
	finalURL := urlStr
	if parsedURL != nil {
		finalURL = parsedURL.String()
	}

	htmlReader := io.NopCloser(bytes.NewReader(htmlBytes))
	article, err := readability.FromReader(htmlReader, parsedURL)
	if err != nil {
		return fetchResult{}, fmt.Errorf("%w: %v", ErrReadabilityFailed, err)
	}

	// Content (cleaned HTML) is preferred over TextContent: the harbor side
	// stores story content as HTML so the image pipeline can still find and
	// rewrite <img> tags inside it.
	if article.Content == "" {
		if article.TextContent == "" {
			return fetchResult{}, fmt.Errorf("%w: no readable content found", ErrReadabilityFailed)
		}
		slog.Debug("using article TextContent instead of Content",
			slog.String("url", urlStr),
			slog.Int("content_length", len(article.TextContent)))
		return fetchResult{content: article.TextContent, finalURL: finalURL}, nil
	}

	return fetchResult{content: article.Content, finalURL: finalURL}, nil
}
