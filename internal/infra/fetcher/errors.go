// Package fetcher fetches a story's source webpage and extracts clean
// article text via Mozilla Readability, for the worker's fetch_story /
// process_story_webpage pipeline.
package fetcher

import "errors"

// Sentinel errors for content fetching operations, letting callers fall back
// to the RSS-provided content on any of these.
var (
	// ErrInvalidURL indicates the URL format is invalid or uses an
	// unsupported scheme. Only http:// and https:// are allowed.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates the URL resolves to a private IP address
	// (SSRF prevention).
	ErrPrivateIP = errors.New("private IP access denied (SSRF prevention)")

	// ErrTooManyRedirects indicates the redirect chain exceeded the
	// configured maximum.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrReadabilityFailed indicates content extraction failed or found no
	// readable text.
	ErrReadabilityFailed = errors.New("content extraction failed")
)
