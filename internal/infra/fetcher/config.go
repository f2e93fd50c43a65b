package fetcher

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ContentFetchConfig controls how the full story webpage is fetched. Whether
// a story's webpage is fetched at all is decided by harbor's update_feed
// (freshness.IsFulltextStory), not by this config.
type ContentFetchConfig struct {
	// Enabled is loaded and validated but not read by ReadabilityFetcher or
	// the worker handlers; setting it false does not stop webpage fetches.
	Enabled bool

	// Threshold is a content length in characters; it is loaded and
	// validated but not read by ReadabilityFetcher or the worker handlers.
	Threshold int

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// Parallelism caps concurrent image probes; both binaries pass it to
	// imageproc.NewProber.
	Parallelism int

	// MaxBodySize is the largest response body accepted, in bytes.
	MaxBodySize int64

	// MaxRedirects is the largest redirect chain followed; each hop is
	// revalidated for SSRF.
	MaxRedirects int

	// DenyPrivateIPs blocks resolution to loopback/private/link-local
	// addresses. Should stay true outside of local development.
	DenyPrivateIPs bool
}

func DefaultConfig() ContentFetchConfig {
	return ContentFetchConfig{
		Enabled:        true,
		Threshold:      1500,
		Timeout:        10 * time.Second,
		Parallelism:    10,
		MaxBodySize:    10 * 1024 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

func (c *ContentFetchConfig) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", c.Threshold)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.Parallelism < 1 || c.Parallelism > 50 {
		return fmt.Errorf("parallelism must be between 1 and 50, got %d", c.Parallelism)
	}
	const minBodySize = int64(1024)
	const maxBodySize = int64(100 * 1024 * 1024)
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	return nil
}

// LoadConfigFromEnv loads CONTENT_FETCH_* overrides on top of
// DefaultConfig: an unset variable keeps the default, a malformed one
// returns an error rather than silently ignoring it.
//
//	CONTENT_FETCH_ENABLED, CONTENT_FETCH_THRESHOLD, CONTENT_FETCH_TIMEOUT,
//	CONTENT_FETCH_PARALLELISM, CONTENT_FETCH_MAX_BODY_SIZE,
//	CONTENT_FETCH_MAX_REDIRECTS, CONTENT_FETCH_DENY_PRIVATE_IPS
func LoadConfigFromEnv() (ContentFetchConfig, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("CONTENT_FETCH_ENABLED"); val != "" {
		cfg.Enabled = val == "true"
	}
	if val := os.Getenv("CONTENT_FETCH_THRESHOLD"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid CONTENT_FETCH_THRESHOLD: %w", err)
		}
		cfg.Threshold = parsed
	}
	if val := os.Getenv("CONTENT_FETCH_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid CONTENT_FETCH_TIMEOUT: %w (expected format: '10s', '1m')", err)
		}
		cfg.Timeout = parsed
	}
	if val := os.Getenv("CONTENT_FETCH_PARALLELISM"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid CONTENT_FETCH_PARALLELISM: %w", err)
		}
		cfg.Parallelism = parsed
	}
	if val := os.Getenv("CONTENT_FETCH_MAX_BODY_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid CONTENT_FETCH_MAX_BODY_SIZE: %w", err)
		}
		cfg.MaxBodySize = parsed
	}
	if val := os.Getenv("CONTENT_FETCH_MAX_REDIRECTS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid CONTENT_FETCH_MAX_REDIRECTS: %w", err)
		}
		cfg.MaxRedirects = parsed
	}
	if val := os.Getenv("CONTENT_FETCH_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
