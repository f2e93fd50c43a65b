// Package imageproc implements the Image Probe and Image Rewriter: detecting
// which embedded story images live behind a referer-denying host (or return
// a client error when fetched without hiding the referer), and rewriting
// those image URLs in story HTML to a proxied form.
package imageproc

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"rssant/internal/messaging"

	"golang.org/x/sync/errgroup"
)

// StoryReferer is sent as the Referer header on every probe request.
const StoryReferer = "https://rss.anyant.com/story/"

// refererDenyHosts lists hosts known to reject requests that carry a
// Referer header; probing them would always fail, so the prober
// short-circuits to StatusRefererDeny without issuing a request.
var refererDenyHosts = []string{"qpic.cn", "qlogo.cn", "qq.com"}

// HTTPDoer is satisfied by *http.Client; narrowed so the prober is testable
// with a stub.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Prober concurrently probes a set of image URLs and reports, per URL,
// either the observed HTTP status or a synthetic status for referer-denied
// and transport-failed probes. Uses errgroup.SetLimit for bounded fan-out,
// the same pattern the teacher uses for its concurrent crawl fan-out.
type Prober struct {
	client      HTTPDoer
	parallelism int
}

// NewProber builds a Prober using client for outbound requests, running up
// to parallelism probes concurrently.
func NewProber(client HTTPDoer, parallelism int) *Prober {
	if parallelism <= 0 {
		parallelism = 8
	}
	return &Prober{client: client, parallelism: parallelism}
}

// isRefererDenyHost reports whether host (or one of its parent domains)
// is in the referer-deny list.
func isRefererDenyHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, suffix := range refererDenyHosts {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// Probe fans out one request per distinct URL in imageURLs, bounded by
// p.parallelism concurrent in flight, and returns as soon as ctx is done or
// every probe completes — whichever comes first. Probes still running when
// ctx expires are dropped; their URLs are simply absent from the result,
// matching the "partial success is acceptable" contract.
func (p *Prober) Probe(ctx context.Context, storyURL string, imageURLs []string) []messaging.ImageStatus {
	seen := make(map[string]bool, len(imageURLs))
	unique := make([]string, 0, len(imageURLs))
	for _, u := range imageURLs {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		unique = append(unique, u)
	}

	var mu sync.Mutex
	var collected []messaging.ImageStatus
	record := func(s messaging.ImageStatus) {
		mu.Lock()
		collected = append(collected, s)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)

	for _, imgURL := range unique {
		imgURL := imgURL
		if isRefererDenyHost(imgURL) {
			record(messaging.ImageStatus{URL: imgURL, Status: messaging.StatusRefererDeny})
			continue
		}
		g.Go(func() error {
			record(p.probeOne(gctx, imgURL, storyURL))
			return nil
		})
	}

	// Probes in flight when ctx expires are abandoned rather than awaited:
	// the contract is partial success, not a guaranteed drain.
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]messaging.ImageStatus(nil), collected...)
}

// probeOne issues a single referer-carrying GET and maps the outcome to a
// status code; transport failures map to StatusRefererNotAllowed since the
// most common cause in practice is a host rejecting the Referer header in a
// way that doesn't reach HTTP response handling (connection reset, TLS
// failure).
func (p *Prober) probeOne(ctx context.Context, imgURL, storyURL string) messaging.ImageStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imgURL, nil)
	if err != nil {
		return messaging.ImageStatus{URL: imgURL, Status: messaging.StatusRefererNotAllowed}
	}
	req.Header.Set("Referer", StoryReferer)

	resp, err := p.client.Do(req)
	if err != nil {
		return messaging.ImageStatus{URL: imgURL, Status: messaging.StatusRefererNotAllowed}
	}
	defer resp.Body.Close()
	return messaging.ImageStatus{URL: imgURL, Status: resp.StatusCode}
}

// deniedStatuses is the normative set of statuses that trigger image
// rewriting; per spec this is exact and does not include 5xx.
var deniedStatuses = map[int]bool{
	http.StatusBadRequest:          true,
	http.StatusUnauthorized:        true,
	http.StatusForbidden:           true,
	http.StatusNotFound:            true,
	messaging.StatusRefererDeny:       true,
	messaging.StatusRefererNotAllowed: true,
}

// IsDenied reports whether status is in the normative denied-status set
// that should trigger Image Rewriter substitution.
func IsDenied(status int) bool {
	return deniedStatuses[status]
}
