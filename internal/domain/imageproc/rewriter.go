package imageproc

import (
	"encoding/base64"
	"strings"

	"rssant/internal/messaging"

	"github.com/PuerkitoBio/goquery"
)

// ImageProxyPrefix is the path prefix image-rewritten URLs are placed under.
const ImageProxyPrefix = "/api/v1/image/"

// EncodeImageURL produces a compact, URL-safe encoding of (imageURL,
// storyURL) sufficient for an image proxy to recover both at decode time.
// The proxy itself is a system-boundary component outside this core; this
// encoding only needs to be deterministic and reversible.
func EncodeImageURL(imageURL, storyURL string) string {
	joined := imageURL + "\x00" + storyURL
	return base64.RawURLEncoding.EncodeToString([]byte(joined))
}

// DecodeImageURL reverses EncodeImageURL.
func DecodeImageURL(encoded string) (imageURL, storyURL string, ok bool) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(raw), "\x00", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Rewriter replaces denied-status image URLs in story HTML with proxied
// equivalents, in place.
type Rewriter struct{}

// NewRewriter constructs a Rewriter. It holds no state; exported as a type
// for symmetry with Prober and to leave room for future configuration.
func NewRewriter() *Rewriter {
	return &Rewriter{}
}

// Rewrite walks html's <img> tags and replaces the src of any image whose
// status (per images) is in the denied set with a proxied URL. Images not
// present in images, or present with a non-denied status, are left alone.
func (r *Rewriter) Rewrite(html, storyURL string, images []messaging.ImageStatus) (string, bool) {
	if html == "" || len(images) == 0 {
		return html, false
	}

	statusByURL := make(map[string]int, len(images))
	for _, img := range images {
		statusByURL[img.URL] = img.Status
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html, false
	}

	changed := false
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, exists := sel.Attr("src")
		if !exists {
			return
		}
		status, known := statusByURL[src]
		if !known || !IsDenied(status) {
			return
		}
		proxied := ImageProxyPrefix + EncodeImageURL(src, storyURL)
		sel.SetAttr("src", proxied)
		changed = true
	})

	if !changed {
		return html, false
	}

	out, err := doc.Html()
	if err != nil {
		return html, false
	}
	return out, true
}

// ExtractImageURLs returns the distinct src attributes of every <img> tag
// in html, in document order.
func ExtractImageURLs(html string) []string {
	if html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var urls []string
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, exists := sel.Attr("src")
		if !exists || src == "" || seen[src] {
			return
		}
		seen[src] = true
		urls = append(urls, src)
	})
	return urls
}
