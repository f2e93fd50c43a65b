// Package texthash provides the small set of text utilities the feed
// normalizer and harbor actors share: a canonical content hash, a rune-aware
// truncator, and an HTML-to-plain-text reducer.
package texthash

import (
	"crypto/sha1"
	"encoding/base64"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ContentHashBase64 returns the base64-encoded SHA-1 digest of the
// concatenation of parts, in the order given. Order is significant: callers
// must pass inputs in the same fixed order every time (for a story this is
// content, summary, title).
func ContentHashBase64(parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Shorten truncates s to at most n visible (rune) characters, collapsing
// runs of whitespace to single spaces first. An empty or already-short s is
// returned unchanged (after whitespace collapsing).
func Shorten(s string, n int) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	runes := []rune(collapsed)
	if len(runes) <= n {
		return collapsed
	}
	return string(runes[:n])
}

// HTMLToText strips markup from html and returns the concatenated visible
// text, with runs of whitespace collapsed to single spaces.
func HTMLToText(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
