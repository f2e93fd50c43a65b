package scraper_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"rssant/internal/infra/scraper"
)

func TestFeedFinder_Find_DirectFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	finder := scraper.NewFeedFinder(srv.Client())
	found, messages := finder.Find(context.Background(), srv.URL)
	assert.Equal(t, srv.URL, found)
	assert.NotEmpty(t, messages)
}

func TestFeedFinder_Find_HTMLAlternateLink(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head>
<link rel="alternate" type="application/rss+xml" href="/feed.xml">
</head><body></body></html>`))
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	})
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	finder := scraper.NewFeedFinder(srv.Client())
	found, messages := finder.Find(context.Background(), srv.URL)
	assert.Equal(t, srv.URL+"/feed.xml", found)
	assert.NotEmpty(t, messages)
}

func TestFeedFinder_Find_CommonPath(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>no feed links here</body></html>`))
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	})
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	finder := scraper.NewFeedFinder(srv.Client())
	found, messages := finder.Find(context.Background(), srv.URL)
	assert.Equal(t, srv.URL+"/feed", found)
	assert.NotEmpty(t, messages)
}

func TestFeedFinder_Find_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	finder := scraper.NewFeedFinder(srv.Client())
	found, messages := finder.Find(context.Background(), srv.URL)
	assert.Equal(t, "", found)
	assert.NotEmpty(t, messages)
}
