package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const fetcherTestFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Fetched Podcast</title>
    <link>https://example.com</link>
    <description>Test</description>
    <item>
      <title>Episode 1</title>
      <link>https://example.com/episode1</link>
      <pubDate>Wed, 01 Feb 2023 10:00:00 +0000</pubDate>
    </item>
  </channel>
</rss>`

func newTestFetcher(timeout time.Duration) *Fetcher {
	return NewFetcher(&http.Client{}, NewParser(), "Podcast Tracker Test/1.0", timeout)
}

func TestFetcherRun(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(fetcherTestFeed))
	}))
	defer server.Close()

	fetcher := newTestFetcher(5 * time.Second)
	parsed, err := fetcher.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if parsed.Title != "Fetched Podcast" {
		t.Errorf("Expected title 'Fetched Podcast', got: %s", parsed.Title)
	}
	if len(parsed.Episodes) != 1 {
		t.Errorf("Expected 1 episode, got: %d", len(parsed.Episodes))
	}
	if gotUserAgent != "Podcast Tracker Test/1.0" {
		t.Errorf("Expected custom user agent, got: %s", gotUserAgent)
	}
}

func TestFetcherHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := newTestFetcher(5 * time.Second)
	_, err := fetcher.Run(context.Background(), server.URL)
	if err == nil {
		t.Error("Expected error for HTTP 500 response")
	}
}

func TestFetcherUnreachableHost(t *testing.T) {
	// Reserve a port, then close it so the connection is refused
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	fetcher := newTestFetcher(5 * time.Second)
	_, err := fetcher.Run(context.Background(), url)
	if err == nil {
		t.Error("Expected error for unreachable host")
	}
}

func TestFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		server.Close()
	}()

	fetcher := newTestFetcher(50 * time.Millisecond)

	start := time.Now()
	_, err := fetcher.Run(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Fetch was not bounded by the timeout, took %v", elapsed)
	}
}

func TestFetcherMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not a feed"))
	}))
	defer server.Close()

	fetcher := newTestFetcher(5 * time.Second)
	_, err := fetcher.Run(context.Background(), server.URL)
	if err == nil {
		t.Error("Expected error for malformed feed body")
	}
}
