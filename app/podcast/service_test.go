package podcast

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/podcast-tracker/app/database"
	"github.com/lysyi3m/podcast-tracker/app/feed"
)

const serviceTestFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
<channel>
	<title>Test Podcast</title>
	<link>https://example.com</link>
	<description>A test podcast</description>
	<image>
		<url>https://example.com/artwork.png</url>
		<title>Test Podcast</title>
		<link>https://example.com</link>
	</image>
	<item>
		<title>Episode 1</title>
		<link>https://example.com/episode1</link>
		<description>First episode</description>
		<pubDate>Wed, 01 Feb 2023 10:00:00 +0000</pubDate>
		<itunes:duration>45:30</itunes:duration>
	</item>
	<item>
		<title>Episode 2</title>
		<link>https://example.com/episode2</link>
		<description>Second episode</description>
		<pubDate>Wed, 08 Feb 2023 10:00:00 +0000</pubDate>
	</item>
</channel>
</rss>`

const serviceTestFeedUpdated = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Test Podcast</title>
	<link>https://example.com</link>
	<description>A test podcast</description>
	<item>
		<title>Episode 3</title>
		<link>https://example.com/episode3</link>
		<description>Third episode</description>
		<pubDate>Wed, 15 Feb 2023 10:00:00 +0000</pubDate>
	</item>
	<item>
		<title>Episode 2</title>
		<link>https://example.com/episode2</link>
		<description>Second episode</description>
		<pubDate>Wed, 08 Feb 2023 10:00:00 +0000</pubDate>
	</item>
	<item>
		<title>Episode 1</title>
		<link>https://example.com/episode1</link>
		<description>First episode</description>
		<pubDate>Wed, 01 Feb 2023 10:00:00 +0000</pubDate>
	</item>
</channel>
</rss>`

func newTestService(t *testing.T) (*Service, database.PodcastRepository, database.EpisodeRepository) {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	podcastRepo := database.NewPodcastRepository(db)
	episodeRepo := database.NewEpisodeRepository(db)

	parser := feed.NewParser()
	fetcher := feed.NewFetcher(&http.Client{}, parser, "Podcast Tracker Test/1.0", 5*time.Second)

	return NewService(fetcher, podcastRepo, episodeRepo), podcastRepo, episodeRepo
}

func newFeedServer(t *testing.T, body string) (*httptest.Server, func(string)) {
	t.Helper()

	var mu sync.Mutex
	current := body

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, current)
	}))
	t.Cleanup(server.Close)

	return server, func(body string) {
		mu.Lock()
		defer mu.Unlock()
		current = body
	}
}

func TestAddPodcast(t *testing.T) {
	service, _, episodeRepo := newTestService(t)
	server, _ := newFeedServer(t, serviceTestFeed)

	spotifyURL := "https://open.spotify.com/show/abc"
	podcast, err := service.AddPodcast(context.Background(), "Test Podcast", server.URL, &spotifyURL)
	if err != nil {
		t.Fatalf("Failed to add podcast: %v", err)
	}

	if podcast.ID == 0 {
		t.Error("Expected podcast ID to be set")
	}
	if podcast.Description != "A test podcast" {
		t.Errorf("Expected description from feed, got: %s", podcast.Description)
	}
	if podcast.ArtworkURL == nil || *podcast.ArtworkURL != "https://example.com/artwork.png" {
		t.Errorf("Expected artwork URL from feed, got: %v", podcast.ArtworkURL)
	}

	count, err := episodeRepo.GetCount()
	if err != nil {
		t.Fatalf("Failed to count episodes: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 episodes after registration, got: %d", count)
	}

	episodes, err := episodeRepo.ListUnlistened(podcast.ID, 10, 0)
	if err != nil {
		t.Fatalf("Failed to list episodes: %v", err)
	}
	for _, episode := range episodes {
		if episode.SpotifyURL == nil || *episode.SpotifyURL != spotifyURL {
			t.Errorf("Expected episode to inherit podcast spotify URL, got: %v", episode.SpotifyURL)
		}
	}
}

func TestAddPodcastIdempotent(t *testing.T) {
	service, podcastRepo, _ := newTestService(t)
	server, _ := newFeedServer(t, serviceTestFeed)

	first, err := service.AddPodcast(context.Background(), "Test Podcast", server.URL, nil)
	if err != nil {
		t.Fatalf("Failed to add podcast: %v", err)
	}

	second, err := service.AddPodcast(context.Background(), "Different Name", server.URL, nil)
	if err != nil {
		t.Fatalf("Failed to re-add podcast: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected same podcast on re-add, got IDs %d and %d", first.ID, second.ID)
	}
	if second.Name != "Test Podcast" {
		t.Errorf("Expected original name to be kept, got: %s", second.Name)
	}

	count, err := podcastRepo.GetCount()
	if err != nil {
		t.Fatalf("Failed to count podcasts: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 podcast, got: %d", count)
	}
}

func TestAddPodcastFetchFailure(t *testing.T) {
	service, podcastRepo, _ := newTestService(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := service.AddPodcast(context.Background(), "Dead Feed", server.URL, nil)
	if err == nil {
		t.Fatal("Expected error for unreachable feed")
	}

	// A failed fetch must not leave a half-registered podcast behind
	count, err := podcastRepo.GetCount()
	if err != nil {
		t.Fatalf("Failed to count podcasts: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no podcasts after failed registration, got: %d", count)
	}
}

func TestRefreshAllIdempotent(t *testing.T) {
	service, _, _ := newTestService(t)
	server, _ := newFeedServer(t, serviceTestFeed)

	if _, err := service.AddPodcast(context.Background(), "Test Podcast", server.URL, nil); err != nil {
		t.Fatalf("Failed to add podcast: %v", err)
	}

	total, err := service.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("Failed to refresh: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected 0 new episodes on unchanged feed, got: %d", total)
	}
}

func TestRefreshAllPicksUpNewEpisodes(t *testing.T) {
	service, _, episodeRepo := newTestService(t)
	server, setBody := newFeedServer(t, serviceTestFeed)

	if _, err := service.AddPodcast(context.Background(), "Test Podcast", server.URL, nil); err != nil {
		t.Fatalf("Failed to add podcast: %v", err)
	}

	setBody(serviceTestFeedUpdated)

	total, err := service.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("Failed to refresh: %v", err)
	}
	if total != 1 {
		t.Errorf("Expected 1 new episode, got: %d", total)
	}

	count, err := episodeRepo.GetCount()
	if err != nil {
		t.Fatalf("Failed to count episodes: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 episodes total, got: %d", count)
	}
}

func TestRefreshAllFailureIsolation(t *testing.T) {
	service, _, _ := newTestService(t)

	good1, setGood1 := newFeedServer(t, serviceTestFeed)
	bad, setBad := newFeedServer(t, serviceTestFeed)
	good2, setGood2 := newFeedServer(t, serviceTestFeed)

	for i, url := range []string{good1.URL, bad.URL, good2.URL} {
		name := fmt.Sprintf("Podcast %d", i+1)
		if _, err := service.AddPodcast(context.Background(), name, url, nil); err != nil {
			t.Fatalf("Failed to add podcast %s: %v", name, err)
		}
	}

	// Break the middle feed and grow the other two by one episode each
	setGood1(serviceTestFeedUpdated)
	setBad("this is not a feed")
	setGood2(serviceTestFeedUpdated)

	total, err := service.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("Failed to refresh: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected 2 new episodes from the healthy feeds, got: %d", total)
	}
}

func TestRefreshAllSingleFlight(t *testing.T) {
	service, _, _ := newTestService(t)

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, serviceTestFeed)
	}))
	defer server.Close()

	podcast := &database.Podcast{Name: "Slow Feed", RSSURL: server.URL}
	if err := service.podcastRepo.Insert(podcast); err != nil {
		t.Fatalf("Failed to insert podcast: %v", err)
	}

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		close(started)
		service.RefreshAll(context.Background())
	}()

	<-started
	// Wait until the first refresh is blocked inside the feed fetch
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := service.RefreshAll(context.Background())
		if errors.Is(err, ErrRefreshInProgress) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Concurrent refresh was never rejected")
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(release)
	<-done

	if _, err := service.RefreshAll(context.Background()); err != nil {
		t.Errorf("Expected refresh to succeed after first completed, got: %v", err)
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "podcasts.yml")
	content := `podcasts:
  - name: "First Podcast"
    rss_url: "https://example.com/first.xml"
    spotify_url: "https://open.spotify.com/show/abc"
  - name: "Second Podcast"
    rss_url: "https://example.com/second.xml"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}

	entries, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("Failed to load seed file: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(entries))
	}
	if entries[0].Name != "First Podcast" {
		t.Errorf("Expected 'First Podcast', got: %s", entries[0].Name)
	}
	if entries[1].SpotifyURL != "" {
		t.Errorf("Expected empty spotify URL, got: %s", entries[1].SpotifyURL)
	}
}

func TestLoadSeedFileMissing(t *testing.T) {
	entries, err := LoadSeedFile(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Expected missing file to be a no-op, got: %v", err)
	}
	if entries != nil {
		t.Errorf("Expected nil entries, got: %v", entries)
	}
}

func TestLoadSeedFileInvalidEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "podcasts.yml")
	content := `podcasts:
  - name: "No URL Here"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}

	if _, err := LoadSeedFile(path); err == nil {
		t.Error("Expected error for entry without rss_url")
	}
}

func TestSeedSkipsFailures(t *testing.T) {
	service, podcastRepo, _ := newTestService(t)
	good, _ := newFeedServer(t, serviceTestFeed)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer bad.Close()

	entries := []SeedEntry{
		{Name: "Dead Feed", RSSURL: bad.URL},
		{Name: "Good Feed", RSSURL: good.URL},
	}
	service.Seed(context.Background(), entries)

	count, err := podcastRepo.GetCount()
	if err != nil {
		t.Fatalf("Failed to count podcasts: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 podcast after seeding past a failure, got: %d", count)
	}

	got, err := podcastRepo.GetByURL(good.URL)
	if err != nil {
		t.Fatalf("Failed to look up podcast: %v", err)
	}
	if got == nil || got.Name != "Good Feed" {
		t.Error("Expected the good feed to be registered")
	}
}
