package podcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/podcast-tracker/app/database"
	"github.com/lysyi3m/podcast-tracker/app/feed"
)

// ErrRefreshInProgress is returned when a refresh is requested while a
// previous one is still running. Refreshes are single-flight: overlapping
// runs would only re-fetch the same feeds for no gain.
var ErrRefreshInProgress = errors.New("refresh already in progress")

type FetcherInterface interface {
	Run(ctx context.Context, url string) (*feed.Feed, error)
}

var _ FetcherInterface = (*feed.Fetcher)(nil)

// Service owns podcast registration and episode ingestion.
type Service struct {
	fetcher     FetcherInterface
	podcastRepo database.PodcastRepository
	episodeRepo database.EpisodeRepository
	refreshMu   sync.Mutex
}

func NewService(fetcher FetcherInterface, podcastRepo database.PodcastRepository,
	episodeRepo database.EpisodeRepository) *Service {
	return &Service{
		fetcher:     fetcher,
		podcastRepo: podcastRepo,
		episodeRepo: episodeRepo,
	}
}

// AddPodcast registers a podcast by feed URL. Registration is idempotent on
// the URL: an already-tracked podcast is returned unchanged without
// re-fetching its feed. For a new podcast the feed is fetched first, so a
// dead feed never leaves a half-registered record behind. Description and
// artwork come from the feed itself, not from the caller.
func (s *Service) AddPodcast(ctx context.Context, name, rssURL string, spotifyURL *string) (*database.Podcast, error) {
	existing, err := s.podcastRepo.GetByURL(rssURL)
	if err != nil {
		return nil, fmt.Errorf("failed to look up podcast: %w", err)
	}
	if existing != nil {
		slog.Info("Podcast already registered", "name", existing.Name, "url", rssURL)
		return existing, nil
	}

	parsed, err := s.fetcher.Run(ctx, rssURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed for %q: %w", name, err)
	}

	podcast := &database.Podcast{
		Name:        name,
		RSSURL:      rssURL,
		SpotifyURL:  spotifyURL,
		Description: parsed.Description,
	}
	if parsed.ArtworkURL != "" {
		artworkURL := parsed.ArtworkURL
		podcast.ArtworkURL = &artworkURL
	}

	if err := s.podcastRepo.Insert(podcast); err != nil {
		return nil, fmt.Errorf("failed to store podcast: %w", err)
	}

	newCount := s.addNewEpisodes(podcast, parsed.Episodes)
	slog.Info("Podcast added", "name", podcast.Name, "episodes", newCount)

	return podcast, nil
}

// RefreshPodcast fetches one podcast's feed and stores the episodes that are
// not known yet. Any failure is logged and reported as zero new episodes;
// it never propagates to the caller.
func (s *Service) RefreshPodcast(ctx context.Context, podcast *database.Podcast) int {
	parsed, err := s.fetcher.Run(ctx, podcast.RSSURL)
	if err != nil {
		slog.Error("Failed to fetch feed", "podcast", podcast.Name, "error", err)
		return 0
	}

	return s.addNewEpisodes(podcast, parsed.Episodes)
}

// RefreshAll refreshes every tracked podcast sequentially and returns the
// total number of new episodes. One bad feed never blocks the others.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	if !s.refreshMu.TryLock() {
		return 0, ErrRefreshInProgress
	}
	defer s.refreshMu.Unlock()

	podcasts, err := s.podcastRepo.GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to load podcasts: %w", err)
	}

	total := 0
	for i := range podcasts {
		newCount := s.RefreshPodcast(ctx, &podcasts[i])
		if newCount > 0 {
			slog.Info("New episodes found", "podcast", podcasts[i].Name, "count", newCount)
		}
		total += newCount
	}

	slog.Info("Refresh complete", "podcasts", len(podcasts), "new_episodes", total)

	return total, nil
}

// addNewEpisodes filters the batch down to episodes whose dedupe key
// (podcast, title, publication timestamp) is not stored yet and writes them
// in one transaction. A failed write drops the whole batch and counts as
// zero. Episodes inherit the podcast's Spotify URL at insert time.
func (s *Service) addNewEpisodes(podcast *database.Podcast, episodes []feed.Episode) int {
	type dedupeKey struct {
		title   string
		pubDate time.Time
	}
	seen := make(map[dedupeKey]bool)

	batch := make([]database.Episode, 0)
	for _, episode := range episodes {
		key := dedupeKey{episode.Title, episode.PubDate}
		if seen[key] {
			continue
		}
		seen[key] = true

		exists, err := s.episodeRepo.Exists(podcast.ID, episode.Title, episode.PubDate)
		if err != nil {
			slog.Error("Failed to check for existing episode", "podcast", podcast.Name, "title", episode.Title, "error", err)
			continue
		}
		if exists {
			continue
		}

		batch = append(batch, database.Episode{
			PodcastID:   podcast.ID,
			Title:       episode.Title,
			Description: episode.Description,
			PubDate:     episode.PubDate,
			Duration:    episode.Duration,
			EpisodeURL:  episode.EpisodeURL,
			SpotifyURL:  podcast.SpotifyURL,
			Listened:    false,
		})
	}

	if len(batch) == 0 {
		return 0
	}

	if err := s.episodeRepo.InsertBatch(batch); err != nil {
		slog.Error("Failed to store episodes", "podcast", podcast.Name, "count", len(batch), "error", err)
		return 0
	}

	return len(batch)
}
