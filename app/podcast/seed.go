package podcast

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedEntry describes one podcast from the podcasts file.
type SeedEntry struct {
	Name       string `yaml:"name"`
	RSSURL     string `yaml:"rss_url"`
	SpotifyURL string `yaml:"spotify_url"`
}

type seedFile struct {
	Podcasts []SeedEntry `yaml:"podcasts"`
}

// LoadSeedFile reads the podcasts file. A missing file is not an error,
// the tracker just starts empty.
func LoadSeedFile(path string) ([]SeedEntry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read podcasts file: %w", err)
	}

	var parsed seedFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse podcasts file: %w", err)
	}

	for i, entry := range parsed.Podcasts {
		if entry.Name == "" || entry.RSSURL == "" {
			return nil, fmt.Errorf("podcast entry %d is missing name or rss_url", i)
		}
	}

	return parsed.Podcasts, nil
}

// Seed registers every entry, skipping over individual failures so one dead
// feed does not prevent the rest from being tracked.
func (s *Service) Seed(ctx context.Context, entries []SeedEntry) {
	for _, entry := range entries {
		var spotifyURL *string
		if entry.SpotifyURL != "" {
			url := entry.SpotifyURL
			spotifyURL = &url
		}

		if _, err := s.AddPodcast(ctx, entry.Name, entry.RSSURL, spotifyURL); err != nil {
			slog.Error("Failed to seed podcast", "name", entry.Name, "error", err)
		}
	}
}
