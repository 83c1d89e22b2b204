package api

import (
	"context"
	"time"

	"github.com/lysyi3m/podcast-tracker/app/database"
	"github.com/lysyi3m/podcast-tracker/app/podcast"
)

// RefresherInterface is the slice of the podcast service the manual refresh
// endpoint needs.
type RefresherInterface interface {
	RefreshAll(ctx context.Context) (int, error)
}

var _ RefresherInterface = (*podcast.Service)(nil)

type Handler struct {
	podcastRepo database.PodcastRepository
	episodeRepo database.EpisodeRepository
	refresher   RefresherInterface
}

type PodcastResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	RSSURL      string    `json:"rss_url"`
	SpotifyURL  *string   `json:"spotify_url"`
	Description string    `json:"description"`
	ArtworkURL  *string   `json:"artwork_url"`
	CreatedAt   time.Time `json:"created_at"`
}

type EpisodeResponse struct {
	ID          int64            `json:"id"`
	PodcastID   int64            `json:"podcast_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	PubDate     time.Time        `json:"pub_date"`
	Duration    *string          `json:"duration"`
	EpisodeURL  string           `json:"episode_url"`
	SpotifyURL  *string          `json:"spotify_url"`
	Listened    bool             `json:"listened"`
	CreatedAt   time.Time        `json:"created_at"`
	Podcast     *PodcastResponse `json:"podcast,omitempty"`
}

type EpisodeListResponse struct {
	Episodes   []EpisodeResponse `json:"episodes"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

type EpisodeUpdateRequest struct {
	Listened *bool `json:"listened"`
}

type RefreshResponse struct {
	Message     string `json:"message"`
	NewEpisodes int    `json:"new_episodes"`
}
