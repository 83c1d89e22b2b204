package database

import (
	"time"
)

type Podcast struct {
	ID          int64
	Name        string
	RSSURL      string
	SpotifyURL  *string
	Description string
	ArtworkURL  *string
	CreatedAt   time.Time
}

type Episode struct {
	ID          int64
	PodcastID   int64
	Title       string
	Description string
	PubDate     time.Time
	Duration    *string // nil when the feed item carries no duration
	EpisodeURL  string
	SpotifyURL  *string
	Listened    bool
	CreatedAt   time.Time
}
