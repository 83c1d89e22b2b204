package feed

import (
	"time"
)

// Feed is the normalized representation of a fetched podcast feed.
type Feed struct {
	Title       string
	Description string
	ArtworkURL  string
	Episodes    []Episode
}

type Episode struct {
	Title       string
	Description string
	PubDate     time.Time
	Duration    *string // nil when the item has no itunes duration
	EpisodeURL  string
}
