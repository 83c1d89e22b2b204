package database

import (
	"time"
)

type PodcastRepository interface {
	GetAll() ([]Podcast, error)
	GetByID(id int64) (*Podcast, error)
	GetByURL(rssURL string) (*Podcast, error)
	GetCount() (int, error)

	Insert(podcast *Podcast) error
	Delete(id int64) error
}

type EpisodeRepository interface {
	GetByID(id int64) (*Episode, error)
	GetCount() (int, error)

	// ListUnlistened returns unlistened episodes ordered by publication date
	// descending. A zero podcastID means no podcast filter.
	ListUnlistened(podcastID int64, limit, offset int) ([]Episode, error)
	CountUnlistened(podcastID int64) (int, error)

	Exists(podcastID int64, title string, pubDate time.Time) (bool, error)
	InsertBatch(episodes []Episode) error
	SetListened(id int64, listened bool) error
}
