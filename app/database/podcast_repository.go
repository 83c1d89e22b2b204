package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ PodcastRepository = (*PodcastRepositoryImpl)(nil)

// PodcastRepositoryImpl handles database operations for podcasts
type PodcastRepositoryImpl struct {
	db *DB
}

func NewPodcastRepository(db *DB) *PodcastRepositoryImpl {
	return &PodcastRepositoryImpl{db: db}
}

// Insert stores a new podcast and fills in its ID and creation timestamp.
// The rss_url uniqueness constraint surfaces as an error here; callers that
// want get-or-create semantics check GetByURL first.
func (r *PodcastRepositoryImpl) Insert(podcast *Podcast) error {
	now := time.Now().UTC()

	result, err := r.db.Exec(`
		INSERT INTO podcasts (name, rss_url, spotify_url, description, artwork_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, podcast.Name, podcast.RSSURL, nullableString(podcast.SpotifyURL),
		podcast.Description, nullableString(podcast.ArtworkURL), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to insert podcast: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get podcast id: %w", err)
	}

	podcast.ID = id
	podcast.CreatedAt = now

	return nil
}

func (r *PodcastRepositoryImpl) GetAll() ([]Podcast, error) {
	rows, err := r.db.Query(`
		SELECT id, name, rss_url, spotify_url, COALESCE(description, ''), artwork_url, created_at
		FROM podcasts
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get podcasts: %w", err)
	}
	defer rows.Close()

	var podcasts []Podcast
	for rows.Next() {
		podcast, err := scanPodcast(rows)
		if err != nil {
			return nil, err
		}
		podcasts = append(podcasts, *podcast)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating podcast rows: %w", err)
	}

	return podcasts, nil
}

func (r *PodcastRepositoryImpl) GetByID(id int64) (*Podcast, error) {
	row := r.db.QueryRow(`
		SELECT id, name, rss_url, spotify_url, COALESCE(description, ''), artwork_url, created_at
		FROM podcasts
		WHERE id = ?
	`, id)

	podcast, err := scanPodcast(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get podcast by id: %w", err)
	}

	return podcast, nil
}

func (r *PodcastRepositoryImpl) GetByURL(rssURL string) (*Podcast, error) {
	row := r.db.QueryRow(`
		SELECT id, name, rss_url, spotify_url, COALESCE(description, ''), artwork_url, created_at
		FROM podcasts
		WHERE rss_url = ?
	`, rssURL)

	podcast, err := scanPodcast(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get podcast by URL: %w", err)
	}

	return podcast, nil
}

// Delete removes a podcast; its episodes go with it via ON DELETE CASCADE.
func (r *PodcastRepositoryImpl) Delete(id int64) error {
	_, err := r.db.Exec("DELETE FROM podcasts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete podcast: %w", err)
	}
	return nil
}

func (r *PodcastRepositoryImpl) GetCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM podcasts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get podcast count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPodcast(row rowScanner) (*Podcast, error) {
	var podcast Podcast
	var spotifyURL, artworkURL sql.NullString
	var createdAt string

	err := row.Scan(&podcast.ID, &podcast.Name, &podcast.RSSURL,
		&spotifyURL, &podcast.Description, &artworkURL, &createdAt)
	if err != nil {
		return nil, err
	}

	podcast.SpotifyURL = scanNullableString(spotifyURL)
	podcast.ArtworkURL = scanNullableString(artworkURL)

	podcast.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse podcast created_at: %w", err)
	}

	return &podcast, nil
}
