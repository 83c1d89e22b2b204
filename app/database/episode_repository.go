package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ EpisodeRepository = (*EpisodeRepositoryImpl)(nil)

// EpisodeRepositoryImpl handles database operations for episodes
type EpisodeRepositoryImpl struct {
	db *DB
}

func NewEpisodeRepository(db *DB) *EpisodeRepositoryImpl {
	return &EpisodeRepositoryImpl{db: db}
}

// Exists reports whether an episode with the given dedupe key
// (podcast, title, publication timestamp) is already stored.
func (r *EpisodeRepositoryImpl) Exists(podcastID int64, title string, pubDate time.Time) (bool, error) {
	var one int
	err := r.db.QueryRow(`
		SELECT 1 FROM episodes
		WHERE podcast_id = ? AND title = ? AND pub_date = ?
		LIMIT 1
	`, podcastID, title, formatTime(pubDate)).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check episode existence: %w", err)
	}

	return true, nil
}

// InsertBatch stores all episodes in a single transaction. Either the whole
// batch is committed or none of it is.
func (r *EpisodeRepositoryImpl) InsertBatch(episodes []Episode) error {
	if len(episodes) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO episodes (podcast_id, title, description, pub_date, duration,
			episode_url, spotify_url, listened, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, episode := range episodes {
		_, err := stmt.Exec(episode.PodcastID, episode.Title, episode.Description,
			formatTime(episode.PubDate), nullableString(episode.Duration),
			episode.EpisodeURL, nullableString(episode.SpotifyURL),
			episode.Listened, formatTime(now))
		if err != nil {
			return fmt.Errorf("failed to insert episode %q: %w", episode.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit episode batch: %w", err)
	}

	return nil
}

func (r *EpisodeRepositoryImpl) GetByID(id int64) (*Episode, error) {
	row := r.db.QueryRow(`
		SELECT id, podcast_id, title, COALESCE(description, ''), pub_date, duration,
		       episode_url, spotify_url, listened, created_at
		FROM episodes
		WHERE id = ?
	`, id)

	episode, err := scanEpisode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get episode by id: %w", err)
	}

	return episode, nil
}

func (r *EpisodeRepositoryImpl) ListUnlistened(podcastID int64, limit, offset int) ([]Episode, error) {
	query := `
		SELECT id, podcast_id, title, COALESCE(description, ''), pub_date, duration,
		       episode_url, spotify_url, listened, created_at
		FROM episodes
		WHERE listened = 0`
	args := []any{}

	if podcastID != 0 {
		query += " AND podcast_id = ?"
		args = append(args, podcastID)
	}

	query += " ORDER BY pub_date DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlistened episodes: %w", err)
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, *episode)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating episode rows: %w", err)
	}

	return episodes, nil
}

func (r *EpisodeRepositoryImpl) CountUnlistened(podcastID int64) (int, error) {
	query := "SELECT COUNT(*) FROM episodes WHERE listened = 0"
	args := []any{}

	if podcastID != 0 {
		query += " AND podcast_id = ?"
		args = append(args, podcastID)
	}

	var count int
	err := r.db.QueryRow(query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unlistened episodes: %w", err)
	}

	return count, nil
}

func (r *EpisodeRepositoryImpl) SetListened(id int64, listened bool) error {
	result, err := r.db.Exec("UPDATE episodes SET listened = ? WHERE id = ?", listened, id)
	if err != nil {
		return fmt.Errorf("failed to update listened flag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("episode %d not found", id)
	}

	return nil
}

func (r *EpisodeRepositoryImpl) GetCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM episodes").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get episode count: %w", err)
	}
	return count, nil
}

func scanEpisode(row rowScanner) (*Episode, error) {
	var episode Episode
	var duration, spotifyURL sql.NullString
	var pubDate, createdAt string

	err := row.Scan(&episode.ID, &episode.PodcastID, &episode.Title, &episode.Description,
		&pubDate, &duration, &episode.EpisodeURL, &spotifyURL,
		&episode.Listened, &createdAt)
	if err != nil {
		return nil, err
	}

	episode.Duration = scanNullableString(duration)
	episode.SpotifyURL = scanNullableString(spotifyURL)

	episode.PubDate, err = parseTime(pubDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse episode pub_date: %w", err)
	}

	episode.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse episode created_at: %w", err)
	}

	return &episode, nil
}
