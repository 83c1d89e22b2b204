package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/podcast-tracker/app/database"
	"github.com/lysyi3m/podcast-tracker/app/podcast"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func NewHandler(podcastRepo database.PodcastRepository, episodeRepo database.EpisodeRepository,
	refresher RefresherInterface) *Handler {
	return &Handler{
		podcastRepo: podcastRepo,
		episodeRepo: episodeRepo,
		refresher:   refresher,
	}
}

func (h *Handler) GetPodcasts(c *gin.Context) {
	podcasts, err := h.podcastRepo.GetAll()
	if err != nil {
		slog.Error("Database error", "operation", "get_podcasts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]PodcastResponse, 0, len(podcasts))
	for i := range podcasts {
		response = append(response, toPodcastResponse(&podcasts[i]))
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetEpisodes(c *gin.Context) {
	page, err := parsePositiveInt(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page parameter"})
		return
	}

	pageSize, err := parsePositiveInt(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if err != nil || pageSize > maxPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page_size parameter"})
		return
	}

	var podcastID int64
	if raw := c.Query("podcast_id"); raw != "" {
		podcastID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid podcast_id parameter"})
			return
		}
	}

	total, err := h.episodeRepo.CountUnlistened(podcastID)
	if err != nil {
		slog.Error("Database error", "operation", "count_episodes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	episodes, err := h.episodeRepo.ListUnlistened(podcastID, pageSize, (page-1)*pageSize)
	if err != nil {
		slog.Error("Database error", "operation", "list_episodes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	podcastsByID, err := h.loadPodcastsByID()
	if err != nil {
		slog.Error("Database error", "operation", "get_podcasts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := EpisodeListResponse{
		Episodes:   make([]EpisodeResponse, 0, len(episodes)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	for i := range episodes {
		response.Episodes = append(response.Episodes, toEpisodeResponse(&episodes[i], podcastsByID[episodes[i].PodcastID]))
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetEpisode(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid episode id"})
		return
	}

	episode, err := h.episodeRepo.GetByID(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_episode", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if episode == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Episode not found"})
		return
	}

	pod, err := h.podcastRepo.GetByID(episode.PodcastID)
	if err != nil {
		slog.Error("Database error", "operation", "get_podcast", "id", episode.PodcastID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, toEpisodeResponse(episode, pod))
}

func (h *Handler) MarkEpisodeListened(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid episode id"})
		return
	}

	var update EpisodeUpdateRequest
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	episode, err := h.episodeRepo.GetByID(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_episode", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if episode == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Episode not found"})
		return
	}

	// A null listened value is an explicit no-op
	if update.Listened != nil {
		if err := h.episodeRepo.SetListened(id, *update.Listened); err != nil {
			slog.Error("Database error", "operation", "set_listened", "id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		episode.Listened = *update.Listened

		slog.Info("Episode listened flag updated", "id", id, "title", episode.Title, "listened", *update.Listened)
	}

	pod, err := h.podcastRepo.GetByID(episode.PodcastID)
	if err != nil {
		slog.Error("Database error", "operation", "get_podcast", "id", episode.PodcastID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, toEpisodeResponse(episode, pod))
}

func (h *Handler) RefreshPodcasts(c *gin.Context) {
	slog.Info("Manual refresh triggered")

	newCount, err := h.refresher.RefreshAll(c.Request.Context())
	if err != nil {
		// Partial per-podcast failures are already absorbed into the count;
		// an error here means the refresh could not run at all.
		if errors.Is(err, podcast.ErrRefreshInProgress) {
			c.JSON(http.StatusOK, RefreshResponse{
				Message:     "Refresh already in progress.",
				NewEpisodes: 0,
			})
			return
		}
		slog.Error("Refresh failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Refresh failed"})
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		Message:     fmt.Sprintf("Refresh complete. Found %d new episodes.", newCount),
		NewEpisodes: newCount,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if podcastCount, err := h.podcastRepo.GetCount(); err == nil {
		health["podcasts"] = podcastCount
	}

	if episodeCount, err := h.episodeRepo.GetCount(); err == nil {
		health["episodes"] = episodeCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) loadPodcastsByID() (map[int64]*database.Podcast, error) {
	podcasts, err := h.podcastRepo.GetAll()
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*database.Podcast, len(podcasts))
	for i := range podcasts {
		byID[podcasts[i].ID] = &podcasts[i]
	}
	return byID, nil
}

func toPodcastResponse(podcast *database.Podcast) PodcastResponse {
	return PodcastResponse{
		ID:          podcast.ID,
		Name:        podcast.Name,
		RSSURL:      podcast.RSSURL,
		SpotifyURL:  podcast.SpotifyURL,
		Description: podcast.Description,
		ArtworkURL:  podcast.ArtworkURL,
		CreatedAt:   podcast.CreatedAt,
	}
}

func toEpisodeResponse(episode *database.Episode, podcast *database.Podcast) EpisodeResponse {
	response := EpisodeResponse{
		ID:          episode.ID,
		PodcastID:   episode.PodcastID,
		Title:       episode.Title,
		Description: episode.Description,
		PubDate:     episode.PubDate,
		Duration:    episode.Duration,
		EpisodeURL:  episode.EpisodeURL,
		SpotifyURL:  episode.SpotifyURL,
		Listened:    episode.Listened,
		CreatedAt:   episode.CreatedAt,
	}
	if podcast != nil {
		p := toPodcastResponse(podcast)
		response.Podcast = &p
	}
	return response
}

func parsePositiveInt(raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if value < 1 {
		return 0, strconv.ErrRange
	}
	return value, nil
}
