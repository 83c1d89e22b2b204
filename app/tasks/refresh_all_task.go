package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/podcast-tracker/app/podcast"
)

// RefreshAllTask runs one pass over every tracked podcast.
type RefreshAllTask struct {
	Task
	refresher RefresherInterface
}

func NewRefreshAllTask(refresher RefresherInterface) *RefreshAllTask {
	return &RefreshAllTask{
		Task:      NewTask(TaskTypeRefreshAll),
		refresher: refresher,
	}
}

func (t *RefreshAllTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	newCount, err := t.refresher.RefreshAll(ctx)
	if errors.Is(err, podcast.ErrRefreshInProgress) {
		// Another run (timer or manual) has the single-flight lock
		slog.Debug("Refresh already in progress, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to refresh podcasts: %w", err)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"duration", t.GetDuration(),
		"new_episodes", newCount)

	return nil
}
