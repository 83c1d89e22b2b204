package tasks

import (
	"context"
)

// TaskSchedulerInterface defines the interface for background task
// scheduling. The main application starts it once and the API layer only
// enqueues.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// RefresherInterface is the slice of the podcast service the scheduler needs.
type RefresherInterface interface {
	RefreshAll(ctx context.Context) (int, error)
}
