package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/hookrelay/app/ingest"
)

// TaskSchedulerInterface is what main needs from the background scheduler.
//
//	scheduler := NewScheduler(runner, store, configCache, Options{Interval: time.Hour})
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// FeedRunner performs one scheduled pass over the configured sources.
type FeedRunner interface {
	RunOnce(ctx context.Context) (*ingest.RunResult, error)
}

// Sweeper drops fingerprints recorded before cutoff.
type Sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ FeedRunner = (*ingest.Runner)(nil)
