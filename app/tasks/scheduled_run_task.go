package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type ScheduledRunTask struct {
	Task
	runner FeedRunner
}

func NewScheduledRunTask(runner FeedRunner) *ScheduledRunTask {
	return &ScheduledRunTask{
		Task:   NewTask(TaskTypeScheduledRun),
		runner: runner,
	}
}

func (t *ScheduledRunTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.runner.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("scheduled run failed: %w", err)
	}

	if result.Skipped {
		slog.Debug("Scheduled run overlapped a running pass", "id", t.ID)
	}

	return nil
}
