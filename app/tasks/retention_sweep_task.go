package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/hookrelay/app/ingest"
	"github.com/lysyi3m/hookrelay/app/metrics"
)

type RetentionSweepTask struct {
	Task
	sweeper       Sweeper
	retentionDays int
	configs       ingest.ConfigSource
	now           func() time.Time
}

// NewRetentionSweepTask sweeps fingerprints older than retentionDays.
// configs, when set, supplies the feed dedupe window the retention must
// exceed.
func NewRetentionSweepTask(sweeper Sweeper, retentionDays int, configs ingest.ConfigSource) *RetentionSweepTask {
	return &RetentionSweepTask{
		Task:          NewTask(TaskTypeRetentionSweep),
		sweeper:       sweeper,
		retentionDays: retentionDays,
		configs:       configs,
		now:           time.Now,
	}
}

// Execute removes fingerprints older than the retention period. Retention
// must exceed every dedupe window or old keys would be forwarded again.
func (t *RetentionSweepTask) Execute(ctx context.Context) error {
	if t.retentionDays <= 0 {
		return nil
	}

	if t.configs != nil {
		if err := CheckRetention(t.configs, t.retentionDays); err != nil {
			return fmt.Errorf("sweep skipped: %w", err)
		}
	}

	cutoff := t.now().Add(-time.Duration(t.retentionDays) * 24 * time.Hour)

	removed, err := t.sweeper.Sweep(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to sweep fingerprints: %w", err)
	}
	metrics.RecordSweep(removed)

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"removed", removed,
		"cutoff", cutoff.UTC().Format(time.RFC3339))

	return nil
}

// CheckRetention fails when retentionDays would delete fingerprints that
// are still inside the feed dedupe window.
func CheckRetention(configs ingest.ConfigSource, retentionDays int) error {
	config, err := configs.Get()
	if err != nil {
		return fmt.Errorf("failed to load traveler config: %w", err)
	}

	if window := config.Ranking.DedupeWindowDays; retentionDays <= window {
		return fmt.Errorf("retention of %d days must exceed the feed dedupe window of %d days", retentionDays, window)
	}
	return nil
}
