package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/hookrelay/app/database"
	"github.com/lysyi3m/hookrelay/app/feed"
	"github.com/lysyi3m/hookrelay/app/gateway"
	"github.com/lysyi3m/hookrelay/app/metrics"
)

const pathScheduled = "scheduled"

// RunResult summarizes one scheduled pass.
type RunResult struct {
	Skipped  bool
	Fetched  int
	Selected int
	Label    string
}

// Runner executes scheduled feed passes. At most one pass runs at a time;
// a pass started while another is in flight returns immediately.
type Runner struct {
	configs   ConfigSource
	fetcher   Fetcher
	store     database.FingerprintStore
	forwarder Forwarder
	running   atomic.Bool
	now       func() time.Time
}

func NewRunner(configs ConfigSource, fetcher Fetcher, store database.FingerprintStore, forwarder Forwarder) *Runner {
	return &Runner{
		configs:   configs,
		fetcher:   fetcher,
		store:     store,
		forwarder: forwarder,
		now:       time.Now,
	}
}

// Running reports whether a pass is in flight.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// RunOnce fetches every source, keeps items not seen inside the dedupe
// window, caps them per source and per run, and forwards them as one task.
// Items are marked seen only after the forward succeeds.
func (r *Runner) RunOnce(ctx context.Context) (*RunResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		slog.Warn("Scheduled run skipped, previous run still in progress")
		metrics.RecordScheduledRun(metrics.OutcomeSkipped)
		return &RunResult{Skipped: true}, nil
	}
	defer r.running.Store(false)

	start := time.Now()
	result, err := r.run(ctx)
	if err != nil {
		metrics.RecordScheduledRun(metrics.OutcomeFailed)
		return nil, err
	}

	outcome := metrics.OutcomeForwarded
	if result.Selected == 0 {
		outcome = metrics.OutcomeEmpty
	}
	metrics.RecordScheduledRun(outcome)

	slog.Info("Task completed",
		"type", "ScheduledRun",
		"duration", time.Since(start),
		"fetched", result.Fetched,
		"forwarded", result.Selected,
		"label", result.Label)

	return result, nil
}

func (r *Runner) run(ctx context.Context) (*RunResult, error) {
	config, err := r.configs.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load traveler config: %w", err)
	}

	now := r.now()
	sel := newSelector(r.store, config.Ranking.DedupeWindowDays, now)
	result := &RunResult{}

	var selected []feed.Item

sources:
	for _, src := range config.Sources {
		if len(selected) >= config.Ranking.MaxItemsPerRun {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := r.fetcher.Fetch(ctx, src)
		if err != nil {
			slog.Warn("Failed to fetch source, skipping", "source", src.Name, "url", src.URL, "error", err)
			continue
		}
		result.Fetched += len(items)
		slog.Debug("Source fetched", "source", src.Name, "items", len(items))

		taken := 0
		for _, item := range items {
			if taken >= config.Ranking.PerSourceLimit {
				break
			}
			if len(selected) >= config.Ranking.MaxItemsPerRun {
				break sources
			}

			key := feed.Fingerprint(item.URL)
			if key == "" {
				continue
			}

			novel, err := sel.novel(ctx, key)
			if err != nil {
				return nil, err
			}
			if !novel {
				continue
			}

			item.URL = key
			selected = append(selected, item)
			taken++
		}
	}

	if len(selected) == 0 {
		slog.Info("No new items", "fetched", result.Fetched, "dedupe_window_days", config.Ranking.DedupeWindowDays)
		return result, nil
	}

	prompt, err := feed.CuratorPrompt(config, selected, "")
	if err != nil {
		return nil, err
	}

	task := gateway.Task{
		Label:          feed.SessionLabel(now),
		Body:           prompt,
		Cleanup:        gateway.CleanupKeep,
		TimeoutSeconds: TaskTimeoutSeconds,
	}

	if err := r.forwarder.Forward(ctx, task); err != nil {
		recordForwardFailure(pathScheduled, err)
		return nil, fmt.Errorf("failed to forward %d items: %w", len(selected), err)
	}

	if err := markAll(ctx, r.store, selected, now); err != nil {
		return nil, fmt.Errorf("failed to mark forwarded items: %w", err)
	}

	feed.LogLinks(task.Label, selected)
	metrics.RecordItemsForwarded(pathScheduled, len(selected))

	result.Selected = len(selected)
	result.Label = task.Label
	return result, nil
}
