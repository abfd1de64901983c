package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/hookrelay/app/database"
	"github.com/lysyi3m/hookrelay/app/feed"
	"github.com/lysyi3m/hookrelay/app/gateway"
	"github.com/lysyi3m/hookrelay/app/metrics"
)

const (
	MaxSubmitItems = 100
	pathSubmit     = "submit"
)

type SubmitRequest struct {
	SourceName string       `json:"source_name"`
	FeedItems  []SubmitItem `json:"feed_items"`
}

type SubmitItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Summary     string `json:"summary,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

type SubmitResult struct {
	OK        bool   `json:"ok"`
	Processed int    `json:"processed"`
	Rejected  int    `json:"rejected"`
	Message   string `json:"message"`
}

// Submitter handles feed items pushed by clients instead of polled.
type Submitter struct {
	configs   ConfigSource
	store     database.FingerprintStore
	forwarder Forwarder
	now       func() time.Time
}

func NewSubmitter(configs ConfigSource, store database.FingerprintStore, forwarder Forwarder) *Submitter {
	return &Submitter{
		configs:   configs,
		store:     store,
		forwarder: forwarder,
		now:       time.Now,
	}
}

// Submit validates the batch as a whole, then rejects items lacking a
// title or url, items seen inside the window and repeats of a URL already
// taken from this batch. The remaining items go out as one task and are
// marked only after the forward succeeds.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	config, err := s.configs.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load traveler config: %w", err)
	}

	source := strings.TrimSpace(req.SourceName)
	now := s.now()
	sel := newSelector(s.store, config.Ranking.DedupeWindowDays, now)

	var selected []feed.Item
	rejected := 0

	for _, in := range req.FeedItems {
		key := feed.Fingerprint(in.URL)
		title := strings.TrimSpace(in.Title)
		if key == "" || title == "" {
			rejected++
			continue
		}

		novel, err := sel.novel(ctx, key)
		if err != nil {
			return nil, err
		}
		if !novel {
			rejected++
			continue
		}

		selected = append(selected, feed.Item{
			Source:      source,
			Title:       title,
			URL:         key,
			Summary:     feed.CleanSummary(in.Summary),
			PublishedAt: feed.ParsePublished(in.PublishedAt),
		})
	}

	if len(selected) > 0 {
		prompt, err := feed.CuratorPrompt(config, selected, source)
		if err != nil {
			return nil, err
		}

		task := gateway.Task{
			Label:          feed.SubmissionLabel(source, now),
			Body:           prompt,
			Cleanup:        gateway.CleanupKeep,
			TimeoutSeconds: TaskTimeoutSeconds,
		}

		if err := s.forwarder.Forward(ctx, task); err != nil {
			recordForwardFailure(pathSubmit, err)
			return nil, fmt.Errorf("failed to forward submission from %s: %w", source, err)
		}

		if err := markAll(ctx, s.store, selected, now); err != nil {
			return nil, fmt.Errorf("failed to mark submitted items: %w", err)
		}

		feed.LogLinks(task.Label, selected)
		metrics.RecordItemsForwarded(pathSubmit, len(selected))
	}

	processed := len(selected)
	metrics.RecordSubmission(processed, rejected)
	slog.Info("Submission processed", "source", source, "processed", processed, "rejected", rejected)

	return &SubmitResult{
		OK:        true,
		Processed: processed,
		Rejected:  rejected,
		Message:   fmt.Sprintf("Processed %d item(s), rejected %d item(s)", processed, rejected),
	}, nil
}

func validateSubmission(req SubmitRequest) error {
	switch {
	case strings.TrimSpace(req.SourceName) == "" || req.FeedItems == nil:
		return &SubmissionError{Reason: "source_name and feed_items are required"}
	case len(req.FeedItems) == 0:
		return &SubmissionError{Reason: "feed_items cannot be empty"}
	case len(req.FeedItems) > MaxSubmitItems:
		return &SubmissionError{Reason: fmt.Sprintf("maximum %d items per request", MaxSubmitItems)}
	}
	return nil
}
