package ingest

import (
	"context"
	"time"

	"github.com/lysyi3m/hookrelay/app/database"
	"github.com/lysyi3m/hookrelay/app/feed"
	"github.com/lysyi3m/hookrelay/app/metrics"
)

// selector tracks keys already considered in one run or batch, on top of
// the durable store.
type selector struct {
	store      database.FingerprintStore
	windowDays int
	now        time.Time
	seen       map[string]struct{}
}

func newSelector(store database.FingerprintStore, windowDays int, now time.Time) *selector {
	return &selector{
		store:      store,
		windowDays: windowDays,
		now:        now,
		seen:       make(map[string]struct{}),
	}
}

// novel reports whether key is neither in this run nor recently stored.
// A key is claimed for the run the first time it is considered.
func (s *selector) novel(ctx context.Context, key string) (bool, error) {
	if _, dup := s.seen[key]; dup {
		return false, nil
	}
	s.seen[key] = struct{}{}

	start := time.Now()
	recent, err := s.store.IsRecentlySeen(ctx, key, s.windowDays, s.now)
	metrics.ObserveStore("is_recently_seen", start)
	if err != nil {
		return false, err
	}
	return !recent, nil
}

// markAll records every item once the forward has been accepted.
func markAll(ctx context.Context, store database.FingerprintStore, items []feed.Item, now time.Time) error {
	for _, item := range items {
		start := time.Now()
		err := store.MarkSeen(ctx, feed.Fingerprint(item.URL), now)
		metrics.ObserveStore("mark_seen", start)
		if err != nil {
			return err
		}
	}
	return nil
}
