// Package dedupe collapses duplicate deliveries that arrive within one
// process lifetime, ahead of the durable fingerprint store.
package dedupe

import (
	"sync"
	"time"
)

// RunDeduper is an in-memory TTL set. Expired entries are purged lazily
// on every CheckAndMark call.
type RunDeduper struct {
	mu      sync.Mutex
	entries map[string]int64 // key -> expiresAtMs
}

func NewRunDeduper() *RunDeduper {
	return &RunDeduper{entries: make(map[string]int64)}
}

// CheckAndMark reports whether key is already held and unexpired. A held
// key is left untouched; otherwise it is (re)inserted with now+ttl.
func (d *RunDeduper) CheckAndMark(key string, ttl time.Duration, now time.Time) bool {
	nowMs := now.UnixMilli()

	d.mu.Lock()
	defer d.mu.Unlock()

	for k, expiresAt := range d.entries {
		if expiresAt <= nowMs {
			delete(d.entries, k)
		}
	}

	if _, ok := d.entries[key]; ok {
		return true
	}

	d.entries[key] = nowMs + ttl.Milliseconds()
	return false
}

// Forget releases key so a later retry is not treated as a duplicate.
func (d *RunDeduper) Forget(key string) {
	d.mu.Lock()
	delete(d.entries, key)
	d.mu.Unlock()
}

// Len returns the number of entries, expired ones included until the next purge.
func (d *RunDeduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
