package database

import (
	"errors"
	"time"
)

// ErrStorageUnavailable marks failures of the durable fingerprint store.
var ErrStorageUnavailable = errors.New("storage unavailable")

const dayMs int64 = 86_400_000

// FingerprintRecord is one row of the seen_links table.
type FingerprintRecord struct {
	Key      string
	SeenAtMs int64
}

// SeenAt returns the record timestamp as a time.Time.
func (r FingerprintRecord) SeenAt() time.Time {
	return time.UnixMilli(r.SeenAtMs)
}

// legacyState is the flat JSON document written by older releases:
// {"seen": {"<url>": <unix ms>}}.
type legacyState struct {
	Seen map[string]float64 `json:"seen"`
}
