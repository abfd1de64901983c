package database

import (
	"context"
	"time"
)

// FingerprintStore answers "was this key handled inside the window" and
// records keys once they have been forwarded.
type FingerprintStore interface {
	IsRecentlySeen(ctx context.Context, key string, windowDays int, now time.Time) (bool, error)
	MarkSeen(ctx context.Context, key string, now time.Time) error
}

var _ FingerprintStore = (*FingerprintRepository)(nil)
