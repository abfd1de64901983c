package ingest

import (
	"context"

	"github.com/lysyi3m/hookrelay/app/feed"
	"github.com/lysyi3m/hookrelay/app/gateway"
)

// Forwarder hands a task to the agent gateway.
type Forwarder interface {
	Forward(ctx context.Context, task gateway.Task) error
}

// Fetcher turns one configured source into items.
type Fetcher interface {
	Fetch(ctx context.Context, src feed.Source) ([]feed.Item, error)
}

// ConfigSource provides the current traveler configuration.
type ConfigSource interface {
	Get() (*feed.Config, error)
}

var (
	_ Forwarder    = (*gateway.Client)(nil)
	_ Fetcher      = (*feed.Fetcher)(nil)
	_ ConfigSource = (*feed.ConfigCache)(nil)
)
