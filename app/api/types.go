package api

import (
	"context"

	"github.com/lysyi3m/hookrelay/app/auth"
	"github.com/lysyi3m/hookrelay/app/ingest"
)

// WebhookProcessor runs one GitHub delivery through the pipeline.
type WebhookProcessor interface {
	Handle(ctx context.Context, d ingest.Delivery) (*ingest.Outcome, error)
}

// FeedSubmitter accepts pushed feed items.
type FeedSubmitter interface {
	Submit(ctx context.Context, req ingest.SubmitRequest) (*ingest.SubmitResult, error)
}

var (
	_ WebhookProcessor = (*ingest.WebhookPipeline)(nil)
	_ FeedSubmitter    = (*ingest.Submitter)(nil)
)

type Handler struct {
	webhook       WebhookProcessor
	submitter     FeedSubmitter
	authenticator auth.Authenticator
	serviceName   string
}

// Routes holds the configurable inbound paths.
type Routes struct {
	WebhookPath string
	SubmitPath  string
}

type errorResponse struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type webhookResponse struct {
	OK        bool   `json:"ok"`
	Forwarded bool   `json:"forwarded,omitempty"`
	Spawned   bool   `json:"spawned,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	Pong      bool   `json:"pong,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
