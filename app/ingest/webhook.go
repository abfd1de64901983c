package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/hookrelay/app/auth"
	"github.com/lysyi3m/hookrelay/app/database"
	"github.com/lysyi3m/hookrelay/app/dedupe"
	"github.com/lysyi3m/hookrelay/app/gateway"
	"github.com/lysyi3m/hookrelay/app/github"
	"github.com/lysyi3m/hookrelay/app/metrics"
)

const (
	TaskTimeoutSeconds = 600
	pathWebhook        = "webhook"
)

// Delivery is one inbound GitHub webhook request.
type Delivery struct {
	Event     string
	ID        string
	Signature string
	Body      []byte
}

// Outcome is the non-error result of handling a delivery.
type Outcome struct {
	Forwarded bool
	Ignored   bool
	Pong      bool
	Reason    string
	Label     string
}

type WebhookConfig struct {
	Secret           string
	ReplySignature   string
	IgnoredActors    []string
	RunDedupeTTL     time.Duration
	DedupeWindowDays int
}

// WebhookPipeline verifies, normalizes, filters, deduplicates and forwards
// GitHub deliveries.
type WebhookPipeline struct {
	config    WebhookConfig
	policy    *github.Policy
	runDedupe *dedupe.RunDeduper
	store     database.FingerprintStore
	forwarder Forwarder
	now       func() time.Time
}

func NewWebhookPipeline(config WebhookConfig, runDedupe *dedupe.RunDeduper, store database.FingerprintStore, forwarder Forwarder) *WebhookPipeline {
	return &WebhookPipeline{
		config:    config,
		policy:    github.NewPolicy(config.ReplySignature, config.IgnoredActors),
		runDedupe: runDedupe,
		store:     store,
		forwarder: forwarder,
		now:       time.Now,
	}
}

// Handle runs one delivery through the pipeline. Ignored and deduplicated
// deliveries are reported through Outcome, failures through the error,
// which wraps one of auth.ErrInvalidSignature, ErrMissingEventHeader,
// github.ErrUnsupportedEvent, github.ErrMalformedPayload,
// database.ErrStorageUnavailable or a gateway sentinel.
func (p *WebhookPipeline) Handle(ctx context.Context, d Delivery) (*Outcome, error) {
	if err := auth.VerifySignature(p.config.Secret, d.Signature, d.Body); err != nil {
		metrics.RecordWebhook(metrics.OutcomeRejected, "signature")
		return nil, err
	}

	if d.Event == "" {
		metrics.RecordWebhook(metrics.OutcomeRejected, "missing_header")
		return nil, ErrMissingEventHeader
	}

	if github.EventKind(d.Event) == github.EventPing {
		slog.Info("Webhook ping received", "delivery", d.ID)
		return &Outcome{Pong: true}, nil
	}

	ev, err := github.Normalize(d.Event, d.Body)
	if err != nil {
		var perr *github.PayloadError
		reason := "payload"
		if errors.As(err, &perr) {
			reason = perr.Reason
		}
		metrics.RecordWebhook(metrics.OutcomeRejected, reason)
		return nil, err
	}

	if reason := p.policy.ShouldIgnore(ev); reason != "" {
		slog.Info("Webhook ignored", "delivery", d.ID, "event", ev.Kind, "repo", ev.Repo, "reason", reason)
		metrics.RecordWebhook(metrics.OutcomeIgnored, reason)
		return &Outcome{Ignored: true, Reason: reason}, nil
	}

	key := github.DedupeKey(ev, d.ID)
	now := p.now()

	if p.runDedupe.CheckAndMark(key, p.config.RunDedupeTTL, now) {
		return p.deduped(key), nil
	}

	start := time.Now()
	seen, err := p.store.IsRecentlySeen(ctx, key, p.config.DedupeWindowDays, now)
	metrics.ObserveStore("is_recently_seen", start)
	if err != nil {
		p.runDedupe.Forget(key)
		metrics.RecordWebhook(metrics.OutcomeFailed, "storage")
		return nil, err
	}
	if seen {
		return p.deduped(key), nil
	}

	body, err := github.TaskBody(ev, d.ID, now, p.config.ReplySignature)
	if err != nil {
		p.runDedupe.Forget(key)
		return nil, err
	}
	task := gateway.Task{
		Label:          github.TaskLabel(ev),
		Body:           body,
		Cleanup:        gateway.CleanupKeep,
		TimeoutSeconds: TaskTimeoutSeconds,
	}

	if err := p.forwarder.Forward(ctx, task); err != nil {
		// Release the slot so the sender's own retry is not swallowed.
		p.runDedupe.Forget(key)
		recordForwardFailure(pathWebhook, err)
		metrics.RecordWebhook(metrics.OutcomeFailed, "forward")
		return nil, fmt.Errorf("failed to forward delivery %s: %w", key, err)
	}

	start = time.Now()
	if err := p.store.MarkSeen(ctx, key, now); err != nil {
		// The forward already happened; the run slot still absorbs retries.
		slog.Error("Failed to persist fingerprint after forward", "key", key, "error", err)
	}
	metrics.ObserveStore("mark_seen", start)

	slog.Info("Webhook forwarded",
		"delivery", d.ID,
		"event", ev.Kind,
		"action", ev.Action,
		"repo", ev.Repo,
		"number", ev.Number,
		"label", task.Label)
	metrics.RecordWebhook(metrics.OutcomeForwarded, "")

	return &Outcome{Forwarded: true, Label: task.Label}, nil
}

func (p *WebhookPipeline) deduped(key string) *Outcome {
	reason := "deduped:" + key
	slog.Info("Webhook deduplicated", "key", key)
	metrics.RecordWebhook(metrics.OutcomeDeduped, reason)
	return &Outcome{Ignored: true, Reason: reason}
}

func recordForwardFailure(path string, err error) {
	kind := "unknown"
	var ie *gateway.InvokeError
	if errors.As(err, &ie) {
		kind = ie.Kind()
	}
	metrics.RecordForwardFailure(path, kind)
}
