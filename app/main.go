package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/hookrelay/app/api"
	"github.com/lysyi3m/hookrelay/app/auth"
	"github.com/lysyi3m/hookrelay/app/cfg"
	"github.com/lysyi3m/hookrelay/app/database"
	"github.com/lysyi3m/hookrelay/app/dedupe"
	"github.com/lysyi3m/hookrelay/app/feed"
	"github.com/lysyi3m/hookrelay/app/gateway"
	"github.com/lysyi3m/hookrelay/app/ingest"
	"github.com/lysyi3m/hookrelay/app/tasks"
)

func main() {
	cfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg == nil {
		return
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting hookrelay", "version", cfg.Version, "port", cfg.Port)

	ctx := context.Background()

	store, err := database.OpenFingerprintStore(ctx, cfg.StateDB, cfg.LegacyStateFiles)
	if err != nil {
		slog.Error("Failed to open fingerprint store", "path", cfg.StateDB, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	client := gateway.NewClient(cfg.GatewayURL, cfg.GatewayToken, cfg.GatewayTimeout)
	if cfg.SessionKey != "" {
		client = client.WithSessionKey(cfg.SessionKey)
	}

	configCache := feed.NewConfigCache(cfg.TravelerConfig)
	fetcher := feed.NewFetcher(&http.Client{}, feed.NewParser(), feed.NewSummaryExtractor(), cfg.UserAgent)
	runner := ingest.NewRunner(configCache, fetcher, store, client)

	if cfg.Once {
		if err := runOnce(ctx, runner); err != nil {
			slog.Error("Run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	pipeline := ingest.NewWebhookPipeline(ingest.WebhookConfig{
		Secret:           cfg.GitHubSecret,
		ReplySignature:   cfg.ReplySignature,
		IgnoredActors:    cfg.IgnoredActors,
		RunDedupeTTL:     cfg.RunDedupeTTL,
		DedupeWindowDays: cfg.DedupeWindowDays,
	}, dedupe.NewRunDeduper(), store, client)
	submitter := ingest.NewSubmitter(configCache, store, client)

	if cfg.RetentionDays > 0 {
		if err := tasks.CheckRetention(configCache, cfg.RetentionDays); err != nil {
			slog.Error("Invalid retention configuration", "error", err)
			os.Exit(1)
		}
	}

	scheduler := tasks.NewScheduler(runner, store, configCache, tasks.Options{
		Interval:      cfg.ScheduleInterval,
		RunOnStart:    cfg.RunOnStart,
		RetentionDays: cfg.RetentionDays,
	})
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(pipeline, submitter, auth.Authenticator{
		Token:      cfg.APIToken,
		HMACSecret: cfg.HMACSecret,
	}, cfg.ServiceName)
	server := api.NewServer(handler, api.Routes{
		WebhookPath: cfg.WebhookPath,
		SubmitPath:  cfg.SubmitPath,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GatewayTimeout*2 + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

func runOnce(ctx context.Context, runner *ingest.Runner) error {
	result, err := runner.RunOnce(ctx)
	if err != nil {
		return err
	}
	slog.Info("Run finished", "fetched", result.Fetched, "forwarded", result.Selected, "label", result.Label)
	return nil
}
