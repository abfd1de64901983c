package cfg

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP surface
	Port        string `long:"port" env:"PORT" default:"8787" description:"HTTP server port"`
	WebhookPath string `long:"webhook-path" env:"WEBHOOK_PATH" default:"/webhook" description:"Path receiving GitHub webhook deliveries"`
	SubmitPath  string `long:"submit-path" env:"SUBMIT_PATH" default:"/traveler/submit" description:"Path receiving pushed feed items"`
	ServiceName string `long:"service-name" env:"SERVICE_NAME" default:"hookrelay" description:"Service name reported by /healthz"`

	// Agent gateway
	GatewayURL     string `long:"gateway-url" env:"OPENCLAW_GATEWAY_URL" default:"http://127.0.0.1:18789" description:"Agent gateway base URL"`
	GatewayToken   string `long:"gateway-token" env:"OPENCLAW_GATEWAY_TOKEN" description:"Bearer token for the agent gateway"`
	GatewayTimeout int    `long:"gateway-timeout" env:"OPENCLAW_GATEWAY_TIMEOUT" default:"30" description:"Gateway request timeout in seconds"`
	SessionKey     string `long:"session-key" env:"OPENCLAW_SESSION_KEY" description:"Session key sent with every gateway invocation (optional)"`

	// GitHub webhook
	GitHubSecret     string `long:"github-secret" env:"GITHUB_WEBHOOK_SECRET" description:"Shared secret for X-Hub-Signature-256 (required unless --once)"`
	ReplySignature   string `long:"reply-signature" env:"REPLY_SIGNATURE" default:"— replied by OpenClaw assistant" description:"Signature appended to agent replies, used to ignore our own comments"`
	IgnoredActors    string `long:"ignored-actors" env:"IGNORED_ACTORS" default:"github-actions[bot]" description:"Comma separated logins whose events are ignored"`
	RunDedupeTTL     int    `long:"run-dedupe-ttl" env:"RUN_DEDUPE_TTL" default:"1800" description:"In-process dedupe window in seconds"`
	DedupeWindowDays int    `long:"webhook-dedupe-days" env:"WEBHOOK_DEDUPE_DAYS" default:"7" description:"Durable dedupe window for webhook deliveries in days"`

	// Feed submission
	APIToken   string `long:"api-token" env:"TRAVELER_API_TOKEN" description:"Token accepted in X-API-Token for submissions (optional)"`
	HMACSecret string `long:"hmac-secret" env:"TRAVELER_HMAC_SECRET" description:"Secret for X-Signature on submissions (optional)"`

	// Traveler
	TravelerConfig   string `long:"traveler-config" env:"TRAVELER_CONFIG" default:"configs/default.yaml" description:"Traveler YAML configuration"`
	StateDB          string `long:"state-db" env:"STATE_DB" default:".local/state/traveler.db" description:"SQLite fingerprint store"`
	LegacyStateFiles string `long:"legacy-state" env:"LEGACY_STATE_FILES" default:"state/seen.json,.local/state/seen.json" description:"Comma separated JSON state files imported once into an empty store"`
	ScheduleInterval int    `long:"schedule-interval" env:"SCHEDULE_INTERVAL" default:"0" description:"Minutes between scheduled runs, 0 disables"`
	RunOnStart       bool   `long:"run-on-start" env:"RUN_ON_START" description:"Run one scheduled pass at startup"`
	RetentionDays    int    `long:"retention-days" env:"RETENTION_DAYS" default:"0" description:"Delete fingerprints older than this after each run, 0 keeps everything"`
	UserAgent        string `long:"user-agent" env:"USER_AGENT" default:"Traveler/1.0" description:"User agent string for feed requests"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	Once     bool   `long:"once" description:"Run a single scheduled pass and exit"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return load(nil)
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func fromRaw(raw rawCfg) (*Cfg, error) {
	if raw.GitHubSecret == "" && !raw.Once {
		return nil, fmt.Errorf("GitHub webhook secret is required")
	}
	if !strings.HasPrefix(raw.WebhookPath, "/") || !strings.HasPrefix(raw.SubmitPath, "/") {
		return nil, fmt.Errorf("webhook and submit paths must start with '/'")
	}
	if raw.WebhookPath == raw.SubmitPath {
		return nil, fmt.Errorf("webhook and submit paths must differ")
	}
	if raw.GatewayTimeout <= 0 {
		return nil, fmt.Errorf("gateway timeout must be positive, got %d", raw.GatewayTimeout)
	}
	if raw.RunDedupeTTL <= 0 {
		return nil, fmt.Errorf("run dedupe TTL must be positive, got %d", raw.RunDedupeTTL)
	}
	if raw.DedupeWindowDays <= 0 {
		return nil, fmt.Errorf("webhook dedupe window must be positive, got %d", raw.DedupeWindowDays)
	}
	if raw.RetentionDays < 0 {
		return nil, fmt.Errorf("retention days must not be negative, got %d", raw.RetentionDays)
	}
	if raw.RetentionDays > 0 && raw.RetentionDays <= raw.DedupeWindowDays {
		return nil, fmt.Errorf("retention days (%d) must exceed the webhook dedupe window (%d)", raw.RetentionDays, raw.DedupeWindowDays)
	}

	return &Cfg{
		Port:             raw.Port,
		WebhookPath:      raw.WebhookPath,
		SubmitPath:       raw.SubmitPath,
		ServiceName:      raw.ServiceName,
		GatewayURL:       strings.TrimRight(raw.GatewayURL, "/"),
		GatewayToken:     raw.GatewayToken,
		GatewayTimeout:   time.Duration(raw.GatewayTimeout) * time.Second,
		SessionKey:       raw.SessionKey,
		GitHubSecret:     raw.GitHubSecret,
		ReplySignature:   raw.ReplySignature,
		IgnoredActors:    splitList(raw.IgnoredActors),
		RunDedupeTTL:     time.Duration(raw.RunDedupeTTL) * time.Second,
		DedupeWindowDays: raw.DedupeWindowDays,
		APIToken:         raw.APIToken,
		HMACSecret:       raw.HMACSecret,
		TravelerConfig:   raw.TravelerConfig,
		StateDB:          raw.StateDB,
		LegacyStateFiles: splitList(raw.LegacyStateFiles),
		ScheduleInterval: time.Duration(raw.ScheduleInterval) * time.Minute,
		RunOnStart:       raw.RunOnStart,
		RetentionDays:    raw.RetentionDays,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Once:             raw.Once,
		Version:          GetVersion(),
	}, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
