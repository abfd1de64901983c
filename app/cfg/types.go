package cfg

import "time"

type Cfg struct {
	// HTTP surface
	Port        string
	WebhookPath string
	SubmitPath  string
	ServiceName string

	// Agent gateway
	GatewayURL     string
	GatewayToken   string
	GatewayTimeout time.Duration
	SessionKey     string

	// GitHub webhook
	GitHubSecret     string
	ReplySignature   string
	IgnoredActors    []string
	RunDedupeTTL     time.Duration
	DedupeWindowDays int

	// Feed submission
	APIToken   string
	HMACSecret string

	// Traveler
	TravelerConfig   string
	StateDB          string
	LegacyStateFiles []string
	ScheduleInterval time.Duration
	RunOnStart       bool
	RetentionDays    int
	UserAgent        string

	// Application metadata
	Timezone string
	Debug    bool
	Once     bool
	Version  string
}
