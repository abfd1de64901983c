package feed

import (
	"time"
)

// Item is one feed entry selected for forwarding. The URL is its fingerprint.
type Item struct {
	Source      string     `json:"source"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Summary     string     `json:"summary,omitempty"`
}

// Configuration types

type Config struct {
	Persona   Persona   `yaml:"persona"`
	Interests Interests `yaml:"interests"`
	Sources   []Source  `yaml:"sources"`
	Ranking   Ranking   `yaml:"ranking"`
	Output    Output    `yaml:"output"`
}

type Persona struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Voice       string   `yaml:"voice"`
	Boundaries  []string `yaml:"boundaries"`
}

type Interests struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

type Source struct {
	Type           string `yaml:"type"` // only "rss"
	Name           string `yaml:"name"`
	URL            string `yaml:"url"`
	Limit          int    `yaml:"limit"`           // items taken from one fetch, 0 = all
	Timeout        int    `yaml:"timeout"`         // seconds
	ExtractSummary bool   `yaml:"extract_summary"` // fetch the article when the feed has no summary
}

type Ranking struct {
	DedupeWindowDays int `yaml:"dedupe_window_days"`
	MaxItemsPerRun   int `yaml:"max_items_per_run"`
	PerSourceLimit   int `yaml:"per_source_limit"`
}

type Output struct {
	Tags   []string `yaml:"tags"`
	Public bool     `yaml:"public"`
}

const (
	SourceTypeRSS = "rss"

	DefaultPersonaName      = "Traveler"
	DefaultVoice            = "curious, concise"
	DefaultDedupeWindowDays = 7
	DefaultMaxItemsPerRun   = 20
	DefaultPerSourceLimit   = 10
	DefaultSourceTimeout    = 30
)

var DefaultTags = []string{"inbox", "traveler"}
