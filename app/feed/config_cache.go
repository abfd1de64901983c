package feed

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// ConfigCache loads the traveler YAML document lazily and keeps the last
// good copy. Reload replaces it only when the new document is valid.
type ConfigCache struct {
	path   string
	config *Config
	mu     sync.RWMutex
}

func NewConfigCache(path string) *ConfigCache {
	return &ConfigCache{path: path}
}

// Get returns the cached config, loading it on first use.
func (cc *ConfigCache) Get() (*Config, error) {
	cc.mu.RLock()
	config := cc.config
	cc.mu.RUnlock()

	if config != nil {
		return config, nil
	}
	return cc.Reload()
}

func (cc *ConfigCache) Reload() (*Config, error) {
	config, err := LoadConfig(cc.path)
	if err != nil {
		return nil, err
	}

	cc.mu.Lock()
	cc.config = config
	cc.mu.Unlock()

	slog.Debug("Traveler configuration loaded",
		"path", cc.path,
		"sources", len(config.Sources),
		"dedupe_window_days", config.Ranking.DedupeWindowDays)

	return config, nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	config, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Persona.Name == "" {
		config.Persona.Name = DefaultPersonaName
	}
	if config.Persona.Voice == "" {
		config.Persona.Voice = DefaultVoice
	}
	if config.Ranking.DedupeWindowDays == 0 {
		config.Ranking.DedupeWindowDays = DefaultDedupeWindowDays
	}
	if config.Ranking.MaxItemsPerRun == 0 {
		config.Ranking.MaxItemsPerRun = DefaultMaxItemsPerRun
	}
	if config.Ranking.PerSourceLimit == 0 {
		config.Ranking.PerSourceLimit = DefaultPerSourceLimit
	}
	if len(config.Output.Tags) == 0 {
		config.Output.Tags = DefaultTags
	}

	for i := range config.Sources {
		src := &config.Sources[i]
		if src.Type == "" {
			src.Type = SourceTypeRSS
		}
		if src.Name == "" {
			src.Name = SourceTypeRSS
		}
		if src.Timeout == 0 {
			src.Timeout = DefaultSourceTimeout
		}
	}
}

func validateConfig(config *Config) error {
	nonNegativeFields := map[string]int{
		"dedupe_window_days": config.Ranking.DedupeWindowDays,
		"max_items_per_run":  config.Ranking.MaxItemsPerRun,
		"per_source_limit":   config.Ranking.PerSourceLimit,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	for i, src := range config.Sources {
		if src.Type != SourceTypeRSS {
			return fmt.Errorf("source at index %d: unsupported type %q", i, src.Type)
		}
		if src.URL == "" {
			return fmt.Errorf("source at index %d: url is required", i)
		}
		if src.Limit < 0 || src.Timeout < 0 {
			return fmt.Errorf("source at index %d: limit and timeout must be non-negative", i)
		}
	}

	return nil
}
