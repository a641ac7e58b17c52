// Package config loads the daemon's YAML configuration, filling in defaults
// for anything the file omits. A missing file yields a fully defaulted
// config so the daemon runs without one.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GeminiConfig configures the external summarization and embedding service.
// The API key comes from the environment variable named by APIKeyEnv, never
// from the file itself.
type GeminiConfig struct {
	BaseURL     string `yaml:"base_url"`
	EmbedModel  string `yaml:"embed_model"`
	TextModel   string `yaml:"text_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	KeyInHeader bool   `yaml:"key_in_header"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SearchConfig tunes result filtering.
type SearchConfig struct {
	MinScore   float64 `yaml:"min_score"`
	MaxResults int     `yaml:"max_results"`
}

// StoreConfig bounds the page store.
type StoreConfig struct {
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
}

// IndexConfig tunes the indexing pipeline.
type IndexConfig struct {
	BatchSize        int `yaml:"batch_size"`
	BatchDelayMS     int `yaml:"batch_delay_ms"`
	MinTextLength    int `yaml:"min_text_length"`
	MaxContentChars  int `yaml:"max_content_chars"`
	MaxBackfillPages int `yaml:"max_backfill_pages"`
	MaxRetries       int `yaml:"max_retries"`
}

// CacheConfig tunes the query-embedding cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
	TTLHours   int `yaml:"ttl_hours"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Addr   string       `yaml:"addr"`
	Store  StoreConfig  `yaml:"store"`
	Search SearchConfig `yaml:"search"`
	Index  IndexConfig  `yaml:"index"`
	Cache  CacheConfig  `yaml:"cache"`
	Gemini GeminiConfig `yaml:"gemini"`
}

// Load reads the config at path. A missing file returns defaults; a present
// but unreadable or invalid file is an error.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := &AppConfig{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// BatchDelay returns the inter-batch pause as a duration.
func (c *AppConfig) BatchDelay() time.Duration {
	return time.Duration(c.Index.BatchDelayMS) * time.Millisecond
}

// CacheTTL returns the query-cache entry lifetime as a duration.
func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// GeminiTimeout returns the API client timeout as a duration.
func (c *AppConfig) GeminiTimeout() time.Duration {
	return time.Duration(c.Gemini.TimeoutSecs) * time.Second
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "semhist.db"
	}
	if cfg.Store.MaxEntries == 0 {
		cfg.Store.MaxEntries = 1000
	}
	if cfg.Search.MinScore == 0 {
		cfg.Search.MinScore = 0.3
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 10
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = 10
	}
	if cfg.Index.BatchDelayMS == 0 {
		cfg.Index.BatchDelayMS = 2000
	}
	if cfg.Index.MinTextLength == 0 {
		cfg.Index.MinTextLength = 100
	}
	if cfg.Index.MaxContentChars == 0 {
		cfg.Index.MaxContentChars = 15000
	}
	if cfg.Index.MaxBackfillPages == 0 {
		cfg.Index.MaxBackfillPages = 500
	}
	if cfg.Index.MaxRetries == 0 {
		cfg.Index.MaxRetries = 3
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 50
	}
	if cfg.Cache.TTLHours == 0 {
		cfg.Cache.TTLHours = 24
	}
	if cfg.Gemini.APIKeyEnv == "" {
		cfg.Gemini.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Gemini.TimeoutSecs == 0 {
		cfg.Gemini.TimeoutSecs = 30
	}
}
