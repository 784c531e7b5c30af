// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped with eris and one of this package's kinds.
package config

import (
	"context"
	"time"
)

// CategoryConfig overrides the benchmark weights and formula of one category.
type CategoryConfig struct {
	Weights map[string]float64 `koanf:"weights"`
	Formula string             `koanf:"formula"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StaticCatalogPath points at the curated catalog (JSON array or YAML list).
	StaticCatalogPath string `koanf:"static_catalog_path"`

	// BenchmarkDir and BenchmarkPattern select the scraped snapshot files.
	BenchmarkDir     string `koanf:"benchmark_dir"`
	BenchmarkPattern string `koanf:"benchmark_pattern"`

	// Analytics API access. An empty key disables the source.
	AnalyticsURL        string  `koanf:"analytics_url"`
	AnalyticsAPIKey     string  `koanf:"analytics_api_key"`
	AnalyticsTimeoutMS  int     `koanf:"analytics_timeout_ms"`
	AnalyticsRatePerSec float64 `koanf:"analytics_rate_per_sec"`

	// FetchTimeoutMS bounds every source fetch.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// Primary cache. An empty address keeps the store in-process only.
	RedisAddr       string `koanf:"redis_addr"`
	RedisPassword   string `koanf:"redis_password"`
	RedisDB         int    `koanf:"redis_db"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`
	CacheKeyPrefix  string `koanf:"cache_key_prefix"`

	// SnapshotPath is the durable JSON file rewritten after every pass.
	SnapshotPath string `koanf:"snapshot_path"`

	// WarmStart loads SnapshotPath into the published state on startup.
	WarmStart bool `koanf:"warm_start"`

	// ConsolidationSchedule is a cron spec; empty disables scheduled passes.
	ConsolidationSchedule string `koanf:"consolidation_schedule"`

	// ConsolidateOnStart queues a pass as soon as the service starts.
	ConsolidateOnStart bool `koanf:"consolidate_on_start"`

	// MaxRankingLimit caps GET /rankings/{category}?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit"`

	// Categories overrides the built-in category table by name.
	Categories map[string]CategoryConfig `koanf:"categories"`
}

// New creates a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		StaticCatalogPath:     "configs/models.json",
		BenchmarkDir:          "configs",
		BenchmarkPattern:      "trun*.json",
		AnalyticsURL:          "https://artificialanalysis.ai/api/v2/data/llms/models",
		AnalyticsTimeoutMS:    30_000,
		AnalyticsRatePerSec:   1,
		FetchTimeoutMS:        45_000,
		CacheTTLSeconds:       3600,
		CacheKeyPrefix:        "model:",
		SnapshotPath:          "enhanced_models.json",
		WarmStart:             true,
		ConsolidationSchedule: "@every 1h",
		ConsolidateOnStart:    true,
		MaxRankingLimit:       100,
	}
}

// AnalyticsTimeout returns the analytics HTTP client timeout.
func (c *Config) AnalyticsTimeout() time.Duration {
	return time.Duration(c.AnalyticsTimeoutMS) * time.Millisecond
}

// FetchTimeout returns the per-source fetch bound.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// CacheTTL returns the primary cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
