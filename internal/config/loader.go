package config

import (
	"context"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rotisserie/eris"

	"github.com/okian/modelfusion/internal/domain/scoring"
)

// Environment variable names.
const (
	EnvConfigFile = "FUSION_CONFIG"
	envPrefix     = "FUSION_"
)

// Unprefixed variables honoured for compatibility with older deployments.
// They sit between the file and the FUSION_ variables in precedence.
var legacyEnv = map[string]string{
	"ANALYTICS_API_KEY": "analytics_api_key",
	"MODELS_JSON_PATH":  "static_catalog_path",
	"SCRAPED_DATA_DIR":  "benchmark_dir",
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if FUSION_CONFIG is set
//  3. legacy unprefixed env (ANALYTICS_API_KEY, MODELS_JSON_PATH, SCRAPED_DATA_DIR)
//  4. env (prefix FUSION_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, eris.Wrapf(ErrLoadConfig, "read %s: %v", path, err)
		}
	}

	for name, key := range legacyEnv {
		if v := os.Getenv(name); v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, eris.Wrapf(ErrLoadConfig, "legacy %s: %v", name, err)
			}
		}
	}

	// FUSION_REDIS_ADDR -> redis_addr (flat keys, underscores preserved).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, eris.Wrapf(ErrLoadConfig, "env: %v", err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, eris.Wrapf(ErrLoadConfig, "unmarshal: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return eris.Wrap(ErrInvalidConfig, "addr must not be empty")
	case c.CacheTTLSeconds <= 0:
		return eris.Wrap(ErrInvalidConfig, "cache_ttl_seconds must be positive")
	case c.MaxRankingLimit <= 0:
		return eris.Wrap(ErrInvalidConfig, "max_ranking_limit must be positive")
	case c.FetchTimeoutMS <= 0:
		return eris.Wrap(ErrInvalidConfig, "fetch_timeout_ms must be positive")
	case c.AnalyticsTimeoutMS <= 0:
		return eris.Wrap(ErrInvalidConfig, "analytics_timeout_ms must be positive")
	case c.AnalyticsRatePerSec < 0:
		return eris.Wrap(ErrInvalidConfig, "analytics_rate_per_sec must not be negative")
	case strings.TrimSpace(c.BenchmarkPattern) == "":
		return eris.Wrap(ErrInvalidConfig, "benchmark_pattern must not be empty")
	}

	for name, cat := range c.Categories {
		if _, ok := scoring.ParseCategory(name); !ok {
			return eris.Wrapf(ErrInvalidConfig, "unknown category %q", name)
		}
		if cat.Formula != "" && !scoring.KnownFormula(cat.Formula) {
			return eris.Wrapf(ErrInvalidConfig, "category %s: unknown formula %q", name, cat.Formula)
		}
		for bench, w := range cat.Weights {
			if w < 0 {
				return eris.Wrapf(ErrInvalidConfig, "category %s: negative weight for %s", name, bench)
			}
		}
	}
	return nil
}
