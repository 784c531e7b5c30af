package repository

import (
	"time"

	"github.com/okian/modelfusion/pkg/logger"
)

// Option applies a configuration option to the RedisCache.
type Option func(*RedisCache)

// WithTTL sets the expiry of every cached model.
func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the key prefix, "model:" by default.
func WithKeyPrefix(prefix string) Option {
	return func(c *RedisCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// TieredOption configures a TieredCache.
type TieredOption func(*TieredCache)

// WithLogger sets the tiered cache logger.
func WithLogger(l logger.Logger) TieredOption {
	return func(t *TieredCache) {
		if l != nil {
			t.log = l
		}
	}
}
