package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/okian/modelfusion/internal/domain/model"
)

// Redis defaults.
const (
	DefaultTTL       = time.Hour
	DefaultKeyPrefix = "model:"
)

// RedisConfig holds connection settings for the primary tier.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache stores each model as JSON under <prefix><id> with a TTL.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache builds the client without dialing; use Ping to check it.
func NewRedisCache(cfg RedisConfig, opts ...Option) *RedisCache {
	c := &RedisCache{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl:    DefaultTTL,
		prefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks that redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return eris.Wrapf(ErrCacheUnavailable, "ping: %v", err)
	}
	return nil
}

// Key returns the redis key for id.
func (c *RedisCache) Key(id string) string { return c.prefix + id }

// Put writes every model in one pipeline.
func (c *RedisCache) Put(ctx context.Context, models map[string]model.EnhancedModel) error {
	if len(models) == 0 {
		return nil
	}
	pipe := c.rdb.Pipeline()
	for id, m := range models {
		data, err := json.Marshal(m)
		if err != nil {
			return eris.Wrapf(ErrCacheUnavailable, "encode %s: %v", id, err)
		}
		pipe.Set(ctx, c.Key(id), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return eris.Wrapf(ErrCacheUnavailable, "write %d models: %v", len(models), err)
	}
	return nil
}

// Get reads one model.
func (c *RedisCache) Get(ctx context.Context, id string) (model.EnhancedModel, error) {
	var m model.EnhancedModel
	data, err := c.rdb.Get(ctx, c.Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return m, eris.Wrapf(ErrNotFound, "model %q", id)
	}
	if err != nil {
		return m, eris.Wrapf(ErrCacheUnavailable, "get %s: %v", id, err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, eris.Wrapf(ErrCacheUnavailable, "decode %s: %v", id, err)
	}
	return m, nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
