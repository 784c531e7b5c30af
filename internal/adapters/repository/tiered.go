package repository

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/okian/modelfusion/internal/domain/model"
	"github.com/okian/modelfusion/pkg/logger"
	"github.com/okian/modelfusion/pkg/metrics"
)

// TieredCache fronts an optional primary cache with the in-process tier.
// Writes always reach the memory tier; reads fall back to it whenever the
// primary errors, misses, or holds a model from another pass.
type TieredCache struct {
	primary  Cache
	fallback *MemoryCache
	log      logger.Logger

	fallbackInUse atomic.Bool
}

// NewTieredCache wraps primary, which may be nil.
func NewTieredCache(primary Cache, opts ...TieredOption) *TieredCache {
	t := &TieredCache{
		primary:  primary,
		fallback: NewMemoryCache(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PrimaryConfigured reports whether a primary tier exists.
func (t *TieredCache) PrimaryConfigured() bool { return t.primary != nil }

// FallbackInUse is true after the primary's last operation failed.
func (t *TieredCache) FallbackInUse() bool { return t.fallbackInUse.Load() }

// Put writes a pass to both tiers. The returned error only reports the
// primary failure; the memory tier is always updated.
func (t *TieredCache) Put(ctx context.Context, models map[string]model.EnhancedModel) error {
	_ = t.fallback.Put(ctx, models)
	if t.primary == nil {
		return nil
	}
	if err := t.primary.Put(ctx, models); err != nil {
		t.degrade(ctx, "put", err)
		return err
	}
	t.restore(ctx)
	return nil
}

// Lookup returns the model published by passID.
func (t *TieredCache) Lookup(ctx context.Context, id, passID string) (model.EnhancedModel, error) {
	if t.primary != nil {
		m, err := t.primary.Get(ctx, id)
		switch {
		case err == nil:
			t.restore(ctx)
			if m.PassID == passID {
				return m, nil
			}
		case errors.Is(err, ErrNotFound):
			t.restore(ctx)
		default:
			t.degrade(ctx, "get", err)
		}
	}
	return t.fallback.Get(ctx, id)
}

// Get satisfies Cache by reading whatever pass the tiers hold.
func (t *TieredCache) Get(ctx context.Context, id string) (model.EnhancedModel, error) {
	if t.primary != nil {
		m, err := t.primary.Get(ctx, id)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, ErrNotFound) {
			t.degrade(ctx, "get", err)
		}
	}
	return t.fallback.Get(ctx, id)
}

// Close closes the primary.
func (t *TieredCache) Close() error {
	if t.primary == nil {
		return nil
	}
	return t.primary.Close()
}

func (t *TieredCache) degrade(ctx context.Context, op string, err error) {
	metrics.RecordCacheError(op)
	if !t.fallbackInUse.Swap(true) {
		t.log.Warn(ctx, "primary cache unavailable, serving from memory", logger.String("op", op), logger.Error(err))
		metrics.UpdateCacheFallbackInUse(true)
	}
}

func (t *TieredCache) restore(ctx context.Context) {
	if t.fallbackInUse.Swap(false) {
		t.log.Info(ctx, "primary cache recovered")
		metrics.UpdateCacheFallbackInUse(false)
	}
}
