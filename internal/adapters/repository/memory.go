package repository

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/okian/modelfusion/internal/domain/model"
)

// MemoryCache is the in-process tier. Put replaces the whole content.
type MemoryCache struct {
	mu     sync.RWMutex
	models map[string]model.EnhancedModel
}

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{models: map[string]model.EnhancedModel{}}
}

// Put swaps in models.
func (c *MemoryCache) Put(_ context.Context, models map[string]model.EnhancedModel) error {
	next := make(map[string]model.EnhancedModel, len(models))
	for id, m := range models {
		next[id] = m
	}
	c.mu.Lock()
	c.models = next
	c.mu.Unlock()
	return nil
}

// Get looks up one model.
func (c *MemoryCache) Get(_ context.Context, id string) (model.EnhancedModel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[id]
	if !ok {
		return model.EnhancedModel{}, eris.Wrapf(ErrNotFound, "model %q", id)
	}
	return m, nil
}

// Len returns the number of cached models.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}

// Close is a no-op.
func (c *MemoryCache) Close() error { return nil }
