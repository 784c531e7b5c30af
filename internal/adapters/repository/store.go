// Package repository holds the published consolidation state, the cache
// tiers behind point lookups and the durable snapshot file.
package repository

import (
	"context"
	"time"

	"github.com/okian/modelfusion/internal/domain/model"
)

// Entry is one row of a category ranking.
type Entry struct {
	Rank        int     `json:"rank"`
	ModelID     string  `json:"model_id"`
	DisplayName string  `json:"display_name"`
	Provider    string  `json:"provider"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
}

// SourceStatus is what a pass learned about one source.
type SourceStatus struct {
	Quality model.DataQuality
	Records int
	Enabled bool
}

// Snapshot is the immutable result of one consolidation pass.
type Snapshot struct {
	PassID      string
	Trigger     string
	CompletedAt time.Time
	Duration    time.Duration
	Models      map[string]model.EnhancedModel
	Sources     map[model.SourceKind]SourceStatus
	Ambiguities int
	Synthesized int
	Skipped     int

	// filled by State.Publish
	rankings map[string][]Entry
}

// Cache is a keyed store of consolidated models.
type Cache interface {
	// Put writes a whole pass. Implementations may keep models from older
	// passes; readers compare pass ids.
	Put(ctx context.Context, models map[string]model.EnhancedModel) error
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (model.EnhancedModel, error)
	Close() error
}
