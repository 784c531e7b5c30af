package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/okian/modelfusion/internal/adapters/repository"
	"github.com/okian/modelfusion/internal/domain/model"
	"github.com/okian/modelfusion/internal/domain/scoring"
	"github.com/okian/modelfusion/pkg/metrics"
)

// StatusOperational is the only status the service reports; degraded
// sources show up in the per-source block instead.
const StatusOperational = "operational"

// SourceState is the status view of one source.
type SourceState struct {
	Quality    float64           `json:"quality"`
	LastUpdate *time.Time        `json:"last_update"`
	Records    int               `json:"records"`
	Enabled    bool              `json:"enabled"`
	Detail     model.DataQuality `json:"detail"`
}

// CacheState reports the cache tiers.
type CacheState struct {
	PrimaryConfigured bool `json:"primary_configured"`
	FallbackInUse     bool `json:"fallback_in_use"`
}

// Status is the GetStatus response.
type Status struct {
	Status            string                 `json:"status"`
	TotalModels       int                    `json:"total_models"`
	DataSources       map[string]SourceState `json:"data_sources"`
	DataQuality       float64                `json:"data_quality"`
	LastConsolidation *time.Time             `json:"last_consolidation"`
	LastPassID        string                 `json:"last_pass_id,omitempty"`
	PassRunning       bool                   `json:"pass_running"`
	Cache             CacheState             `json:"cache"`
}

// ModelScores is the GetModelScores response.
type ModelScores struct {
	ModelID        string                         `json:"model_id"`
	DisplayName    string                         `json:"display_name"`
	Provider       string                         `json:"provider"`
	CategoryScores map[string]model.CategoryScore `json:"category_scores"`
	Performance    model.PerformanceMetadata      `json:"performance_metadata"`
	OverallQuality float64                        `json:"overall_quality"`
	Synthesized    bool                           `json:"synthesized"`
	PassID         string                         `json:"pass_id"`
	LastUpdated    time.Time                      `json:"last_updated"`
}

// Ranking is the GetCategoryRanking response.
type Ranking struct {
	Category    string             `json:"category"`
	Rankings    []repository.Entry `json:"rankings"`
	TotalModels int                `json:"total_models"`
}

// GetStatus summarises the published pass and the sources behind it.
func (s *Service) GetStatus(_ context.Context) Status {
	snap := s.state.Current()
	s.mu.RLock()
	running := s.worker != nil && s.worker.Busy()
	s.mu.RUnlock()

	st := Status{
		Status:      StatusOperational,
		TotalModels: s.state.Count(),
		PassRunning: running,
		DataSources: map[string]SourceState{},
		Cache: CacheState{
			PrimaryConfigured: s.cache.PrimaryConfigured(),
			FallbackInUse:     s.cache.FallbackInUse(),
		},
	}

	enabled := map[model.SourceKind]bool{}
	for _, src := range s.sources {
		enabled[src.Kind()] = src.Enabled()
	}

	var total float64
	for _, kind := range model.Sources {
		state := SourceState{Enabled: enabled[kind]}
		if snap != nil {
			if ss, ok := snap.Sources[kind]; ok {
				state.Quality = ss.Quality.Composite
				state.Records = ss.Records
				state.Detail = ss.Quality
				if !ss.Quality.LastUpdate.IsZero() {
					lu := ss.Quality.LastUpdate
					state.LastUpdate = &lu
				}
			}
		}
		total += state.Quality
		st.DataSources[string(kind)] = state
	}
	st.DataQuality = total / float64(len(model.Sources))

	if snap != nil {
		at := snap.CompletedAt
		st.LastConsolidation = &at
		st.LastPassID = snap.PassID
	}
	return st
}

// GetModelScores returns one model from the published pass. The primary
// cache is consulted first; the in-process state is authoritative.
func (s *Service) GetModelScores(ctx context.Context, id string) (ModelScores, error) {
	id = strings.TrimSpace(id)
	snap := s.state.Current()
	if id == "" || snap == nil {
		metrics.RecordErrorByComponent("service", "model_not_found")
		return ModelScores{}, eris.Wrapf(ErrModelNotFound, "model %q", id)
	}

	m, err := s.cache.Lookup(ctx, id, snap.PassID)
	if err != nil || m.PassID != snap.PassID {
		m, err = s.state.Get(ctx, id)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordErrorByComponent("service", "model_not_found")
			return ModelScores{}, eris.Wrapf(ErrModelNotFound, "model %q", id)
		}
		return ModelScores{}, err
	}

	return ModelScores{
		ModelID:        m.ModelID,
		DisplayName:    m.DisplayName,
		Provider:       m.Provider,
		CategoryScores: m.CategoryScores,
		Performance:    m.Performance,
		OverallQuality: m.OverallQuality,
		Synthesized:    m.Synthesized,
		PassID:         m.PassID,
		LastUpdated:    m.ConsolidatedAt,
	}, nil
}

// GetCategoryRanking returns the top models of one category. Limits above
// the configured maximum are clamped.
func (s *Service) GetCategoryRanking(ctx context.Context, category string, limit int) (Ranking, error) {
	c, ok := scoring.ParseCategory(category)
	if !ok {
		metrics.RecordErrorByComponent("service", "unknown_category")
		return Ranking{}, eris.Wrapf(ErrUnknownCategory, "category %q", category)
	}
	if limit <= 0 {
		return Ranking{}, eris.Wrapf(ErrInvalidLimit, "limit %d", limit)
	}
	limit = min(limit, s.maxRankingLimit)

	entries, total, err := s.state.Ranking(ctx, string(c), limit)
	if err != nil {
		return Ranking{}, err
	}
	return Ranking{Category: string(c), Rankings: entries, TotalModels: total}, nil
}
