package repository

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/rotisserie/eris"

	"github.com/okian/modelfusion/internal/domain/model"
	"github.com/okian/modelfusion/pkg/metrics"
)

// State is the single-writer cell holding the published snapshot. Readers
// never observe a partially built pass.
type State struct {
	snapshot atomic.Pointer[Snapshot]
}

// NewState returns an empty state.
func NewState() *State {
	return &State{}
}

// Publish precomputes rankings and swaps s in.
func (st *State) Publish(s *Snapshot) {
	if s.Models == nil {
		s.Models = map[string]model.EnhancedModel{}
	}
	s.rankings = buildRankings(s.Models)
	st.snapshot.Store(s)
	metrics.RecordStateSwap()
}

// Current returns the published snapshot, or nil before the first pass.
func (st *State) Current() *Snapshot {
	return st.snapshot.Load()
}

// Count returns the number of published models.
func (st *State) Count() int {
	if s := st.snapshot.Load(); s != nil {
		return len(s.Models)
	}
	return 0
}

// Get returns one published model.
func (st *State) Get(_ context.Context, id string) (model.EnhancedModel, error) {
	if s := st.snapshot.Load(); s != nil {
		if m, ok := s.Models[id]; ok {
			return m, nil
		}
	}
	return model.EnhancedModel{}, eris.Wrapf(ErrNotFound, "model %q", id)
}

// Ranking returns up to limit entries for category and the untruncated count.
// A category nobody scored yields an empty ranking.
func (st *State) Ranking(_ context.Context, category string, limit int) ([]Entry, int, error) {
	if limit <= 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, 0, eris.Wrapf(ErrInvalidLimit, "limit %d", limit)
	}
	s := st.snapshot.Load()
	if s == nil {
		return []Entry{}, 0, nil
	}
	all := s.rankings[category]
	n := min(limit, len(all))
	out := make([]Entry, n)
	copy(out, all[:n])
	return out, len(all), nil
}

func buildRankings(models map[string]model.EnhancedModel) map[string][]Entry {
	out := map[string][]Entry{}
	for id, m := range models {
		for category, cs := range m.CategoryScores {
			out[category] = append(out[category], Entry{
				ModelID:     id,
				DisplayName: m.DisplayName,
				Provider:    m.Provider,
				Score:       cs.Score,
				Confidence:  cs.Confidence,
			})
		}
	}
	for _, entries := range out {
		sortEntries(entries)
		for i := range entries {
			entries[i].Rank = i + 1
		}
	}
	return out
}

// sortEntries orders by score desc, then model id asc.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ModelID < entries[j].ModelID
	})
}
