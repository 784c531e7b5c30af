// Package matching reconciles differently named records for the same model
// across the static catalog, benchmark scrapes and analytics.
//
// Matching is heuristic: exact keys first, then case-insensitive substring
// containment. The first candidate in key order wins. When more than one
// candidate would have matched, the decision is reported as an Ambiguity
// so it can be audited, but it is not second-guessed.
package matching

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/modelfusion/internal/domain/model"
	"github.com/okian/modelfusion/pkg/logger"
)

// Ambiguity records a match that had more than one plausible candidate.
type Ambiguity struct {
	ModelID    string           `json:"model_id"`
	Source     model.SourceKind `json:"source"`
	Chosen     string           `json:"chosen"`
	Candidates []string         `json:"candidates"`
}

// Result is the outcome of one matching run.
type Result struct {
	Bundles     map[string]model.Bundle
	Ambiguities []Ambiguity
	// Synthesized counts bundles built from benchmark-only records.
	Synthesized int
	// Renamed maps benchmark keys whose synthetic id was already taken to
	// the id their bundle was published under.
	Renamed map[string]string
}

// Matcher builds bundles from the three record sets.
type Matcher struct {
	logger logger.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the matcher logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Matcher.
func New(opts ...Option) *Matcher {
	m := &Matcher{logger: logger.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match runs the two-pass algorithm. Analytics records are only ever
// attached to a bundle; they never create one.
func (m *Matcher) Match(ctx context.Context, static, benchmarks, analytics model.RecordSet) Result {
	res := Result{Bundles: make(map[string]model.Bundle, len(static)+len(benchmarks))}

	benchKeys := sortedKeys(benchmarks)
	analyticsKeys := sortedKeys(analytics)
	consumed := make(map[string]struct{}, len(benchmarks))

	// Pass 1: every static record anchors exactly one bundle.
	for _, key := range sortedKeys(static) {
		snap := StaticFromRecord(static[key])
		b := model.Bundle{ID: snap.ID, Static: &snap}

		if bk, amb := matchBenchmark(key, snap.DisplayName, benchmarks, benchKeys); bk != "" {
			rec := benchmarks[bk]
			b.Benchmark = &rec
			consumed[bk] = struct{}{}
			if amb != nil {
				amb.ModelID = snap.ID
				res.Ambiguities = append(res.Ambiguities, *amb)
			}
		}

		if ak, amb := matchAnalytics([]string{key, snap.ID}, snap.DisplayName, analyticsKeys); ak != "" {
			rec := analytics[ak]
			b.Analytics = &rec
			if amb != nil {
				amb.ModelID = snap.ID
				res.Ambiguities = append(res.Ambiguities, *amb)
			}
		}

		if _, dup := res.Bundles[b.ID]; dup {
			m.logger.Warn(ctx, "duplicate catalog id, keeping first", logger.String("model_id", b.ID))
			continue
		}
		res.Bundles[b.ID] = b
	}

	// Pass 2: benchmark-only identities get a synthesized catalog entry.
	for _, key := range benchKeys {
		if _, ok := consumed[key]; ok {
			continue
		}
		rec := benchmarks[key]
		snap := SynthesizeStatic(key, rec)
		if _, taken := res.Bundles[snap.ID]; taken {
			id := freeID(res.Bundles, key, snap.ID)
			m.logger.Warn(ctx, "synthetic id already taken, renaming",
				logger.String("benchmark_key", key), logger.String("taken", snap.ID), logger.String("model_id", id))
			if snap.APIAlias == snap.ID {
				snap.APIAlias = id
			}
			snap.ID = id
			if res.Renamed == nil {
				res.Renamed = map[string]string{}
			}
			res.Renamed[key] = id
		}

		b := model.Bundle{ID: snap.ID, Static: &snap, Synthesized: true, Benchmark: &rec}
		if ak, amb := matchAnalytics([]string{key}, firstNonEmpty(stringField(rec.Fields, "display_name"), key), analyticsKeys); ak != "" {
			arec := analytics[ak]
			b.Analytics = &arec
			if amb != nil {
				amb.ModelID = snap.ID
				res.Ambiguities = append(res.Ambiguities, *amb)
			}
		}
		res.Bundles[b.ID] = b
		res.Synthesized++
	}

	for _, a := range res.Ambiguities {
		m.logger.Info(ctx, "ambiguous match",
			logger.String("model_id", a.ModelID),
			logger.String("source", string(a.Source)),
			logger.String("chosen", a.Chosen),
			logger.Any("candidates", a.Candidates),
		)
	}
	return res
}

// matchBenchmark tries the exact key, then display-name containment.
func matchBenchmark(key, display string, benchmarks model.RecordSet, keys []string) (string, *Ambiguity) {
	if _, ok := benchmarks[key]; ok {
		return key, nil
	}
	name := strings.ToLower(strings.TrimSpace(display))
	if name == "" {
		return "", nil
	}
	var candidates []string
	for _, bk := range keys {
		lk := strings.ToLower(bk)
		if lk == "" {
			continue
		}
		if strings.Contains(name, lk) || strings.Contains(lk, name) {
			candidates = append(candidates, bk)
		}
	}
	return pick(model.SourceBenchmarks, candidates)
}

// matchAnalytics tries normalized equality against any of ids or the display
// name, then normalized containment against the display name.
func matchAnalytics(ids []string, display string, keys []string) (string, *Ambiguity) {
	if len(keys) == 0 {
		return "", nil
	}
	normDisplay := NormalizeName(display)
	exact := make(map[string]struct{}, len(ids)+1)
	for _, id := range ids {
		if n := NormalizeName(id); n != "" {
			exact[n] = struct{}{}
		}
	}
	if normDisplay != "" {
		exact[normDisplay] = struct{}{}
	}
	for _, ak := range keys {
		if _, ok := exact[ak]; ok {
			return ak, nil
		}
	}

	if normDisplay == "" {
		return "", nil
	}
	var candidates []string
	for _, ak := range keys {
		if ak == "" {
			continue
		}
		if strings.Contains(normDisplay, ak) || strings.Contains(ak, normDisplay) {
			candidates = append(candidates, ak)
		}
	}
	return pick(model.SourceAnalytics, candidates)
}

// freeID picks an unused bundle id for an orphan benchmark: the raw key
// first, then base with the lowest free numeric suffix.
func freeID(bundles map[string]model.Bundle, key, base string) string {
	if k := strings.TrimSpace(key); k != "" {
		if _, taken := bundles[k]; !taken {
			return k
		}
	}
	for n := 2; ; n++ {
		id := base + "-" + strconv.Itoa(n)
		if _, taken := bundles[id]; !taken {
			return id
		}
	}
}

func pick(source model.SourceKind, candidates []string) (string, *Ambiguity) {
	switch len(candidates) {
	case 0:
		return "", nil
	case 1:
		return candidates[0], nil
	}
	return candidates[0], &Ambiguity{Source: source, Chosen: candidates[0], Candidates: candidates}
}

func sortedKeys(set model.RecordSet) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
