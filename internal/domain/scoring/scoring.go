// Package scoring turns a matched bundle's benchmark observations into
// comparable 0-100 category scores with confidence and an evidence trail.
package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/okian/modelfusion/internal/domain/model"
)

// Recency and source weighting.
const (
	day = 24 * time.Hour

	unknownDateFactor   = 0.8
	unknownSourceFactor = 0.8

	// Values at or below this are treated as fractions and scaled to percent.
	fractionalCeiling = 1.0
)

var recencySteps = []struct {
	maxAge time.Duration
	factor float64
}{
	{30 * day, 1.0},
	{90 * day, 0.9},
	{180 * day, 0.8},
}

const staleFactor = 0.7

var sourceFactors = map[model.SourceKind]float64{
	model.SourceStatic:     1.0,
	model.SourceBenchmarks: 0.9,
	model.SourceAnalytics:  0.95,
}

// Scorer computes category scores. It is safe for concurrent use once built.
type Scorer struct {
	defs map[Category]Definition
	now  func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock injects the time source used for recency and computed_at.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefinition replaces the weights and/or formula of one category. Nil
// weights or an empty formula keep the built-in value.
func WithDefinition(c Category, weights map[string]float64, formula string) Option {
	return func(s *Scorer) {
		def := s.defs[c]
		if weights != nil {
			cp := make(map[string]float64, len(weights))
			for k, v := range weights {
				cp[k] = v
			}
			def.Weights = cp
		}
		if formula != "" {
			def.Formula = Formula(formula)
		}
		s.defs[c] = def
	}
}

// New builds a Scorer over the default category table.
func New(opts ...Option) *Scorer {
	s := &Scorer{defs: DefaultDefinitions(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Definition returns the active definition for c.
func (s *Scorer) Definition(c Category) (Definition, bool) {
	d, ok := s.defs[c]
	return d, ok
}

// Score computes every category that has at least one piece of evidence.
// Categories without evidence are omitted rather than scored zero.
func (s *Scorer) Score(b model.Bundle) (map[string]model.CategoryScore, error) {
	if b.Static == nil && b.Benchmark == nil && b.Analytics == nil {
		return nil, eris.Wrapf(ErrEmptyBundle, "bundle %q", b.ID)
	}

	now := s.now()
	in := inputsFrom(b.Static)
	out := make(map[string]model.CategoryScore, len(Categories))

	for _, c := range Categories {
		def, ok := s.defs[c]
		if !ok {
			continue
		}
		cs, ok := s.scoreCategory(b, def, in, now)
		if ok {
			out[string(c)] = cs
		}
	}
	return out, nil
}

func (s *Scorer) scoreCategory(b model.Bundle, def Definition, in formulaInputs, now time.Time) (model.CategoryScore, bool) {
	var weighted, used float64
	var evidence []model.Evidence

	for _, name := range sortedNames(def.Weights) {
		weight := def.Weights[name]
		obs, ok := lookup(b, name)
		if !ok {
			continue
		}

		normalized := normalize(obs.Value)
		recency := recencyFactor(obs.ObservedAt, now)
		srcFactor, known := sourceFactors[obs.Source]
		if !known {
			srcFactor = unknownSourceFactor
		}
		adjusted := normalized * recency * srcFactor

		weighted += adjusted * weight
		used += weight

		ev := model.Evidence{
			Benchmark:       name,
			RawScore:        obs.Value,
			NormalizedScore: normalized,
			Weight:          weight,
			Source:          obs.Source,
			RecencyFactor:   recency,
			SourceFactor:    srcFactor,
			AdjustedScore:   adjusted,
		}
		if !obs.ObservedAt.IsZero() {
			d := obs.ObservedAt
			ev.ObservedDate = &d
		}
		evidence = append(evidence, ev)
	}

	if used <= 0 {
		return model.CategoryScore{}, false
	}

	base := weighted / used
	score := clamp(apply(def.Formula, base, in), 0, maxScore)

	confidence := 0.0
	if total := def.TotalWeight(); total > 0 {
		confidence = math.Min(used/total, 1)
	}

	return model.CategoryScore{
		Score:        score,
		Confidence:   confidence,
		Formula:      string(def.Formula),
		Contributing: evidence,
		ComputedAt:   now,
	}, true
}

// lookup prefers the benchmark scrape and falls back to analytics evaluations.
func lookup(b model.Bundle, name string) (model.Observation, bool) {
	if b.Benchmark != nil {
		if obs, ok := b.Benchmark.Scores[name]; ok {
			return obs, true
		}
	}
	if b.Analytics != nil {
		if obs, ok := b.Analytics.Scores[name]; ok {
			return obs, true
		}
	}
	return model.Observation{}, false
}

func normalize(raw float64) float64 {
	if raw >= 0 && raw <= fractionalCeiling {
		return raw * 100
	}
	return raw
}

func recencyFactor(observed, now time.Time) float64 {
	if observed.IsZero() {
		return unknownDateFactor
	}
	age := now.Sub(observed)
	for _, step := range recencySteps {
		if age <= step.maxAge {
			return step.factor
		}
	}
	return staleFactor
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
