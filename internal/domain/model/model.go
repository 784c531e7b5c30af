// Package model contains domain models passed between layers.
package model

import "time"

// SourceKind tags which upstream a record came from.
type SourceKind string

// Known sources.
const (
	SourceStatic     SourceKind = "static"
	SourceBenchmarks SourceKind = "benchmarks"
	SourceAnalytics  SourceKind = "analytics"
)

// Sources lists every source kind in reporting order.
var Sources = []SourceKind{SourceStatic, SourceBenchmarks, SourceAnalytics}

// Fields is the loosely typed field bag a source produces at ingestion.
type Fields map[string]any

// Observation is one benchmark value found in a record.
type Observation struct {
	Name  string
	Value float64
	// ObservedAt is zero when the upstream gave no date.
	ObservedAt time.Time
	Source     SourceKind
}

// Record is a raw per-source model entry.
type Record struct {
	Source    SourceKind
	Key       string
	Fields    Fields
	Scores    map[string]Observation
	FetchedAt time.Time
}

// RecordSet maps a source-local identity to its record.
type RecordSet map[string]Record

// DataQuality describes how much one fetch can be trusted.
type DataQuality struct {
	Completeness float64   `json:"completeness"`
	Freshness    float64   `json:"freshness"`
	Consistency  float64   `json:"consistency"`
	Composite    float64   `json:"composite"`
	LastUpdate   time.Time `json:"last_update"`
}

// StaticSnapshot is the typed catalog view used by formulas and consumers.
type StaticSnapshot struct {
	ID            string  `json:"id"`
	Provider      string  `json:"provider"`
	DisplayName   string  `json:"display_name"`
	ContextWindow int     `json:"context_window"`
	CostInPer1K   float64 `json:"cost_in_per_1k"`
	CostOutPer1K  float64 `json:"cost_out_per_1k"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	OpenSource    bool    `json:"open_source"`
	APIAlias      string  `json:"api_alias,omitempty"`
	Extra         Fields  `json:"extra,omitempty"`
}

// Bundle is the matcher's output: up to three records for one identity.
type Bundle struct {
	ID string
	// Static is synthesized from the benchmark record when Synthesized is set.
	Static      *StaticSnapshot
	Synthesized bool
	Benchmark   *Record
	Analytics   *Record
}

// Has reports whether the bundle carries a member for kind.
func (b Bundle) Has(kind SourceKind) bool {
	switch kind {
	case SourceStatic:
		return b.Static != nil && !b.Synthesized
	case SourceBenchmarks:
		return b.Benchmark != nil
	case SourceAnalytics:
		return b.Analytics != nil
	}
	return false
}

// Evidence is one benchmark's contribution to a category score.
type Evidence struct {
	Benchmark       string     `json:"benchmark"`
	RawScore        float64    `json:"raw_score"`
	NormalizedScore float64    `json:"normalized_score"`
	Weight          float64    `json:"weight"`
	Source          SourceKind `json:"source"`
	ObservedDate    *time.Time `json:"observed_date,omitempty"`
	RecencyFactor   float64    `json:"recency_factor"`
	SourceFactor    float64    `json:"source_factor"`
	AdjustedScore   float64    `json:"adjusted_score"`
}

// CategoryScore is a model's score for one task category.
type CategoryScore struct {
	Score        float64    `json:"score"`
	Confidence   float64    `json:"confidence"`
	Formula      string     `json:"formula"`
	Contributing []Evidence `json:"contributing"`
	ComputedAt   time.Time  `json:"computed_at"`
}

// Performance tiers.
const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"
)

// PerformanceMetadata summarises category scores.
type PerformanceMetadata struct {
	BestAt          []string `json:"best_at"`
	WorstAt         []string `json:"worst_at"`
	Tier            string   `json:"performance_tier"`
	OverallScore    float64  `json:"overall_score"`
	CategoryBreadth int      `json:"category_breadth"`
	AvgConfidence   float64  `json:"avg_confidence"`
}

// EnhancedModel is the consolidated record published by a pass.
type EnhancedModel struct {
	ModelID        string                     `json:"model_id"`
	Provider       string                     `json:"provider"`
	DisplayName    string                     `json:"display_name"`
	StaticSnapshot StaticSnapshot             `json:"static_snapshot"`
	CategoryScores map[string]CategoryScore   `json:"category_scores"`
	Provenance     map[SourceKind]DataQuality `json:"provenance"`
	Performance    PerformanceMetadata        `json:"performance_metadata"`
	OverallQuality float64                    `json:"overall_quality"`
	Synthesized    bool                       `json:"synthesized"`
	PassID         string                     `json:"pass_id"`
	ConsolidatedAt time.Time                  `json:"consolidated_at"`
}
