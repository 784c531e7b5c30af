// Package quality scores how trustworthy one source fetch is.
package quality

import (
	"math"
	"strings"
	"time"

	"github.com/okian/modelfusion/internal/domain/model"
)

// Composite weights and windows.
const (
	completenessWeight = 0.5
	freshnessWeight    = 0.3
	consistencyWeight  = 0.2

	// FreshnessWindow is the age at which a fetch stops counting as fresh.
	FreshnessWindow = 30 * 24 * time.Hour

	neutralConsistency = 0.5
	consistencySpread  = 50.0
)

// Assess computes the DataQuality of a fetch. An empty record set or a
// zero lastUpdate (never fetched) yields the zero quality.
func Assess(records model.RecordSet, required []string, lastUpdate, now time.Time) model.DataQuality {
	if len(records) == 0 || lastUpdate.IsZero() {
		return model.DataQuality{LastUpdate: lastUpdate}
	}

	q := model.DataQuality{
		Completeness: Completeness(records, required),
		Freshness:    Freshness(lastUpdate, now),
		Consistency:  Consistency(records),
		LastUpdate:   lastUpdate,
	}
	q.Composite = Composite(q.Completeness, q.Freshness, q.Consistency)
	return q
}

// Composite blends the three components.
func Composite(completeness, freshness, consistency float64) float64 {
	return clamp01(completenessWeight*completeness + freshnessWeight*freshness + consistencyWeight*consistency)
}

// Completeness is the fraction of required fields present across all records.
// Required names may address nested objects with dots ("pricing.input").
func Completeness(records model.RecordSet, required []string) float64 {
	total := len(records) * len(required)
	if total == 0 {
		return 0
	}
	present := 0
	for _, rec := range records {
		for _, field := range required {
			if HasField(rec.Fields, field) {
				present++
			}
		}
	}
	return float64(present) / float64(total)
}

// Freshness decays linearly from 1 at lastUpdate to 0 after FreshnessWindow.
func Freshness(lastUpdate, now time.Time) float64 {
	if lastUpdate.IsZero() {
		return 0
	}
	age := now.Sub(lastUpdate)
	if age <= 0 {
		return 1
	}
	if age >= FreshnessWindow {
		return 0
	}
	return 1 - float64(age)/float64(FreshnessWindow)
}

// Consistency looks at every top-level numeric field in [0,100] across the
// fetch; a tight spread scores close to 1. No such values is neutral.
func Consistency(records model.RecordSet) float64 {
	var values []float64
	for _, rec := range records {
		for _, v := range rec.Fields {
			f, ok := number(v)
			if ok && f >= 0 && f <= 100 {
				values = append(values, f)
			}
		}
	}
	if len(values) == 0 {
		return neutralConsistency
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(len(values)))
	return clamp01(1 - std/consistencySpread)
}

// HasField reports whether a dotted path resolves to a non-empty value.
func HasField(fields model.Fields, path string) bool {
	var cur any = map[string]any(fields)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return false
		}
		cur, ok = m[part]
		if !ok {
			return false
		}
	}
	switch v := cur.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case map[string]any:
		return len(v) > 0
	case model.Fields:
		return len(v) > 0
	case []any:
		return len(v) > 0
	}
	return true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case model.Fields:
		return m, true
	}
	return nil, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
