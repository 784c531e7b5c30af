package scoring

import (
	"math"

	"github.com/okian/modelfusion/internal/domain/model"
)

// Summary thresholds.
const (
	bestWithin  = 5.0
	worstWithin = 10.0
	highTier    = 80.0
	mediumTier  = 60.0
)

var presenceWeights = map[model.SourceKind]float64{
	model.SourceStatic:     0.9,
	model.SourceBenchmarks: 0.8,
	model.SourceAnalytics:  0.85,
}

// OverallQuality is the mean presence weight of the sources a bundle carries.
// A synthesized catalog entry counts as static here.
func OverallQuality(b model.Bundle) float64 {
	var sum float64
	n := 0
	for _, kind := range model.Sources {
		if present(b, kind) {
			sum += presenceWeights[kind]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func present(b model.Bundle, kind model.SourceKind) bool {
	if kind == model.SourceStatic {
		return b.Static != nil
	}
	return b.Has(kind)
}

// Summarize derives best/worst categories, tier and averages.
func Summarize(scores map[string]model.CategoryScore) model.PerformanceMetadata {
	meta := model.PerformanceMetadata{BestAt: []string{}, WorstAt: []string{}, Tier: model.TierLow}
	if len(scores) == 0 {
		return meta
	}

	hi, lo := math.Inf(-1), math.Inf(1)
	var sum, conf float64
	for _, c := range Categories {
		cs, ok := scores[string(c)]
		if !ok {
			continue
		}
		hi = math.Max(hi, cs.Score)
		lo = math.Min(lo, cs.Score)
		sum += cs.Score
		conf += cs.Confidence
	}

	for _, c := range Categories {
		cs, ok := scores[string(c)]
		if !ok {
			continue
		}
		if cs.Score >= hi-bestWithin {
			meta.BestAt = append(meta.BestAt, string(c))
		}
		if cs.Score <= lo+worstWithin {
			meta.WorstAt = append(meta.WorstAt, string(c))
		}
	}

	n := float64(len(scores))
	mean := sum / n
	switch {
	case mean >= highTier:
		meta.Tier = model.TierHigh
	case mean >= mediumTier:
		meta.Tier = model.TierMedium
	}
	meta.OverallScore = round(mean, 1)
	meta.CategoryBreadth = len(scores)
	meta.AvgConfidence = round(conf/n, 2)
	return meta
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
