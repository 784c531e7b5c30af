package scoring

import "strings"

// Category is a task class models are scored against.
type Category string

// The seven supported categories.
const (
	Coding          Category = "coding"
	Math            Category = "math"
	Reasoning       Category = "reasoning"
	CreativeWriting Category = "creative_writing"
	General         Category = "general"
	Question        Category = "question"
	Chat            Category = "chat"
)

// Categories lists every category in reporting order.
var Categories = []Category{Coding, Math, Reasoning, CreativeWriting, General, Question, Chat}

// ParseCategory accepts the canonical name, case-insensitively, with "-" as
// an alias for "_" (so "creative-writing" works).
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Formula names a post-processing rule applied to a category's base score.
type Formula string

// Known formulas.
const (
	WeightedAverage              Formula = "weighted_average"
	WeightedAverageWithContext   Formula = "weighted_average_with_context"
	InterpolatedWithBonuses      Formula = "interpolated_with_bonuses"
	BalancedAverage              Formula = "balanced_average"
	AccuracyWithLatencyPenalty   Formula = "accuracy_with_latency_penalty"
	ConversationalWithEfficiency Formula = "conversational_with_efficiency"
)

// KnownFormula reports whether name is a formula the scorer implements.
func KnownFormula(name string) bool {
	switch Formula(name) {
	case WeightedAverage, WeightedAverageWithContext, InterpolatedWithBonuses,
		BalancedAverage, AccuracyWithLatencyPenalty, ConversationalWithEfficiency:
		return true
	}
	return false
}

// Definition is the benchmark weighting and formula of one category.
type Definition struct {
	Weights map[string]float64
	Formula Formula
}

// TotalWeight is the sum of every configured weight.
func (d Definition) TotalWeight() float64 {
	var sum float64
	for _, name := range sortedNames(d.Weights) {
		sum += d.Weights[name]
	}
	return sum
}

// DefaultDefinitions returns a fresh copy of the built-in category table.
func DefaultDefinitions() map[Category]Definition {
	return map[Category]Definition{
		Coding: {
			Weights: map[string]float64{"humaneval": 1.0, "livecodebench": 0.8, "artificial_analysis_coding_index": 0.9},
			Formula: WeightedAverage,
		},
		Math: {
			Weights: map[string]float64{"gsm8k": 1.0, "artificial_analysis_math_index": 0.9, "math": 0.7},
			Formula: WeightedAverage,
		},
		Reasoning: {
			Weights: map[string]float64{
				"mmlu": 1.0, "mmlu_pro": 1.1, "arc_challenge": 0.8,
				"artificial_analysis_intelligence_index": 0.9, "gpqa": 0.7,
			},
			Formula: WeightedAverageWithContext,
		},
		CreativeWriting: {
			Weights: map[string]float64{"hellaswag": 0.6, "truthfulqa": 0.4},
			Formula: InterpolatedWithBonuses,
		},
		General: {
			Weights: map[string]float64{"mmlu": 0.8, "hellaswag": 0.6},
			Formula: BalancedAverage,
		},
		Question: {
			Weights: map[string]float64{"mmlu": 0.8, "truthfulqa": 0.9, "artificial_analysis_intelligence_index": 0.7},
			Formula: AccuracyWithLatencyPenalty,
		},
		Chat: {
			Weights: map[string]float64{"hellaswag": 0.7, "truthfulqa": 0.6},
			Formula: ConversationalWithEfficiency,
		},
	}
}
