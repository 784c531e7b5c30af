package scoring

import (
	"math"

	"github.com/okian/modelfusion/internal/domain/model"
)

// Formula tuning.
const (
	maxScore = 100.0

	contextBaseline     = 4096.0
	contextBoostScale   = 100_000.0
	maxContextBoost     = 0.1
	bonusContextFloor   = 4000.0
	bonusContextPerPt   = 1000.0
	maxContextBonus     = 10.0
	maxCostBonus        = 5.0
	costBonusSlope      = 500.0
	latencyFloorMS      = 1000.0
	latencyPenaltyScale = 10_000.0
	cheapInputCost      = 0.005
	maxCostDiscount     = 0.2
	fastLatencyMS       = 2000.0
	maxSpeedBonus       = 0.1

	defaultContextWindow = 4096
	defaultCostInPer1K   = 0.01
	defaultLatencyMS     = 2000.0
)

type formulaInputs struct {
	contextWindow float64
	costInPer1K   float64
	latencyMS     float64
}

func inputsFrom(s *model.StaticSnapshot) formulaInputs {
	in := formulaInputs{contextWindow: defaultContextWindow, costInPer1K: defaultCostInPer1K, latencyMS: defaultLatencyMS}
	if s == nil {
		return in
	}
	if s.ContextWindow > 0 {
		in.contextWindow = float64(s.ContextWindow)
	}
	if s.CostInPer1K > 0 {
		in.costInPer1K = s.CostInPer1K
	}
	if s.AvgLatencyMS > 0 {
		in.latencyMS = s.AvgLatencyMS
	}
	return in
}

// apply runs the named formula over base. Unknown names fall back to identity.
func apply(f Formula, base float64, in formulaInputs) float64 {
	switch f {
	case WeightedAverageWithContext:
		boost := clamp((in.contextWindow-contextBaseline)/contextBoostScale, 0, maxContextBoost)
		return math.Min(maxScore, base*(1+boost))

	case InterpolatedWithBonuses:
		ctxBonus := clamp((in.contextWindow-bonusContextFloor)/bonusContextPerPt, 0, maxContextBonus)
		costBonus := clamp(maxCostBonus-in.costInPer1K*costBonusSlope, 0, maxCostBonus)
		return math.Min(maxScore, base+ctxBonus+costBonus)

	case AccuracyWithLatencyPenalty:
		penalty := math.Max(0, (in.latencyMS-latencyFloorMS)/latencyPenaltyScale*base)
		return math.Max(0, base-penalty)

	case ConversationalWithEfficiency:
		costFactor := 1 + math.Max(0, (cheapInputCost-in.costInPer1K)/cheapInputCost*maxCostDiscount)
		speedFactor := 1 + math.Max(0, (fastLatencyMS-in.latencyMS)/fastLatencyMS*maxSpeedBonus)
		return math.Min(maxScore, base*costFactor*speedFactor)

	default:
		// weighted_average, balanced_average and anything unrecognised.
		return base
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
