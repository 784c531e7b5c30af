package scoring_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/modelfusion/internal/domain/model"
	"github.com/okian/modelfusion/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func benchRecord(scores map[string]float64, observed time.Time) *model.Record {
	rec := &model.Record{Source: model.SourceBenchmarks, Scores: map[string]model.Observation{}}
	for name, v := range scores {
		rec.Scores[name] = model.Observation{Name: name, Value: v, ObservedAt: observed, Source: model.SourceBenchmarks}
	}
	return rec
}

func TestScorer_Score(t *testing.T) {
	Convey("Given a scorer with a fixed clock", t, func() {
		scorer := scoring.New(scoring.WithClock(clock))
		static := &model.StaticSnapshot{ID: "gpt-4", Provider: "openai", ContextWindow: 8192, CostInPer1K: 0.03, AvgLatencyMS: 1500}

		Convey("When a bundle carries a single recent mmlu observation", func() {
			b := model.Bundle{ID: "gpt-4", Static: static, Benchmark: benchRecord(map[string]float64{"mmlu": 86.4}, now.Add(-10*24*time.Hour))}
			scores, err := scorer.Score(b)
			So(err, ShouldBeNil)

			Convey("Then reasoning applies source factor and context boost", func() {
				rs, ok := scores["reasoning"]
				So(ok, ShouldBeTrue)
				adjusted := 86.4 * 0.9
				boost := (8192.0 - 4096.0) / 100000.0
				So(rs.Score, ShouldAlmostEqual, adjusted*(1+boost), 1e-9)
				So(rs.Confidence, ShouldAlmostEqual, 1.0/4.5, 1e-9)
				So(rs.Formula, ShouldEqual, "weighted_average_with_context")
				So(rs.ComputedAt, ShouldEqual, now)
				So(len(rs.Contributing), ShouldEqual, 1)
				So(rs.Contributing[0].RecencyFactor, ShouldEqual, 1.0)
				So(rs.Contributing[0].SourceFactor, ShouldEqual, 0.9)
				So(*rs.Contributing[0].ObservedDate, ShouldEqual, now.Add(-10*24*time.Hour))
			})

			Convey("Then categories without evidence are omitted", func() {
				_, hasCoding := scores["coding"]
				_, hasMath := scores["math"]
				So(hasCoding, ShouldBeFalse)
				So(hasMath, ShouldBeFalse)
				So(scores, ShouldContainKey, "general")
				So(scores, ShouldContainKey, "question")
			})
		})

		Convey("When raw values are fractions", func() {
			b := model.Bundle{ID: "m", Benchmark: benchRecord(map[string]float64{"humaneval": 0.5}, now)}
			scores, err := scorer.Score(b)
			So(err, ShouldBeNil)
			So(scores["coding"].Contributing[0].NormalizedScore, ShouldEqual, 50)
			So(scores["coding"].Score, ShouldAlmostEqual, 45, 1e-9)
		})

		Convey("When the observation date is unknown", func() {
			b := model.Bundle{ID: "m", Benchmark: benchRecord(map[string]float64{"gsm8k": 80}, time.Time{})}
			scores, _ := scorer.Score(b)
			So(scores["math"].Contributing[0].RecencyFactor, ShouldEqual, 0.8)
			So(scores["math"].Contributing[0].ObservedDate, ShouldBeNil)
		})

		Convey("When benchmark and analytics both carry a benchmark", func() {
			analytics := &model.Record{Source: model.SourceAnalytics, Scores: map[string]model.Observation{
				"gsm8k": {Name: "gsm8k", Value: 10, ObservedAt: now, Source: model.SourceAnalytics},
				"math":  {Name: "math", Value: 70, ObservedAt: now, Source: model.SourceAnalytics},
			}}
			b := model.Bundle{ID: "m", Benchmark: benchRecord(map[string]float64{"gsm8k": 90}, now), Analytics: analytics}
			scores, _ := scorer.Score(b)

			Convey("Then the benchmark scrape wins and analytics fills gaps", func() {
				ev := scores["math"].Contributing
				So(len(ev), ShouldEqual, 2)
				So(ev[0].Benchmark, ShouldEqual, "gsm8k")
				So(ev[0].Source, ShouldEqual, model.SourceBenchmarks)
				So(ev[1].Benchmark, ShouldEqual, "math")
				So(ev[1].SourceFactor, ShouldEqual, 0.95)
			})
		})

		Convey("When the bundle is empty", func() {
			_, err := scorer.Score(model.Bundle{ID: "ghost"})
			So(errors.Is(err, scoring.ErrEmptyBundle), ShouldBeTrue)
		})

		Convey("When a static-only bundle is scored", func() {
			scores, err := scorer.Score(model.Bundle{ID: "gpt-4", Static: static})
			So(err, ShouldBeNil)
			So(scores, ShouldBeEmpty)
		})
	})
}

func TestScorer_Monotonic(t *testing.T) {
	Convey("Given two bundles that differ in one benchmark", t, func() {
		scorer := scoring.New(scoring.WithClock(clock))
		low := model.Bundle{ID: "a", Benchmark: benchRecord(map[string]float64{"humaneval": 60, "livecodebench": 50}, now)}
		high := model.Bundle{ID: "b", Benchmark: benchRecord(map[string]float64{"humaneval": 70, "livecodebench": 50}, now)}

		ls, _ := scorer.Score(low)
		hs, _ := scorer.Score(high)

		So(hs["coding"].Score, ShouldBeGreaterThan, ls["coding"].Score)
		So(hs["coding"].Confidence, ShouldEqual, ls["coding"].Confidence)
	})
}

func TestScorer_WeightSensitivity(t *testing.T) {
	Convey("Given coding evidence from two benchmarks", t, func() {
		bench := benchRecord(map[string]float64{"humaneval": 90, "livecodebench": 50}, now)
		target := 90 * 0.9
		scoreWith := func(weight float64) model.CategoryScore {
			s := scoring.New(
				scoring.WithClock(clock),
				scoring.WithDefinition(scoring.Coding, map[string]float64{"humaneval": weight, "livecodebench": 1}, "weighted_average"),
			)
			scores, err := s.Score(model.Bundle{ID: "m", Benchmark: bench})
			So(err, ShouldBeNil)
			return scores["coding"]
		}

		light := scoreWith(1)
		heavy := scoreWith(3)

		Convey("Then a larger weight pulls the score toward that benchmark", func() {
			So(light.Score, ShouldAlmostEqual, (81.0+45.0)/2, 1e-9)
			So(heavy.Score, ShouldAlmostEqual, (3*81.0+45.0)/4, 1e-9)
			So(target-heavy.Score, ShouldBeLessThan, target-light.Score)
			So(heavy.Confidence, ShouldEqual, 1)
		})
	})

	Convey("Given a category fed by a single benchmark", t, func() {
		bench := benchRecord(map[string]float64{"humaneval": 90}, now)
		scoreWith := func(weight float64) model.CategoryScore {
			s := scoring.New(
				scoring.WithClock(clock),
				scoring.WithDefinition(scoring.Coding, map[string]float64{"humaneval": weight}, "weighted_average"),
			)
			scores, _ := s.Score(model.Bundle{ID: "m", Benchmark: bench})
			return scores["coding"]
		}

		Convey("Then the score is already saturated and the weight no longer moves it", func() {
			light, heavy := scoreWith(1), scoreWith(5)
			So(light.Score, ShouldAlmostEqual, 90*0.9, 1e-9)
			So(heavy.Score, ShouldAlmostEqual, light.Score, 1e-9)
			So(heavy.Confidence, ShouldEqual, light.Confidence)
		})
	})
}

func TestScorer_Recency(t *testing.T) {
	Convey("Given observations of various ages", t, func() {
		scorer := scoring.New(scoring.WithClock(clock))
		cases := []struct {
			age    time.Duration
			factor float64
		}{
			{0, 1.0},
			{60 * 24 * time.Hour, 0.9},
			{120 * 24 * time.Hour, 0.8},
			{400 * 24 * time.Hour, 0.7},
		}
		for _, tc := range cases {
			b := model.Bundle{ID: "m", Benchmark: benchRecord(map[string]float64{"gsm8k": 80}, now.Add(-tc.age))}
			scores, _ := scorer.Score(b)
			So(scores["math"].Contributing[0].RecencyFactor, ShouldEqual, tc.factor)
		}
	})
}

func TestScorer_Formulas(t *testing.T) {
	Convey("Given a bundle with hellaswag and truthfulqa", t, func() {
		scorer := scoring.New(scoring.WithClock(clock))
		bench := benchRecord(map[string]float64{"hellaswag": 80, "truthfulqa": 80}, now)
		base := 80 * 0.9

		Convey("When the catalog entry is large and cheap", func() {
			static := &model.StaticSnapshot{ContextWindow: 10000, CostInPer1K: 0.001, AvgLatencyMS: 1000}
			scores, _ := scorer.Score(model.Bundle{ID: "m", Static: static, Benchmark: bench})

			Convey("Then creative writing adds capped bonuses", func() {
				// ctx bonus 6, cost bonus 4.5
				So(scores["creative_writing"].Score, ShouldAlmostEqual, base+6+4.5, 1e-9)
			})

			Convey("Then chat rewards cost and speed", func() {
				cost := 1 + (0.005-0.001)/0.005*0.2
				speed := 1 + (2000.0-1000.0)/2000.0*0.1
				So(scores["chat"].Score, ShouldAlmostEqual, base*cost*speed, 1e-9)
			})

			Convey("Then general is a plain weighted average", func() {
				So(scores["general"].Score, ShouldAlmostEqual, base, 1e-9)
			})
		})

		Convey("When the catalog entry is missing", func() {
			scores, _ := scorer.Score(model.Bundle{ID: "m", Benchmark: bench})

			Convey("Then defaults drive the formulas", func() {
				// defaults: ctx 4096, cost 0.01, latency 2000
				So(scores["creative_writing"].Score, ShouldAlmostEqual, base+0.096, 1e-9)
				So(scores["chat"].Score, ShouldAlmostEqual, base, 1e-9)
				q := 80 * 0.9
				So(scores["question"].Score, ShouldAlmostEqual, q-q*0.1, 1e-9)
			})
		})

		Convey("When scores would exceed the ceiling", func() {
			top := benchRecord(map[string]float64{"hellaswag": 100, "truthfulqa": 100}, now)
			static := &model.StaticSnapshot{ContextWindow: 200000, CostInPer1K: 0.0001}
			scores, _ := scorer.Score(model.Bundle{ID: "m", Static: static, Benchmark: top})
			So(scores["creative_writing"].Score, ShouldEqual, 100)
		})
	})
}

func TestScorer_WithDefinition(t *testing.T) {
	Convey("Given an override for coding", t, func() {
		scorer := scoring.New(
			scoring.WithClock(clock),
			scoring.WithDefinition(scoring.Coding, map[string]float64{"humaneval": 2}, "weighted_average"),
		)
		def, ok := scorer.Definition(scoring.Coding)
		So(ok, ShouldBeTrue)
		So(def.TotalWeight(), ShouldEqual, 2)

		scores, _ := scorer.Score(model.Bundle{ID: "m", Benchmark: benchRecord(map[string]float64{"humaneval": 50}, now)})
		So(scores["coding"].Confidence, ShouldEqual, 1)
	})
}

func TestSummarize(t *testing.T) {
	Convey("Given category scores", t, func() {
		scores := map[string]model.CategoryScore{
			"coding":    {Score: 90, Confidence: 0.5},
			"math":      {Score: 86, Confidence: 1},
			"reasoning": {Score: 70, Confidence: 0.25},
		}
		meta := scoring.Summarize(scores)

		So(meta.BestAt, ShouldResemble, []string{"coding", "math"})
		So(meta.WorstAt, ShouldResemble, []string{"reasoning"})
		So(meta.Tier, ShouldEqual, model.TierHigh)
		So(meta.OverallScore, ShouldEqual, 82.0)
		So(meta.CategoryBreadth, ShouldEqual, 3)
		So(meta.AvgConfidence, ShouldEqual, 0.58)

		Convey("When there are none", func() {
			empty := scoring.Summarize(nil)
			So(empty.Tier, ShouldEqual, model.TierLow)
			So(empty.BestAt, ShouldBeEmpty)
		})
	})
}

func TestOverallQuality(t *testing.T) {
	Convey("Given bundles with different members", t, func() {
		So(scoring.OverallQuality(model.Bundle{}), ShouldEqual, 0)
		So(scoring.OverallQuality(model.Bundle{Static: &model.StaticSnapshot{}}), ShouldEqual, 0.9)
		So(scoring.OverallQuality(model.Bundle{
			Static:      &model.StaticSnapshot{},
			Synthesized: true,
			Benchmark:   &model.Record{},
		}), ShouldAlmostEqual, (0.9+0.8)/2, 1e-9)
		So(scoring.OverallQuality(model.Bundle{Benchmark: &model.Record{}}), ShouldEqual, 0.8)
		So(scoring.OverallQuality(model.Bundle{
			Static:    &model.StaticSnapshot{},
			Benchmark: &model.Record{},
			Analytics: &model.Record{},
		}), ShouldAlmostEqual, (0.9+0.8+0.85)/3, 1e-9)
	})
}

func TestParseCategory(t *testing.T) {
	Convey("Given category names", t, func() {
		c, ok := scoring.ParseCategory("Creative-Writing")
		So(ok, ShouldBeTrue)
		So(c, ShouldEqual, scoring.CreativeWriting)

		_, ok = scoring.ParseCategory("poetry")
		So(ok, ShouldBeFalse)
		So(scoring.KnownFormula("balanced_average"), ShouldBeTrue)
		So(scoring.KnownFormula("magic"), ShouldBeFalse)
	})
}
