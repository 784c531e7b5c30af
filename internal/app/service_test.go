package service_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/okian/modelfusion/internal/adapters/repository"
	service "github.com/okian/modelfusion/internal/app"
	"github.com/okian/modelfusion/internal/domain/model"
	"github.com/okian/modelfusion/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// stubSource serves canned records. When gate is set, Fetch signals entered
// and blocks until gate is closed.
type stubSource struct {
	kind    model.SourceKind
	records model.RecordSet
	err     error
	enabled bool

	entered chan struct{}
	gate    chan struct{}

	mu    sync.Mutex
	calls int
	q     model.DataQuality
}

func newStub(kind model.SourceKind, records model.RecordSet) *stubSource {
	return &stubSource{kind: kind, records: records, enabled: true}
}

func (s *stubSource) Kind() model.SourceKind { return s.kind }
func (s *stubSource) Enabled() bool          { return s.enabled }

func (s *stubSource) Quality() model.DataQuality {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q
}

func (s *stubSource) Fetch(ctx context.Context) (model.RecordSet, time.Time, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.gate != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, time.Time{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		s.q = model.DataQuality{}
		return nil, time.Time{}, s.err
	}
	s.q = model.DataQuality{Completeness: 1, Freshness: 1, Consistency: 0.5, Composite: 0.9, LastUpdate: fixedNow}
	return s.records, fixedNow, nil
}

func (s *stubSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func staticRecords() model.RecordSet {
	return model.RecordSet{
		"gpt-4": {Source: model.SourceStatic, Key: "gpt-4", Fields: model.Fields{
			"id": "gpt-4", "provider": "openai", "display_name": "GPT-4",
			"context_window": 8192.0, "cost_in_per_1k": 0.03, "avg_latency_ms": 1500.0,
		}},
		"claude-3-opus": {Source: model.SourceStatic, Key: "claude-3-opus", Fields: model.Fields{
			"id": "claude-3-opus", "provider": "anthropic", "display_name": "Claude 3 Opus",
			"context_window": 200000.0,
		}},
	}
}

func benchRecord(key string, scores map[string]float64) model.Record {
	rec := model.Record{
		Source:    model.SourceBenchmarks,
		Key:       key,
		Fields:    model.Fields{"benchmarks": map[string]any{}},
		Scores:    map[string]model.Observation{},
		FetchedAt: fixedNow,
	}
	for name, v := range scores {
		rec.Scores[name] = model.Observation{Name: name, Value: v, ObservedAt: fixedNow, Source: model.SourceBenchmarks}
	}
	return rec
}

func benchmarkRecords() model.RecordSet {
	return model.RecordSet{
		"gpt-4":         benchRecord("gpt-4", map[string]float64{"mmlu": 86.4, "humaneval": 67}),
		"claude-3-opus": benchRecord("claude-3-opus", map[string]float64{"mmlu": 88.2, "humaneval": 84.9}),
		"llama-3-70b":   benchRecord("llama-3-70b", map[string]float64{"mmlu": 82}),
	}
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "pass-" + strconv.Itoa(n)
	}
}

func newService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithClock(clock),
		service.WithScorer(scoring.New(scoring.WithClock(clock))),
		service.WithPassIDs(sequentialIDs()),
	}
	return service.New(append(base, opts...)...)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that is not started", t, func() {
		svc := newService()
		ctx := context.Background()

		Convey("Then triggers are rejected", func() {
			res := svc.TriggerConsolidation(ctx)
			So(res.Accepted, ShouldBeFalse)
			So(res.Message, ShouldEqual, "service is not running")
		})

		Convey("Then stopping is a no-op", func() {
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("When it is started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)

			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(svc.Stop(stopCtx), ShouldBeNil)

			Convey("Then it reports stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.TriggerConsolidation(ctx).Accepted, ShouldBeFalse)
			})
		})
	})

	Convey("Given an invalid schedule", t, func() {
		svc := newService(service.WithSchedule("every tuesday-ish"))
		err := svc.Start(context.Background())
		So(errors.Is(err, service.ErrInvalidSchedule), ShouldBeTrue)
	})
}

func TestService_ConsolidateOnStart(t *testing.T) {
	Convey("Given a service configured to consolidate on start", t, func() {
		static := newStub(model.SourceStatic, staticRecords())
		bench := newStub(model.SourceBenchmarks, benchmarkRecords())
		svc := newService(service.WithSources(static, bench), service.WithConsolidateOnStart(true))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("Then the first pass is published without a trigger", func() {
			So(waitFor(func() bool { return svc.GetStatus(ctx).TotalModels == 3 }), ShouldBeTrue)
			So(svc.GetStats()["lastTrigger"], ShouldEqual, "startup")
		})
	})
}

func TestService_TriggerCoalescing(t *testing.T) {
	Convey("Given a running service whose pass is blocked in a fetch", t, func() {
		static := newStub(model.SourceStatic, staticRecords())
		static.gate = make(chan struct{})
		static.entered = make(chan struct{}, 1)

		svc := newService(service.WithSources(static))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		first := svc.TriggerConsolidation(ctx)
		So(first.Accepted, ShouldBeTrue)
		So(first.Coalesced, ShouldBeFalse)

		select {
		case <-static.entered:
		case <-time.After(5 * time.Second):
			t.Fatal("pass never started")
		}
		So(svc.GetStatus(ctx).PassRunning, ShouldBeTrue)

		Convey("When more triggers arrive", func() {
			second := svc.TriggerConsolidation(ctx)
			third := svc.TriggerConsolidation(ctx)

			Convey("Then one is queued and the rest are coalesced into it", func() {
				So(second.Accepted, ShouldBeTrue)
				So(second.Coalesced, ShouldBeFalse)
				So(third.Accepted, ShouldBeTrue)
				So(third.Coalesced, ShouldBeTrue)
			})

			close(static.gate)
			So(waitFor(func() bool { return static.Calls() == 2 && svc.GetStats()["passRunning"] == false }), ShouldBeTrue)

			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(svc.Stop(stopCtx), ShouldBeNil)

			Convey("Then exactly two passes ran", func() {
				So(static.Calls(), ShouldEqual, 2)
				So(svc.GetStats()["passesCompleted"], ShouldEqual, int64(2))
			})
		})
	})
}

func TestService_WarmStart(t *testing.T) {
	Convey("Given a snapshot file from an earlier run", t, func() {
		path := t.TempDir() + "/snapshot.json"
		err := repository.WriteSnapshotFile(path, map[string]model.EnhancedModel{
			"gpt-4": {
				ModelID:        "gpt-4",
				DisplayName:    "GPT-4",
				Provider:       "openai",
				CategoryScores: map[string]model.CategoryScore{"coding": {Score: 70, Confidence: 0.4}},
				PassID:         "old-pass",
				ConsolidatedAt: fixedNow.Add(-time.Hour),
			},
		})
		So(err, ShouldBeNil)

		ctx := context.Background()
		svc := newService(service.WithSnapshotPath(path), service.WithWarmStart(true))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("Then queries are served before any pass", func() {
			st := svc.GetStatus(ctx)
			So(st.TotalModels, ShouldEqual, 1)
			So(st.LastPassID, ShouldEqual, "old-pass")

			ms, err := svc.GetModelScores(ctx, "gpt-4")
			So(err, ShouldBeNil)
			So(ms.CategoryScores["coding"].Score, ShouldEqual, 70)

			r, err := svc.GetCategoryRanking(ctx, "coding", 10)
			So(err, ShouldBeNil)
			So(r.Rankings[0].ModelID, ShouldEqual, "gpt-4")
		})
	})

	Convey("Given a missing snapshot file", t, func() {
		ctx := context.Background()
		svc := newService(service.WithSnapshotPath(t.TempDir()+"/absent.json"), service.WithWarmStart(true))

		Convey("Then the service starts empty", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()
			So(svc.GetStatus(ctx).TotalModels, ShouldEqual, 0)
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
