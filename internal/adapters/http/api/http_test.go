package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"

	"github.com/okian/modelfusion/internal/adapters/http/api"
	"github.com/okian/modelfusion/internal/adapters/repository"
	service "github.com/okian/modelfusion/internal/app"
	"github.com/okian/modelfusion/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	trigger   service.TriggerResult
	scores    map[string]service.ModelScores
	rankings  []repository.Entry
	lastLimit int
	rankErr   error
}

func (m *mockDependencies) GetStatus(context.Context) service.Status {
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return service.Status{
		Status:            service.StatusOperational,
		TotalModels:       len(m.scores),
		LastConsolidation: &at,
		DataSources:       map[string]service.SourceState{"static": {Quality: 0.9, Enabled: true}},
	}
}

func (m *mockDependencies) TriggerConsolidation(context.Context) service.TriggerResult {
	return m.trigger
}

func (m *mockDependencies) GetModelScores(_ context.Context, id string) (service.ModelScores, error) {
	ms, ok := m.scores[id]
	if !ok {
		return service.ModelScores{}, eris.Wrapf(service.ErrModelNotFound, "model %q", id)
	}
	return ms, nil
}

func (m *mockDependencies) GetCategoryRanking(_ context.Context, category string, limit int) (service.Ranking, error) {
	m.lastLimit = limit
	if m.rankErr != nil {
		return service.Ranking{}, m.rankErr
	}
	if limit <= 0 {
		return service.Ranking{}, eris.Wrapf(service.ErrInvalidLimit, "limit %d", limit)
	}
	if category != "coding" {
		return service.Ranking{}, eris.Wrapf(service.ErrUnknownCategory, "category %q", category)
	}
	n := min(limit, len(m.rankings))
	return service.Ranking{Category: category, Rankings: m.rankings[:n], TotalModels: len(m.rankings)}, nil
}

type mockStatsProvider struct{}

func (mockStatsProvider) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "totalModels": 2}
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStatsProvider{}, api.WithDefaultLimit(5)).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, target, http.NoBody))
	return w
}

func decode(w *httptest.ResponseRecorder, v any) {
	So(json.Unmarshal(w.Body.Bytes(), v), ShouldBeNil)
}

func fixture() *mockDependencies {
	return &mockDependencies{
		trigger: service.TriggerResult{Accepted: true, Message: "consolidation queued"},
		scores: map[string]service.ModelScores{
			"gpt-4": {
				ModelID:        "gpt-4",
				DisplayName:    "GPT-4",
				Provider:       "openai",
				CategoryScores: map[string]model.CategoryScore{"coding": {Score: 60.3, Confidence: 0.37}},
				PassID:         "p1",
			},
		},
		rankings: []repository.Entry{
			{Rank: 1, ModelID: "claude-3-opus", Score: 76.4},
			{Rank: 2, ModelID: "gpt-4", Score: 60.3},
		},
	}
}

func TestServer_Health(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux := newMux(fixture())

		Convey("Then /healthz answers ok", func() {
			w := do(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ok"`)
		})

		Convey("Then /metrics exposes the registry", func() {
			w := do(mux, http.MethodGet, "/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then /stats returns the stats map", func() {
			w := do(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			decode(w, &stats)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("Then non-GET stats requests are not found", func() {
			So(do(mux, http.MethodPost, "/stats").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Status(t *testing.T) {
	Convey("Given a registered server", t, func() {
		deps := fixture()
		mux := newMux(deps)

		Convey("When status is requested", func() {
			w := do(mux, http.MethodGet, "/status")
			So(w.Code, ShouldEqual, http.StatusOK)

			var st service.Status
			decode(w, &st)
			So(st.Status, ShouldEqual, "operational")
			So(st.TotalModels, ShouldEqual, 1)
			So(st.DataSources["static"].Quality, ShouldEqual, 0.9)
		})

		Convey("When a consolidation is requested", func() {
			w := do(mux, http.MethodPost, "/consolidate")

			Convey("Then it is accepted without waiting", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var res service.TriggerResult
				decode(w, &res)
				So(res.Accepted, ShouldBeTrue)
			})
		})

		Convey("When the service refuses the trigger", func() {
			deps.trigger = service.TriggerResult{Message: "service is shutting down"}
			w := do(mux, http.MethodPost, "/consolidate")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, "shutting down")
		})

		Convey("When consolidate is called with GET", func() {
			So(do(mux, http.MethodGet, "/consolidate").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_ModelScores(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux := newMux(fixture())

		Convey("When the model exists", func() {
			w := do(mux, http.MethodGet, "/models/gpt-4/scores")
			So(w.Code, ShouldEqual, http.StatusOK)

			var ms service.ModelScores
			decode(w, &ms)
			So(ms.ModelID, ShouldEqual, "gpt-4")
			So(ms.CategoryScores["coding"].Score, ShouldEqual, 60.3)
		})

		Convey("When the model is unknown", func() {
			w := do(mux, http.MethodGet, "/models/gpt-17/scores")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, "not_found")
		})
	})
}

func TestServer_Rankings(t *testing.T) {
	Convey("Given a registered server", t, func() {
		deps := fixture()
		mux := newMux(deps)

		Convey("When no limit is given", func() {
			w := do(mux, http.MethodGet, "/rankings/coding")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, 5)

			var r service.Ranking
			decode(w, &r)
			So(len(r.Rankings), ShouldEqual, 2)
			So(r.TotalModels, ShouldEqual, 2)
		})

		Convey("When a limit is given", func() {
			w := do(mux, http.MethodGet, "/rankings/coding?limit=1")
			var r service.Ranking
			decode(w, &r)
			So(len(r.Rankings), ShouldEqual, 1)
			So(r.Rankings[0].ModelID, ShouldEqual, "claude-3-opus")
		})

		Convey("When the limit is not a number", func() {
			So(do(mux, http.MethodGet, "/rankings/coding?limit=ten").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit is zero", func() {
			So(do(mux, http.MethodGet, "/rankings/coding?limit=0").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the category is unknown", func() {
			w := do(mux, http.MethodGet, "/rankings/poetry")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, "unknown_category")
		})

		Convey("When the service fails unexpectedly", func() {
			deps.rankErr = eris.New("boom")
			So(do(mux, http.MethodGet, "/rankings/coding").Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}
