package sources

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/okian/modelfusion/internal/domain/matching"
	"github.com/okian/modelfusion/internal/domain/model"
	"github.com/okian/modelfusion/pkg/logger"
	"github.com/okian/modelfusion/pkg/metrics"
)

const (
	apiKeyHeader       = "x-api-key"
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBytes   = 32 << 20
	analyticsOrigin    = "analytics_ai"
)

// Analytics polls the live analytics API.
type Analytics struct {
	tracker
	url     string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	log     logger.Logger
}

// NewAnalytics returns the live analytics source. An empty key disables it.
func NewAnalytics(url, apiKey string, opts ...Option) *Analytics {
	o := buildOptions(opts)
	client := o.httpClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	limit := rate.Inf
	if o.ratePerSec > 0 {
		limit = rate.Limit(o.ratePerSec)
	}
	return &Analytics{
		tracker: tracker{kind: model.SourceAnalytics, now: o.now},
		url:     url,
		apiKey:  apiKey,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		log:     o.log,
	}
}

// Enabled is true when both the endpoint and the key are set.
func (a *Analytics) Enabled() bool { return a.apiKey != "" && a.url != "" }

// Fetch performs one GET. Records are keyed by normalized model name and
// every evaluation is dated at fetch time.
func (a *Analytics) Fetch(ctx context.Context) (model.RecordSet, time.Time, error) {
	if !a.Enabled() {
		a.reset()
		return model.RecordSet{}, time.Time{}, nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		a.reset()
		return model.RecordSet{}, time.Time{}, eris.Wrapf(ErrSourceUnavailable, "rate limit wait: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		a.reset()
		return model.RecordSet{}, time.Time{}, eris.Wrapf(ErrSourceUnavailable, "build request: %v", err)
	}
	req.Header.Set(apiKeyHeader, a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.reset()
		return model.RecordSet{}, time.Time{}, eris.Wrapf(ErrSourceUnavailable, "get %s: %v", a.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		a.reset()
		return model.RecordSet{}, time.Time{}, eris.Wrapf(ErrUpstreamStatus, "analytics returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		a.reset()
		return model.RecordSet{}, time.Time{}, eris.Wrapf(ErrSourceUnavailable, "read body: %v", err)
	}
	if !gjson.ValidBytes(body) {
		a.reset()
		return model.RecordSet{}, time.Time{}, eris.Wrap(ErrMalformedPayload, "analytics body is not json")
	}

	fetchedAt := a.now()
	records := model.RecordSet{}
	gjson.GetBytes(body, "data").ForEach(func(_, entry gjson.Result) bool {
		name := matching.NormalizeName(entry.Get("name").String())
		if name == "" {
			metrics.RecordSourceError(string(model.SourceAnalytics), "missing_name")
			return true
		}
		records[name] = analyticsRecord(name, entry, fetchedAt)
		return true
	})

	a.log.Debug(ctx, "analytics fetched", logger.Int("records", len(records)))
	a.assess(records, fetchedAt)
	return records, fetchedAt, nil
}

func analyticsRecord(key string, entry gjson.Result, fetchedAt time.Time) model.Record {
	evaluations, _ := entry.Get("evaluations").Value().(map[string]any)
	if evaluations == nil {
		evaluations = map[string]any{}
	}
	pricing, _ := entry.Get("pricing").Value().(map[string]any)
	if pricing == nil {
		pricing = map[string]any{}
	}

	fields := model.Fields{
		"name":        entry.Get("name").String(),
		"evaluations": evaluations,
		"pricing":     pricing,
		"performance": map[string]any{
			"tokens_per_second":   entry.Get("median_output_tokens_per_second").Float(),
			"time_to_first_token": entry.Get("median_time_to_first_token_seconds").Float(),
		},
		"metadata": map[string]any{
			"source":       analyticsOrigin,
			"last_updated": fetchedAt.Format(time.RFC3339),
		},
	}

	scores := map[string]model.Observation{}
	observations(model.SourceAnalytics, evaluations, fetchedAt, scores)

	return model.Record{
		Source:    model.SourceAnalytics,
		Key:       key,
		Fields:    fields,
		Scores:    scores,
		FetchedAt: fetchedAt,
	}
}
