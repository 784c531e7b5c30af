// Package sources loads raw model records from the static catalog, scraped
// benchmark snapshots and the live analytics API.
package sources

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/okian/modelfusion/internal/domain/model"
	"github.com/okian/modelfusion/internal/domain/quality"
	"github.com/okian/modelfusion/pkg/logger"
)

// Source is one upstream of model records.
type Source interface {
	Kind() model.SourceKind
	// Fetch returns the current records and the time they were fetched.
	// A zero time with no error means the source is disabled.
	Fetch(ctx context.Context) (model.RecordSet, time.Time, error)
	// Quality reports the assessment of the most recent fetch.
	Quality() model.DataQuality
	Enabled() bool
}

// Required fields per source, used for completeness.
var requiredFields = map[model.SourceKind][]string{
	model.SourceStatic:     {"id", "provider", "display_name"},
	model.SourceBenchmarks: {"benchmarks"},
	model.SourceAnalytics:  {"evaluations"},
}

type options struct {
	log        logger.Logger
	now        func() time.Time
	httpClient *http.Client
	ratePerSec float64
}

// Option configures a source.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock injects the time source used for fetch timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithHTTPClient replaces the analytics HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithRate caps analytics requests per second. Zero disables the limit.
func WithRate(perSec float64) Option {
	return func(o *options) {
		if perSec >= 0 {
			o.ratePerSec = perSec
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// tracker keeps the quality of the last fetch.
type tracker struct {
	kind model.SourceKind
	now  func() time.Time

	mu sync.RWMutex
	q  model.DataQuality
}

func (t *tracker) Kind() model.SourceKind { return t.kind }

func (t *tracker) Quality() model.DataQuality {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.q
}

// assess scores a fetch and remembers it. A failed fetch resets to zero.
func (t *tracker) assess(records model.RecordSet, fetchedAt time.Time) model.DataQuality {
	q := quality.Assess(records, requiredFields[t.kind], fetchedAt, t.now())
	t.mu.Lock()
	t.q = q
	t.mu.Unlock()
	return q
}

func (t *tracker) reset() {
	t.mu.Lock()
	t.q = model.DataQuality{}
	t.mu.Unlock()
}
