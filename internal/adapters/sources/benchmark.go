package sources

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/okian/modelfusion/internal/domain/model"
	"github.com/okian/modelfusion/pkg/logger"
	"github.com/okian/modelfusion/pkg/metrics"
)

// Ordered identity fields of a scraped profile entry.
var identityFields = []string{"model_name", "api_alias", "id", "name"}

// Scraped field names and the record fields they populate.
var fieldMapping = [][2]string{
	{"model_name", "display_name"},
	{"api_alias", "api_name"},
	{"context_window_tokens", "context_window"},
	{"pricing_details", "pricing"},
	{"benchmark_highlights", "benchmarks"},
	{"benchmark_scores", "benchmarks"},
	{"best_use_cases", "use_cases"},
	{"capabilities_and_modalities", "capabilities"},
	{"modalities", "modalities"},
	{"availability_status", "status"},
}

// Benchmark scans a directory of scraped snapshot files.
type Benchmark struct {
	tracker
	dir     string
	pattern string
	log     logger.Logger
}

// NewBenchmark returns a snapshot-directory source.
func NewBenchmark(dir, pattern string, opts ...Option) *Benchmark {
	o := buildOptions(opts)
	return &Benchmark{
		tracker: tracker{kind: model.SourceBenchmarks, now: o.now},
		dir:     dir,
		pattern: pattern,
		log:     o.log,
	}
}

// Enabled is true when a directory is configured.
func (b *Benchmark) Enabled() bool { return b.dir != "" }

// Fetch parses every matching file in lexical order. A file that cannot be
// read or parsed is logged and skipped; later files override earlier ones.
func (b *Benchmark) Fetch(ctx context.Context) (model.RecordSet, time.Time, error) {
	if !b.Enabled() {
		b.reset()
		return model.RecordSet{}, time.Time{}, nil
	}

	files, err := filepath.Glob(filepath.Join(b.dir, b.pattern))
	if err != nil {
		b.reset()
		return model.RecordSet{}, time.Time{}, eris.Wrapf(ErrSourceUnavailable, "glob %s: %v", b.pattern, err)
	}
	sort.Strings(files)

	fetchedAt := b.now()
	records := model.RecordSet{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			b.reset()
			return model.RecordSet{}, time.Time{}, eris.Wrap(ErrSourceUnavailable, err.Error())
		}
		n, err := b.parseFile(path, fetchedAt, records)
		if err != nil {
			b.log.Warn(ctx, "benchmark file skipped", logger.String("file", path), logger.Error(err))
			metrics.RecordSourceError(string(model.SourceBenchmarks), "parse")
			continue
		}
		b.log.Debug(ctx, "benchmark file loaded", logger.String("file", path), logger.Int("records", n))
	}

	b.assess(records, fetchedAt)
	return records, fetchedAt, nil
}

func (b *Benchmark) parseFile(path string, fetchedAt time.Time, into model.RecordSet) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, eris.Wrapf(ErrSourceUnavailable, "read %s: %v", path, err)
	}
	if !gjson.ValidBytes(raw) {
		return 0, eris.Wrapf(ErrMalformedPayload, "invalid json in %s", path)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return 0, eris.Wrapf(ErrMalformedPayload, "%s is not an object", path)
	}

	n := 0
	if output := doc.Get("output"); output.IsObject() {
		output.ForEach(func(profile, entries gjson.Result) bool {
			if !entries.IsArray() {
				return true
			}
			provider := profileProvider(profile.String())
			for _, entry := range entries.Array() {
				fields, ok := entry.Value().(map[string]any)
				if !ok {
					continue
				}
				id := profileIdentity(fields)
				if id == "" {
					continue
				}
				into[id] = structuredRecord(id, provider, fields, fetchedAt)
				n++
			}
			return true
		})
		return n, nil
	}

	doc.ForEach(func(key, value gjson.Result) bool {
		fields, ok := value.Value().(map[string]any)
		if !ok || key.String() == "" {
			return true
		}
		into[key.String()] = flatRecord(key.String(), fields, fetchedAt)
		n++
		return true
	})
	return n, nil
}

// profileProvider derives the provider from a profile key such as
// "openai_models_profile" or "mistral_models".
func profileProvider(key string) string {
	key = strings.TrimSuffix(key, "_models_profile")
	return strings.TrimSuffix(key, "_models")
}

func profileIdentity(fields map[string]any) string {
	for _, name := range identityFields {
		v, ok := fields[name].(string)
		if !ok {
			continue
		}
		if i := strings.Index(v, ","); i >= 0 {
			v = v[:i]
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func structuredRecord(id, provider string, entry map[string]any, fetchedAt time.Time) model.Record {
	fields := model.Fields{"provider": provider}
	for _, m := range fieldMapping {
		if v, ok := entry[m[0]]; ok {
			fields[m[1]] = v
		}
	}
	return finishRecord(id, fields, fetchedAt)
}

func flatRecord(id string, entry map[string]any, fetchedAt time.Time) model.Record {
	fields := make(model.Fields, len(entry))
	for k, v := range entry {
		fields[k] = v
	}
	return finishRecord(id, fields, fetchedAt)
}

// finishRecord parses free-text pricing and highlights and collects scores.
func finishRecord(id string, fields model.Fields, fetchedAt time.Time) model.Record {
	if text, ok := fields["pricing"].(string); ok {
		fields["pricing_parsed"] = parsePricing(text)
	}
	if text, ok := fields["benchmarks"].(string); ok {
		fields["benchmarks_parsed"] = parseHighlights(text)
	}

	recordDate := parseDate(fields["last_updated"])
	if recordDate.IsZero() {
		recordDate = parseDate(fields["date"])
	}

	scores := map[string]model.Observation{}
	if parsed, ok := fields["benchmarks_parsed"].(map[string]any); ok {
		observations(model.SourceBenchmarks, parsed, recordDate, scores)
	}
	if structured, ok := fields["benchmarks"].(map[string]any); ok {
		observations(model.SourceBenchmarks, structured, recordDate, scores)
	}

	return model.Record{
		Source:    model.SourceBenchmarks,
		Key:       id,
		Fields:    fields,
		Scores:    scores,
		FetchedAt: fetchedAt,
	}
}
