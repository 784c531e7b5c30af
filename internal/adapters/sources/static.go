package sources

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/okian/modelfusion/internal/domain/model"
	"github.com/okian/modelfusion/pkg/logger"
	"github.com/okian/modelfusion/pkg/metrics"
)

// Static reads the curated catalog: a JSON array, or a YAML list when the
// file has a .yaml/.yml extension.
type Static struct {
	tracker
	path string
	log  logger.Logger
}

// NewStatic returns a catalog source for path.
func NewStatic(path string, opts ...Option) *Static {
	o := buildOptions(opts)
	return &Static{
		tracker: tracker{kind: model.SourceStatic, now: o.now},
		path:    path,
		log:     o.log,
	}
}

// Enabled is true when a catalog path is configured.
func (s *Static) Enabled() bool { return s.path != "" }

// Fetch loads the catalog. Entries without an id are skipped; the first
// entry wins when ids repeat.
func (s *Static) Fetch(ctx context.Context) (model.RecordSet, time.Time, error) {
	if !s.Enabled() {
		s.reset()
		return model.RecordSet{}, time.Time{}, nil
	}
	if err := ctx.Err(); err != nil {
		s.reset()
		return model.RecordSet{}, time.Time{}, eris.Wrap(ErrSourceUnavailable, err.Error())
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		s.reset()
		return model.RecordSet{}, time.Time{}, eris.Wrapf(ErrSourceUnavailable, "read catalog %s: %v", s.path, err)
	}

	entries, err := decodeCatalog(s.path, raw)
	if err != nil {
		s.reset()
		return model.RecordSet{}, time.Time{}, eris.Wrapf(ErrMalformedPayload, "parse catalog %s: %v", s.path, err)
	}

	fetchedAt := s.now()
	records := make(model.RecordSet, len(entries))
	skipped := 0
	for _, entry := range entries {
		id, _ := entry["id"].(string)
		id = strings.TrimSpace(id)
		if id == "" {
			skipped++
			continue
		}
		if _, dup := records[id]; dup {
			s.log.Warn(ctx, "duplicate catalog id, keeping first", logger.String("model_id", id))
			metrics.RecordSourceError(string(model.SourceStatic), "duplicate_id")
			continue
		}
		records[id] = model.Record{
			Source:    model.SourceStatic,
			Key:       id,
			Fields:    model.Fields(entry),
			FetchedAt: fetchedAt,
		}
	}
	if skipped > 0 {
		s.log.Warn(ctx, "catalog entries without id skipped", logger.Int("count", skipped))
		metrics.RecordSourceError(string(model.SourceStatic), "missing_id")
	}

	s.assess(records, fetchedAt)
	return records, fetchedAt, nil
}

func decodeCatalog(path string, raw []byte) ([]map[string]any, error) {
	var entries []map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &entries); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, err
		}
	}
	return entries, nil
}
