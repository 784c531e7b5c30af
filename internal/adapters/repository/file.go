package repository

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/okian/modelfusion/internal/domain/model"
	"github.com/okian/modelfusion/pkg/metrics"
)

// WriteSnapshotFile writes models as a JSON object keyed by model id. The
// file is replaced atomically through a temp file in the same directory.
func WriteSnapshotFile(path string, models map[string]model.EnhancedModel) (err error) {
	defer func() { metrics.RecordSnapshotWrite(err) }()

	data, err := json.MarshalIndent(models, "", "  ")
	if err != nil {
		return eris.Wrapf(ErrSnapshotFile, "encode: %v", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return eris.Wrapf(ErrSnapshotFile, "create temp in %s: %v", dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(ErrSnapshotFile, "write %s: %v", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return eris.Wrapf(ErrSnapshotFile, "close %s: %v", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(ErrSnapshotFile, "rename to %s: %v", path, err)
	}
	return nil
}

// LoadSnapshotFile reads a file written by WriteSnapshotFile and rebuilds a
// snapshot from it. The pass id and completion time come from the models.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrSnapshotFile, "read %s: %v", path, err)
	}
	models := map[string]model.EnhancedModel{}
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, eris.Wrapf(ErrSnapshotFile, "decode %s: %v", path, err)
	}

	s := &Snapshot{Trigger: "warm_start", Models: models}
	for _, m := range models {
		if m.ConsolidatedAt.After(s.CompletedAt) {
			s.CompletedAt = m.ConsolidatedAt
			s.PassID = m.PassID
		}
		if m.Synthesized {
			s.Synthesized++
		}
	}
	return s, nil
}
