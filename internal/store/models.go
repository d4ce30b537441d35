package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"llamate/pkg/types"
)

// ModelStore keeps one YAML record per model under the models directory.
// Records are owned here; other components only read snapshots.
type ModelStore struct {
	dir string
}

func NewModelStore(dir string) *ModelStore { return &ModelStore{dir: dir} }

// Dir returns the backing directory (watched for changes by the supervisor).
func (s *ModelStore) Dir() string { return s.dir }

func (s *ModelStore) path(name string) string {
	return filepath.Join(s.dir, name+".yaml")
}

// Load reads a single model record by name.
func (s *ModelStore) Load(name string) (types.ModelRecord, error) {
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return types.ModelRecord{}, ErrNotFound(name)
		}
		return types.ModelRecord{}, fmt.Errorf("read model %s: %w", name, err)
	}
	var rec types.ModelRecord
	if err := yaml.Unmarshal(b, &rec); err != nil {
		return types.ModelRecord{}, fmt.Errorf("parse model %s: %w", name, err)
	}
	normalize(&rec)
	return rec, nil
}

// Save validates the name and overwrites the record entirely.
func (s *ModelStore) Save(name string, rec types.ModelRecord) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}
	if rec.Args == nil {
		rec.Args = map[string]string{}
	}
	b, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode model %s: %w", name, err)
	}
	if err := os.WriteFile(s.path(name), b, 0o644); err != nil {
		return fmt.Errorf("write model %s: %w", name, err)
	}
	return nil
}

// List enumerates every readable record. A record that fails to parse or has
// no artifact file is skipped; one bad file must not abort the listing.
func (s *ModelStore) List() (map[string]types.ModelRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]types.ModelRecord{}, nil
		}
		return nil, fmt.Errorf("read models dir: %w", err)
	}
	out := make(map[string]types.ModelRecord)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".yaml")
		rec, err := s.Load(name)
		if err != nil || rec.ArtifactFile == "" {
			continue
		}
		out[name] = rec
	}
	return out, nil
}

// Delete removes the record. Deleting an absent record is not an error.
func (s *ModelStore) Delete(name string) error {
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete model %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a record is present for name.
func (s *ModelStore) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// normalize fills defaults and lifts the legacy default_args key.
func normalize(rec *types.ModelRecord) {
	if legacy, ok := rec.Extra["default_args"]; ok && len(rec.Args) == 0 {
		if m, ok := legacy.(map[string]any); ok {
			rec.Args = make(map[string]string, len(m))
			for k, v := range m {
				rec.Args[k] = fmt.Sprint(v)
			}
		}
		delete(rec.Extra, "default_args")
	}
	if rec.Args == nil {
		rec.Args = map[string]string{}
	}
}
