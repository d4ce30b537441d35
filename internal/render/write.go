package render

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"llamate/internal/config"
	"llamate/pkg/types"
)

// Lister yields the current snapshot of all model records.
type Lister interface {
	List() (map[string]types.ModelRecord, error)
}

// WriteDocument persists a rendered document. The write goes through a temp
// file in the same directory followed by a rename, so a crash mid-write never
// leaves a truncated document behind.
func WriteDocument(path string, doc types.Document) error {
	b, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create document dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("temp document: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

// Refresh re-renders the supervisor document from the stores and writes it to
// its configured location. Called after every model mutation and before every
// supervisor (re)start.
func Refresh(p config.Paths, st config.Settings, models Lister) error {
	snapshot, err := models.List()
	if err != nil {
		return err
	}
	doc := Render(st, p.ServerBin(), snapshot)
	return WriteDocument(p.SwapConfigFile, doc)
}
