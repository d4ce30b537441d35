package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"llamate/internal/config"
	"llamate/pkg/types"
)

type staticLister map[string]types.ModelRecord

func (l staticLister) List() (map[string]types.ModelRecord, error) { return l, nil }

func TestWriteDocumentRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "swap.yaml")
	doc := types.Document{
		Models: map[string]types.ModelEntry{"m": {Cmd: "/bin/s --model /d/m.gguf"}},
		Groups: map[string]any{},
	}
	if err := WriteDocument(path, doc); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var got types.Document
	if err := yaml.Unmarshal(b, &got); err != nil {
		t.Fatalf("parse back: %v", err)
	}
	if got.Models["m"].Cmd != doc.Models["m"].Cmd {
		t.Fatalf("round trip lost cmd: %+v", got)
	}
	if got.Groups == nil {
		t.Fatalf("groups key missing from document")
	}
	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("stray files after write: %v", entries)
	}
}

func TestGroupsKeyAlwaysSerialized(t *testing.T) {
	b, err := yaml.Marshal(Render(config.Settings{GGUFDir: "/d"}, "/bin/s", nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), "groups:") {
		t.Fatalf("groups key not serialized: %s", b)
	}
	if strings.Contains(string(b), "models:") {
		t.Fatalf("empty models must be omitted: %s", b)
	}
}

func TestRefreshWritesDocument(t *testing.T) {
	p, err := config.NewPaths(t.TempDir())
	if err != nil {
		t.Fatalf("paths: %v", err)
	}
	st := config.Defaults(p)
	models := staticLister{"m1": {ArtifactFile: "m1.gguf", Args: map[string]string{}}}
	if err := Refresh(p, st, models); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	b, err := os.ReadFile(p.SwapConfigFile)
	if err != nil {
		t.Fatalf("document not written: %v", err)
	}
	if !strings.Contains(string(b), "m1") {
		t.Fatalf("document missing model: %s", b)
	}
}
