package store

import (
	"os"
	"path/filepath"
	"testing"

	"llamate/pkg/types"
)

func writeModelFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewModelStore(filepath.Join(t.TempDir(), "models"))
	rec := types.ModelRecord{
		SourceRepo:   "org/repo",
		ArtifactFile: "m.gguf",
		Args:         map[string]string{"ctx-size": "4096"},
		Proxy:        "http://127.0.0.1:9999",
	}
	if err := s.Save("m1", rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load("m1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.SourceRepo != rec.SourceRepo || got.ArtifactFile != rec.ArtifactFile || got.Proxy != rec.Proxy {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Args["ctx-size"] != "4096" {
		t.Fatalf("args lost: %+v", got.Args)
	}
}

func TestLoadNotFound(t *testing.T) {
	s := NewModelStore(t.TempDir())
	_, err := s.Load("nope")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestSaveRejectsInvalidName(t *testing.T) {
	s := NewModelStore(t.TempDir())
	err := s.Save("bad/name", types.ModelRecord{ArtifactFile: "x.gguf"})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListSkipsCorruptRecords(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	writeModelFile(t, dir, "good.yaml", "source_repo: org/repo\nartifact_file: good.gguf\nargs: {}\n")
	writeModelFile(t, dir, "broken.yaml", ":\t not yaml")
	writeModelFile(t, dir, "empty.yaml", "args: {}\n") // no artifact file
	writeModelFile(t, dir, "notes.txt", "ignored")

	s := NewModelStore(dir)
	models, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("expected 1 model, got %d: %v", len(models), models)
	}
	if _, ok := models["good"]; !ok {
		t.Fatalf("good record missing: %v", models)
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	s := NewModelStore(filepath.Join(t.TempDir(), "does-not-exist"))
	models, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(models) != 0 {
		t.Fatalf("expected empty, got %v", models)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := NewModelStore(t.TempDir())
	if err := s.Save("m1", types.ModelRecord{ArtifactFile: "m.gguf"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Delete("m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete("m1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if s.Exists("m1") {
		t.Fatalf("record still exists")
	}
}

func TestLoadLiftsLegacyDefaultArgs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	writeModelFile(t, dir, "old.yaml", "artifact_file: old.gguf\ndefault_args:\n  ctx-size: 2048\n")
	s := NewModelStore(dir)
	rec, err := s.Load("old")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.Args["ctx-size"] != "2048" {
		t.Fatalf("legacy args not lifted: %+v", rec)
	}
	if _, ok := rec.Extra["default_args"]; ok {
		t.Fatalf("legacy key still in extras")
	}
}

func TestExtraKeysPreserved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	writeModelFile(t, dir, "m.yaml", "artifact_file: m.gguf\nttl: 300\n")
	rec, err := NewModelStore(dir).Load("m")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.Extra["ttl"] != 300 {
		t.Fatalf("extra key lost: %+v", rec.Extra)
	}
}
