package manifest

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AnyUserName/phototune/internal/hasher"
	"github.com/AnyUserName/phototune/internal/profile"
)

func writeExport(t *testing.T, dir, rel string, data []byte) Export {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, rel), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return Export{
		ID:        "7d5a2c1e-0000-4000-8000-000000000001",
		CreatedAt: "2026-01-01T00:00:00Z",
		Source:    SourceInfo{Width: 200, Height: 100, Hash: "abcd"},
		Params:    profile.Params{Brightness: 10, Contrast: 20, Saturation: -5, Gamma: 1.2},
		Format:    "jpeg",
		Quality:   100,
		Width:     200,
		Height:    100,
		Size:      int64(len(data)),
		Hash:      hasher.ContentHash(data, 16),
		Path:      rel,
	}
}

func TestManifestRoundtrip(t *testing.T) {
	dir := t.TempDir()
	m := New("session-1")
	m.Add(writeExport(t, dir, "photo.200.100.0011aabb.jpg", []byte("jpeg bytes")))

	path := filepath.Join(dir, FileName)
	if err := WriteJSON(m, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	m2, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if m2.Version != SupportedManifestVersion {
		t.Errorf("version: got %d, want %d", m2.Version, SupportedManifestVersion)
	}
	if m2.Session != "session-1" {
		t.Errorf("session: got %q", m2.Session)
	}
	if len(m2.Exports) != 1 {
		t.Fatalf("exports: got %d", len(m2.Exports))
	}
	if m2.Exports[0].Params != m.Exports[0].Params {
		t.Errorf("params: got %+v", m2.Exports[0].Params)
	}
	if m2.Stats.TotalExports != 1 || m2.Stats.TotalOutputBytes != int64(len("jpeg bytes")) {
		t.Errorf("stats: got %+v", m2.Stats)
	}
	if m2.Stats.Formats["jpeg"] != 1 {
		t.Errorf("format stats: got %v", m2.Stats.Formats)
	}

	if errs := Validate(m2, dir); len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestReadOrNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	m, err := ReadOrNew(path, "first")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(m.Exports) != 0 || m.Session != "first" {
		t.Fatalf("fresh manifest: %+v", m)
	}
	m.Add(writeExport(t, dir, "a.png", []byte("a")))
	if err := WriteJSON(m, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, err = ReadOrNew(path, "second")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(m.Exports) != 1 || m.Session != "second" {
		t.Errorf("reopened manifest: %+v", m)
	}

	if _, err := ReadJSON(filepath.Join(dir, "nope.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file: got %v", err)
	}
}

func TestAddReplacesSamePath(t *testing.T) {
	dir := t.TempDir()
	m := New("s")
	first := writeExport(t, dir, "photo.200.100.0011aabb.png", []byte("png bytes"))
	m.Add(first)
	m.Add(writeExport(t, dir, "other.200.100.2233ccdd.png", []byte("other")))

	again := first
	again.ID = "7d5a2c1e-0000-4000-8000-000000000002"
	again.Generation = 9
	again.Params.Brightness = 40
	m.Add(again)

	if len(m.Exports) != 2 {
		t.Fatalf("exports: got %d, want 2", len(m.Exports))
	}
	if m.Exports[0] != again {
		t.Errorf("record not replaced in place: %+v", m.Exports[0])
	}
	if m.Stats.TotalExports != 2 {
		t.Errorf("stats.total_exports: got %d", m.Stats.TotalExports)
	}
	if errs := Validate(m, dir); len(errs) != 0 {
		t.Errorf("validate: %v", errs)
	}
}

func TestManifestIgnoresUnknownFields(t *testing.T) {
	raw := `{
		"version": 1,
		"generated_at": "2026-01-01T00:00:00Z",
		"session": "s",
		"future_field": "should be ignored",
		"exports": [],
		"stats": { "total_exports": 0, "total_output_bytes": 0, "new_stat": 42 }
	}`

	var m Manifest
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal with unknown fields: %v", err)
	}
	if m.Version != 1 {
		t.Errorf("version: got %d", m.Version)
	}
}

func TestReadRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadJSON(path); err == nil {
		t.Error("expected error for future version")
	}
}

func TestValidate_DetectsProblems(t *testing.T) {
	dir := t.TempDir()
	m := New("s")
	good := writeExport(t, dir, "good.jpg", []byte("good"))
	m.Add(good)

	tampered := writeExport(t, dir, "tampered.jpg", []byte("original"))
	tampered.ID = "other-id"
	m.Add(tampered)
	if err := os.WriteFile(filepath.Join(dir, "tampered.jpg"), []byte("modified"), 0o644); err != nil {
		t.Fatal(err)
	}

	missing := good
	missing.ID = "missing-id"
	missing.Path = "gone.jpg"
	m.Add(missing)

	dup := good
	dup.Params.Gamma = 0
	m.Add(dup)

	errs := strings.Join(Validate(m, dir), "\n")
	for _, want := range []string{
		"hash mismatch",
		"file not found: gone.jpg",
		"duplicate id",
		"duplicate path",
		"invalid params",
	} {
		if !strings.Contains(errs, want) {
			t.Errorf("missing %q in:\n%s", want, errs)
		}
	}
}
