package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/AnyUserName/phototune/internal/hasher"
)

// New creates an empty manifest for session.
func New(session string) *Manifest {
	return &Manifest{
		Version:     SupportedManifestVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Session:     session,
		Exports:     []Export{},
	}
}

// Add records e and refreshes the stats. Paths are content-addressed, so
// an export whose path is already listed replaces that record in place.
func (m *Manifest) Add(e Export) {
	for i := range m.Exports {
		if m.Exports[i].Path == e.Path {
			m.Exports[i] = e
			m.ComputeStats()
			return
		}
	}
	m.Exports = append(m.Exports, e)
	m.ComputeStats()
}

// ComputeStats recalculates aggregate statistics from exports.
func (m *Manifest) ComputeStats() {
	s := Stats{Formats: map[string]int{}}
	s.TotalExports = len(m.Exports)
	for _, e := range m.Exports {
		s.TotalOutputBytes += e.Size
		s.Formats[e.Format]++
	}
	m.Stats = s
}

// ReadJSON loads a manifest. A missing file returns fs.ErrNotExist.
func ReadJSON(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Version > SupportedManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	return &m, nil
}

// ReadOrNew loads path, or starts a fresh manifest when it does not exist.
// The session id is updated either way.
func ReadOrNew(path, session string) (*Manifest, error) {
	m, err := ReadJSON(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return New(session), nil
	case err != nil:
		return nil, err
	}
	m.Session = session
	return m, nil
}

// WriteJSON serialises the manifest atomically (temp file + rename).
func WriteJSON(m *Manifest, path string) error {
	m.ComputeStats()
	m.GeneratedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Validate checks a manifest against the files next to it and returns one
// message per problem.
func Validate(m *Manifest, baseDir string) []string {
	var errs []string

	if m.Version != SupportedManifestVersion {
		errs = append(errs, fmt.Sprintf("unsupported manifest version: %d", m.Version))
	}

	seenIDs := map[string]bool{}
	seenPaths := map[string]bool{}
	var total int64
	for i, e := range m.Exports {
		label := fmt.Sprintf("export[%d]", i)
		if e.ID == "" {
			errs = append(errs, label+": missing id")
		} else if seenIDs[e.ID] {
			errs = append(errs, fmt.Sprintf("%s: duplicate id %s", label, e.ID))
		}
		seenIDs[e.ID] = true

		if e.Width <= 0 || e.Height <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid dimensions %dx%d", label, e.Width, e.Height))
		}
		if err := e.Params.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid params: %v", label, err))
		}
		if e.Format == "" {
			errs = append(errs, label+": empty format")
		}
		total += e.Size

		if e.Path == "" {
			errs = append(errs, label+": missing path")
			continue
		}
		if seenPaths[e.Path] {
			errs = append(errs, fmt.Sprintf("%s: duplicate path %q", label, e.Path))
		}
		seenPaths[e.Path] = true

		data, err := os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(e.Path)))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: file not found: %s", label, e.Path))
			continue
		}
		if int64(len(data)) != e.Size {
			errs = append(errs, fmt.Sprintf("%s: size mismatch: manifest=%d, disk=%d", label, e.Size, len(data)))
		}
		if h := hasher.ContentHash(data, 16); e.Hash != "" && h != e.Hash {
			errs = append(errs, fmt.Sprintf("%s: hash mismatch: manifest=%s, disk=%s", label, e.Hash, h))
		}
	}

	if m.Stats.TotalExports != len(m.Exports) {
		errs = append(errs, fmt.Sprintf("stats.total_exports mismatch: %d != %d", m.Stats.TotalExports, len(m.Exports)))
	}
	if m.Stats.TotalOutputBytes != total {
		errs = append(errs, fmt.Sprintf("stats.total_output_bytes mismatch: %d != %d", m.Stats.TotalOutputBytes, total))
	}
	return errs
}
