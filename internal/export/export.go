// Package export persists finished rasters and records them in the
// output directory's manifest.
package export

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/AnyUserName/phototune/internal/encoder"
	"github.com/AnyUserName/phototune/internal/hasher"
	"github.com/AnyUserName/phototune/internal/logging"
	"github.com/AnyUserName/phototune/internal/manifest"
	"github.com/AnyUserName/phototune/internal/profile"
	"github.com/AnyUserName/phototune/internal/raster"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultFormat is used when a request names none.
const DefaultFormat = "jpeg"

// ErrEmptyRaster is returned for rasters without pixels.
var ErrEmptyRaster = errors.New("nothing to export: empty image")

// Config configures New.
type Config struct {
	OutputDir string
	Registry  *encoder.Registry // nil = encoder.NewRegistry()
	Session   string            // "" = fresh uuid
	Logger    logrus.FieldLogger
}

// Request describes one export.
type Request struct {
	// Name is the slash-separated base name, e.g. "holiday/beach"; the file
	// becomes <name>.<w>.<h>.<hash8>.<ext>.
	Name       string
	Format     string // "" = DefaultFormat
	Quality    int    // 0 = encoder.DefaultQuality
	Params     profile.Params
	Generation uint64
	Source     manifest.SourceInfo
}

// Exporter writes files and keeps the manifest. It is safe for concurrent
// use.
type Exporter struct {
	cfg      Config
	log      logrus.FieldLogger
	registry *encoder.Registry

	mu       sync.Mutex
	manifest *manifest.Manifest
}

// New opens (or starts) the manifest in cfg.OutputDir, creating the
// directory if needed.
func New(cfg Config) (*Exporter, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("export: output directory not set")
	}
	if cfg.Registry == nil {
		cfg.Registry = encoder.NewRegistry()
	}
	if cfg.Session == "" {
		cfg.Session = uuid.NewString()
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	m, err := manifest.ReadOrNew(filepath.Join(cfg.OutputDir, manifest.FileName), cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	return &Exporter{
		cfg:      cfg,
		log:      logging.OrDiscard(cfg.Logger),
		registry: cfg.Registry,
		manifest: m,
	}, nil
}

// Session returns the id recorded in the manifest.
func (e *Exporter) Session() string { return e.cfg.Session }

// Dir returns the output directory.
func (e *Exporter) Dir() string { return e.cfg.OutputDir }

// ManifestPath returns where Flush writes.
func (e *Exporter) ManifestPath() string {
	return filepath.Join(e.cfg.OutputDir, manifest.FileName)
}

// Export encodes r, writes it under the output directory and records it.
// The manifest file itself is only written by Flush.
func (e *Exporter) Export(r *raster.Raster, req Request) (manifest.Export, error) {
	if r.Empty() {
		return manifest.Export{}, ErrEmptyRaster
	}
	format := req.Format
	if format == "" {
		format = DefaultFormat
	}
	enc, err := e.registry.Lookup(format)
	if err != nil {
		return manifest.Export{}, err
	}
	name, err := cleanName(req.Name)
	if err != nil {
		return manifest.Export{}, err
	}

	quality := 0
	if enc.Lossy() {
		quality = req.Quality
		if quality <= 0 || quality > 100 {
			quality = encoder.DefaultQuality
		}
	}

	data, err := enc.Encode(r.Image(), quality)
	if err != nil {
		return manifest.Export{}, fmt.Errorf("encode %s: %w", enc.Format(), err)
	}

	contentHash := hasher.ContentHash(data, 16)
	rel := fmt.Sprintf("%s.%d.%d.%s.%s", name, r.Width, r.Height, contentHash[:8], enc.Extension())
	out := filepath.Join(e.cfg.OutputDir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return manifest.Export{}, fmt.Errorf("create dir for %s: %w", rel, err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return manifest.Export{}, fmt.Errorf("write %s: %w", rel, err)
	}

	rec := manifest.Export{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Source:     req.Source,
		Params:     req.Params,
		Generation: req.Generation,
		Format:     enc.Format(),
		Quality:    quality,
		Width:      r.Width,
		Height:     r.Height,
		Size:       int64(len(data)),
		Hash:       contentHash,
		Path:       rel,
	}

	e.mu.Lock()
	e.manifest.Add(rec)
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"path":   rel,
		"format": rec.Format,
		"bytes":  rec.Size,
	}).Info("exported")
	return rec, nil
}

// Flush writes the manifest.
func (e *Exporter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := manifest.WriteJSON(e.manifest, e.ManifestPath()); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Manifest returns a copy of the in-memory manifest.
func (e *Exporter) Manifest() manifest.Manifest {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := *e.manifest
	m.Exports = append([]manifest.Export(nil), e.manifest.Exports...)
	return m
}

// cleanName keeps export names inside the output directory.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(filepath.ToSlash(name))
	if name == "" {
		return "phototune", nil
	}
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("export name %q escapes the output directory", name)
	}
	return clean, nil
}
