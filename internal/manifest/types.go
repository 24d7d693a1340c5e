package manifest

import "github.com/AnyUserName/phototune/internal/profile"

// FileName is the manifest's name inside an export directory.
const FileName = "phototune.manifest.json"

// SupportedManifestVersion is the current schema version.
const SupportedManifestVersion = 1

// Manifest records every export written to one output directory.
type Manifest struct {
	Version     int      `json:"version"`
	GeneratedAt string   `json:"generated_at"`
	Session     string   `json:"session"` // uuid of the run that last wrote it
	Exports     []Export `json:"exports"`
	Stats       Stats    `json:"stats"`
}

// Export is one persisted result.
type Export struct {
	ID         string         `json:"id"` // uuid
	CreatedAt  string         `json:"created_at"`
	Source     SourceInfo     `json:"source"`
	Params     profile.Params `json:"params"`
	Generation uint64         `json:"generation,omitempty"` // scheduler generation, 0 for direct runs
	Format     string         `json:"format"`
	Quality    int            `json:"quality,omitempty"` // lossy formats only
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Size       int64          `json:"size"` // bytes on disk
	Hash       string         `json:"hash"` // xxhash64 of the file, 16 hex chars
	Path       string         `json:"path"` // relative to the manifest
}

// SourceInfo identifies the raster an export was computed from.
type SourceInfo struct {
	Path   string `json:"path,omitempty"` // empty for the generated placeholder
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Hash   string `json:"hash"` // raster hash of the source samples
}

// Stats aggregates export metrics.
type Stats struct {
	TotalExports     int            `json:"total_exports"`
	TotalOutputBytes int64          `json:"total_output_bytes"`
	Formats          map[string]int `json:"formats,omitempty"`
}
