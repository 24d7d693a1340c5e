package source

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Source is an image file discovered under a directory.
type Source struct {
	// AbsPath is the path to the file on disk.
	AbsPath string
	// RelPath is the slash-separated path relative to the scanned directory.
	RelPath string
	// Key is RelPath without its extension; exports are named after it.
	Key string
	// Format is the normalised format name (jpeg, png, gif, bmp, tiff, webp).
	Format string
	// Size is the file size in bytes.
	Size int64
}

// extensions maps recognised file extensions to format names.
var extensions = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".gif":  "gif",
	".bmp":  "bmp",
	".tif":  "tiff",
	".tiff": "tiff",
	".webp": "webp",
}

// FormatOf returns the format for a file name, or "" if it is not an image.
func FormatOf(name string) string {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

// Scan walks dir and returns every image file, skipping hidden
// directories and the excluded directories (typically the output
// directory), sorted by RelPath.
func Scan(dir string, exclude ...string) ([]Source, error) {
	var sources []Source

	skip := map[string]bool{}
	for _, e := range exclude {
		if abs, err := filepath.Abs(e); err == nil {
			skip[abs] = true
		}
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == dir {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if abs, err := filepath.Abs(path); err == nil && skip[abs] {
				return filepath.SkipDir
			}
			return nil
		}

		format := FormatOf(path)
		if format == "" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		sources = append(sources, Source{
			AbsPath: path,
			RelPath: rel,
			Key:     strings.TrimSuffix(rel, filepath.Ext(rel)),
			Format:  format,
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].RelPath < sources[j].RelPath })
	return sources, nil
}
