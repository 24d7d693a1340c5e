// Package source decodes user images into rasters.
package source

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/AnyUserName/phototune/internal/raster"
	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Options controls decoding.
type Options struct {
	// MaxWidth downscales wider images (Lanczos, aspect preserved).
	// 0 keeps the original size.
	MaxWidth int
	// KeepOrientation disables EXIF auto-rotation.
	KeepOrientation bool
}

// Info describes a loaded image.
type Info struct {
	Path   string
	Format string
	Size   int64 // bytes on disk
	Width  int   // decoded width before any downscale
	Height int
}

// Load opens path and converts it to a raster.
func Load(path string, opts Options) (*raster.Raster, Info, error) {
	info := Info{Path: path, Format: FormatOf(path)}

	st, err := os.Stat(path)
	if err != nil {
		return nil, info, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.IsDir() {
		return nil, info, fmt.Errorf("%s is a directory", path)
	}
	info.Size = st.Size()

	img, err := imaging.Open(path, imaging.AutoOrientation(!opts.KeepOrientation))
	if err != nil {
		return nil, info, fmt.Errorf("decode %s: %w", path, err)
	}
	r, w, h := convert(img, opts)
	info.Width, info.Height = w, h
	return r, info, nil
}

// Decode reads an image stream and converts it to a raster.
func Decode(rd io.Reader, opts Options) (*raster.Raster, error) {
	img, err := imaging.Decode(rd, imaging.AutoOrientation(!opts.KeepOrientation))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	r, _, _ := convert(img, opts)
	return r, nil
}

func convert(img image.Image, opts Options) (*raster.Raster, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if opts.MaxWidth > 0 && w > opts.MaxWidth {
		img = imaging.Resize(img, opts.MaxWidth, 0, imaging.Lanczos)
	}
	return raster.FromImage(img), w, h
}
