// Package raster holds the in-memory RGB image every filter reads and writes.
package raster

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Raster is a dense width×height grid of 8-bit RGB samples stored
// row-major, three bytes per pixel.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8 // len == Width*Height*3
}

// New allocates a black raster.
func New(width, height int) *Raster {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// FromPix wraps an existing sample slice after checking its length.
func FromPix(width, height int, pix []uint8) (*Raster, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid raster dimensions %dx%d", width, height)
	}
	if len(pix) != width*height*3 {
		return nil, fmt.Errorf("pixel buffer length %d does not match %dx%d", len(pix), width, height)
	}
	return &Raster{Width: width, Height: height, Pix: pix}, nil
}

// Len returns the number of pixels.
func (r *Raster) Len() int { return r.Width * r.Height }

// Empty reports whether the raster has no pixels.
func (r *Raster) Empty() bool { return r == nil || r.Width == 0 || r.Height == 0 }

// At returns the channels of the pixel at (x, y).
func (r *Raster) At(x, y int) (red, green, blue uint8) {
	i := (y*r.Width + x) * 3
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// Set writes the pixel at (x, y).
func (r *Raster) Set(x, y int, red, green, blue uint8) {
	i := (y*r.Width + x) * 3
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = red, green, blue
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	out := &Raster{Width: r.Width, Height: r.Height, Pix: make([]uint8, len(r.Pix))}
	copy(out.Pix, r.Pix)
	return out
}

// Equal reports whether both rasters have the same shape and samples.
func (r *Raster) Equal(o *Raster) bool {
	if r.Width != o.Width || r.Height != o.Height || len(r.Pix) != len(o.Pix) {
		return false
	}
	for i := range r.Pix {
		if r.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// MaxDiff returns the largest absolute per-channel difference between two
// rasters of the same shape, or -1 if the shapes differ.
func (r *Raster) MaxDiff(o *Raster) int {
	if r.Width != o.Width || r.Height != o.Height {
		return -1
	}
	m := 0
	for i := range r.Pix {
		d := int(r.Pix[i]) - int(o.Pix[i])
		if d < 0 {
			d = -d
		}
		if d > m {
			m = d
		}
	}
	return m
}

// FromImage converts any image to a raster. Alpha is dropped; pixels are
// taken un-premultiplied.
func FromImage(img image.Image) *Raster {
	// Clone normalises every source model to NRGBA in one pass.
	src := imaging.Clone(img)
	b := src.Bounds()
	r := New(b.Dx(), b.Dy())
	for y := 0; y < r.Height; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+r.Width*4]
		dst := r.Pix[y*r.Width*3 : (y+1)*r.Width*3]
		for x, j := 0, 0; x < r.Width; x, j = x+1, j+3 {
			dst[j] = row[x*4]
			dst[j+1] = row[x*4+1]
			dst[j+2] = row[x*4+2]
		}
	}
	return r
}

// Image returns an opaque NRGBA copy suitable for encoders and display.
func (r *Raster) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i, j := 0, 0; i < len(r.Pix); i, j = i+3, j+4 {
		img.Pix[j] = r.Pix[i]
		img.Pix[j+1] = r.Pix[i+1]
		img.Pix[j+2] = r.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// view adapts a Raster to image.Image without copying.
type view struct{ r *Raster }

func (v view) ColorModel() color.Model { return color.NRGBAModel }
func (v view) Bounds() image.Rectangle { return image.Rect(0, 0, v.r.Width, v.r.Height) }
func (v view) At(x, y int) color.Color {
	red, green, blue := v.r.At(x, y)
	return color.NRGBA{R: red, G: green, B: blue, A: 0xff}
}

// View exposes the raster as a read-only image.Image backed by the same
// samples.
func (r *Raster) View() image.Image { return view{r} }
