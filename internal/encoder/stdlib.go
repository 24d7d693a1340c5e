package encoder

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
)

// JPEGEncoder writes baseline 4:2:0 JPEG. It is the default export format.
type JPEGEncoder struct{}

func (e *JPEGEncoder) Format() string    { return "jpeg" }
func (e *JPEGEncoder) Extension() string { return "jpg" }
func (e *JPEGEncoder) Available() bool   { return true }
func (e *JPEGEncoder) Lossy() bool       { return true }

func (e *JPEGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	// Adjusted photos rarely compress below one byte per pixel at high quality.
	buf.Grow(img.Bounds().Dx() * img.Bounds().Dy())
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: normQuality(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PNGEncoder writes lossless PNG. Exports use the smallest output; Fast
// trades size for speed, which suits a preview rewritten on every edit.
type PNGEncoder struct {
	Fast bool
}

func (e *PNGEncoder) Format() string    { return "png" }
func (e *PNGEncoder) Extension() string { return "png" }
func (e *PNGEncoder) Available() bool   { return true }
func (e *PNGEncoder) Lossy() bool       { return false }

func (e *PNGEncoder) Encode(img image.Image, _ int) ([]byte, error) {
	level := png.BestCompression
	if e.Fast {
		level = png.BestSpeed
	}
	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
