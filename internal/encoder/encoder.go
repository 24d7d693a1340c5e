package encoder

import (
	"image"
)

// DefaultQuality is used by lossy encoders when no quality is requested.
// Exports are final output, so nothing is thrown away by default.
const DefaultQuality = 100

// Encoder turns a finished image into file bytes.
type Encoder interface {
	// Format returns the canonical format name (jpeg, png, webp, tiff, bmp).
	Format() string

	// Encode serialises img. quality (1-100) is ignored by lossless formats;
	// out-of-range values select DefaultQuality.
	Encode(img image.Image, quality int) ([]byte, error)

	// Available reports whether the encoder can run on this machine.
	Available() bool

	// Extension returns the file extension without dot.
	Extension() string

	// Lossy reports whether quality affects the output.
	Lossy() bool
}

func normQuality(q int) int {
	if q <= 0 || q > 100 {
		return DefaultQuality
	}
	return q
}
