package encoder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFormat is returned for format names no available encoder
// handles.
var ErrUnknownFormat = errors.New("unknown export format")

// order is the listing and fallback priority.
var order = []string{"jpeg", "png", "webp", "tiff", "bmp"}

var aliases = map[string]string{
	"jpg": "jpeg",
	"tif": "tiff",
}

// Registry holds the encoders usable on this machine.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry probes every built-in encoder and keeps the available ones.
func NewRegistry() *Registry {
	r := &Registry{encoders: make(map[string]Encoder)}
	for _, enc := range []Encoder{
		&JPEGEncoder{},
		&PNGEncoder{},
		&WebPEncoder{},
		&TIFFEncoder{},
		&BMPEncoder{},
	} {
		r.Register(enc)
	}
	return r
}

// Register adds enc if it is available, replacing any encoder for the
// same format.
func (r *Registry) Register(enc Encoder) {
	if enc.Available() {
		r.encoders[enc.Format()] = enc
	}
}

// Canonical normalises a user-supplied format name.
func Canonical(format string) string {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if a, ok := aliases[f]; ok {
		return a
	}
	return f
}

// Get returns the encoder for format (aliases accepted) or nil.
func (r *Registry) Get(format string) Encoder {
	return r.encoders[Canonical(format)]
}

// Lookup is Get with an error naming the available formats.
func (r *Registry) Lookup(format string) (Encoder, error) {
	if enc := r.Get(format); enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownFormat, format, strings.Join(r.Available(), ", "))
}

// Available returns the registered format names in priority order.
func (r *Registry) Available() []string {
	var result []string
	for _, f := range order {
		if _, ok := r.encoders[f]; ok {
			result = append(result, f)
		}
	}
	return result
}

func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	return fmt.Sprintf("encoders: %s", strings.Join(avail, ", "))
}
