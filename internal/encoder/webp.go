package encoder

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
)

// WebPEncoder shells out to cwebp, which keeps the build free of cgo.
// It is only registered when cwebp is on PATH
// (brew install webp / apt install webp).
type WebPEncoder struct {
	once sync.Once
	path string
}

func (e *WebPEncoder) Format() string    { return "webp" }
func (e *WebPEncoder) Extension() string { return "webp" }
func (e *WebPEncoder) Lossy() bool       { return true }

func (e *WebPEncoder) Available() bool {
	e.once.Do(func() {
		if p, err := exec.LookPath("cwebp"); err == nil {
			e.path = p
		}
	})
	return e.path != ""
}

func (e *WebPEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if !e.Available() {
		return nil, fmt.Errorf("cwebp not found in PATH")
	}

	dir, err := os.MkdirTemp("", "phototune-webp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "src.png")
	dstPath := filepath.Join(dir, "dst.webp")

	f, err := os.Create(srcPath)
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return nil, fmt.Errorf("encode temp png: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp: %w", err)
	}

	q := normQuality(quality)
	args := []string{"-q", strconv.Itoa(q), "-m", "6", "-mt", "-quiet"}
	if q == 100 {
		args = append(args, "-lossless")
	}
	args = append(args, srcPath, "-o", dstPath)

	if out, err := exec.Command(e.path, args...).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("cwebp: %w: %s", err, string(out))
	}
	return os.ReadFile(dstPath)
}
