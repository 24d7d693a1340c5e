package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/AnyUserName/phototune/internal/export"
	"github.com/AnyUserName/phototune/internal/manifest"
	"github.com/AnyUserName/phototune/internal/profile"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestBatch_ExportsEveryImage(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"), 8, 4, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	writePNG(t, filepath.Join(in, "sub", "b.png"), 6, 6, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	require.NoError(t, os.WriteFile(filepath.Join(in, "broken.png"), []byte("not a png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("skip me"), 0o644))

	exp, err := export.New(export.Config{OutputDir: t.TempDir()})
	require.NoError(t, err)

	params := profile.Params{Brightness: 20, Gamma: 1}
	res, err := New(Config{Workers: 2}).Batch(context.Background(), BatchConfig{
		InputDir: in,
		Params:   params,
		Exporter: exp,
		Format:   "png",
	})
	require.NoError(t, err)
	require.Len(t, res.Exports, 2)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "broken.png")

	// Results follow the sorted scan order.
	assert.Equal(t, "a.png", res.Exports[0].Source.Path)
	assert.Equal(t, "sub/b.png", res.Exports[1].Source.Path)
	for _, e := range res.Exports {
		assert.Equal(t, params, e.Params)
		assert.Equal(t, "png", e.Format)
	}
	assert.Len(t, exp.Manifest().Exports, 2)
}

func TestBatch_Failures(t *testing.T) {
	exp, err := export.New(export.Config{OutputDir: t.TempDir()})
	require.NoError(t, err)
	p := New(Config{})

	// Nothing to do.
	_, err = p.Batch(context.Background(), BatchConfig{InputDir: t.TempDir(), Params: profile.Default(), Exporter: exp})
	assert.Error(t, err)

	// Every image broken.
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "x.jpg"), []byte("junk"), 0o644))
	res, err := p.Batch(context.Background(), BatchConfig{InputDir: in, Params: profile.Default(), Exporter: exp})
	assert.Error(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Errors, 1)

	// Invalid parameters are rejected before scanning.
	_, err = p.Batch(context.Background(), BatchConfig{InputDir: in, Params: profile.Params{Gamma: -1}, Exporter: exp})
	assert.ErrorContains(t, err, "validate")

	// Cancelled before start.
	writePNG(t, filepath.Join(in, "ok.png"), 2, 2, color.NRGBA{A: 255})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Batch(ctx, BatchConfig{InputDir: in, Params: profile.Default(), Exporter: exp})
	assert.ErrorIs(t, err, context.Canceled)
}

// cancelOnExport cancels a batch as soon as the first file is written.
type cancelOnExport struct{ cancel context.CancelFunc }

func (h cancelOnExport) Levels() []logrus.Level { return logrus.AllLevels }

func (h cancelOnExport) Fire(e *logrus.Entry) error {
	if e.Message == "exported" {
		h.cancel()
	}
	return nil
}

func TestBatch_CancelledRunFlushesFinishedExports(t *testing.T) {
	in := t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png"} {
		writePNG(t, filepath.Join(in, name), 4, 4, color.NRGBA{R: 50, G: 60, B: 70, A: 255})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.AddHook(cancelOnExport{cancel: cancel})

	out := t.TempDir()
	exp, err := export.New(export.Config{OutputDir: out, Logger: log})
	require.NoError(t, err)

	res, err := New(Config{Workers: 1}).Batch(ctx, BatchConfig{
		InputDir: in,
		Params:   profile.Params{Brightness: 5, Gamma: 1},
		Jobs:     1,
		Exporter: exp,
		Format:   "png",
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	require.Len(t, res.Exports, 1)
	assert.Empty(t, res.Errors)

	// The finished export reached the manifest on disk.
	m, err := manifest.ReadJSON(exp.ManifestPath())
	require.NoError(t, err)
	require.Len(t, m.Exports, 1)
	assert.Equal(t, res.Exports[0].Path, m.Exports[0].Path)
	assert.Empty(t, manifest.Validate(m, out))
}

func TestBatch_SkipsOwnOutputDir(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"), 4, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	exp, err := export.New(export.Config{OutputDir: filepath.Join(in, "phototune_out")})
	require.NoError(t, err)

	p := New(Config{})
	cfg := BatchConfig{InputDir: in, Params: profile.Default(), Exporter: exp, Format: "png"}
	for run := 0; run < 2; run++ {
		res, err := p.Batch(context.Background(), cfg)
		require.NoError(t, err)
		require.Len(t, res.Exports, 1, "run %d", run)
		assert.Equal(t, "a.png", res.Exports[0].Source.Path)
	}
}

func TestBatchConfig_DefaultJobs(t *testing.T) {
	assert.Equal(t, DefaultBatchJobs, BatchConfig{}.jobs())
	assert.Equal(t, 5, BatchConfig{Jobs: 5}.jobs())
}
