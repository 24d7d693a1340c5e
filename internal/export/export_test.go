package export

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/AnyUserName/phototune/internal/encoder"
	"github.com/AnyUserName/phototune/internal/filter"
	"github.com/AnyUserName/phototune/internal/manifest"
	"github.com/AnyUserName/phototune/internal/profile"
	"github.com/AnyUserName/phototune/internal/raster"
	"github.com/AnyUserName/phototune/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport_WritesAndRecords(t *testing.T) {
	dir := t.TempDir()
	ex, err := New(Config{OutputDir: dir})
	require.NoError(t, err)
	require.NotEmpty(t, ex.Session())

	r := raster.Placeholder()
	params := profile.Params{Brightness: 12, Gamma: 1}
	rec, err := ex.Export(r, Request{Name: "sub/photo", Params: params, Generation: 4})
	require.NoError(t, err)

	assert.Equal(t, "jpeg", rec.Format)
	assert.Equal(t, 100, rec.Quality)
	assert.Equal(t, uint64(4), rec.Generation)
	assert.Regexp(t, `^sub/photo\.200\.100\.[0-9a-f]{8}\.jpg$`, rec.Path)

	loaded, _, err := source.Load(filepath.Join(dir, rec.Path), source.Options{})
	require.NoError(t, err)
	assert.Equal(t, r.Width, loaded.Width)
	assert.InDelta(t, filter.AverageBrightness(r), filter.AverageBrightness(loaded), 2)

	require.NoError(t, ex.Flush())
	m, err := manifest.ReadJSON(ex.ManifestPath())
	require.NoError(t, err)
	require.Len(t, m.Exports, 1)
	assert.Equal(t, params, m.Exports[0].Params)
	assert.Empty(t, manifest.Validate(m, dir))
}

func TestExport_LosslessRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ex, err := New(Config{OutputDir: dir})
	require.NoError(t, err)

	r := raster.Placeholder()
	rec, err := ex.Export(r, Request{Name: "p", Format: "png", Quality: 50})
	require.NoError(t, err)
	assert.Zero(t, rec.Quality)

	loaded, _, err := source.Load(filepath.Join(dir, rec.Path), source.Options{})
	require.NoError(t, err)
	assert.True(t, r.Equal(loaded))
}

func TestExport_AppendsToExistingManifest(t *testing.T) {
	dir := t.TempDir()
	first, err := New(Config{OutputDir: dir})
	require.NoError(t, err)
	_, err = first.Export(raster.Placeholder(), Request{Name: "a", Format: "bmp"})
	require.NoError(t, err)
	require.NoError(t, first.Flush())

	second, err := New(Config{OutputDir: dir})
	require.NoError(t, err)
	_, err = second.Export(raster.Placeholder(), Request{Name: "b", Format: "tiff"})
	require.NoError(t, err)
	require.NoError(t, second.Flush())

	m := second.Manifest()
	require.Len(t, m.Exports, 2)
	assert.Equal(t, second.Session(), m.Session)
	assert.NotEqual(t, m.Exports[0].ID, m.Exports[1].ID)
}

func TestExport_SameResultTwiceStaysValid(t *testing.T) {
	dir := t.TempDir()
	ex, err := New(Config{OutputDir: dir})
	require.NoError(t, err)

	r := raster.Placeholder()
	first, err := ex.Export(r, Request{Name: "photo", Format: "png", Generation: 1})
	require.NoError(t, err)
	second, err := ex.Export(r, Request{Name: "photo", Format: "png", Generation: 2})
	require.NoError(t, err)
	require.Equal(t, first.Path, second.Path)
	require.NoError(t, ex.Flush())

	m, err := manifest.ReadJSON(ex.ManifestPath())
	require.NoError(t, err)
	require.Len(t, m.Exports, 1)
	assert.Equal(t, uint64(2), m.Exports[0].Generation)
	assert.Equal(t, second.ID, m.Exports[0].ID)
	assert.Empty(t, manifest.Validate(m, dir))
}

func TestExport_Errors(t *testing.T) {
	dir := t.TempDir()
	ex, err := New(Config{OutputDir: dir})
	require.NoError(t, err)

	_, err = ex.Export(raster.New(0, 0), Request{})
	assert.ErrorIs(t, err, ErrEmptyRaster)

	_, err = ex.Export(raster.Placeholder(), Request{Format: "avif"})
	assert.ErrorIs(t, err, encoder.ErrUnknownFormat)

	_, err = ex.Export(raster.Placeholder(), Request{Name: "../escape"})
	assert.Error(t, err)

	_, err = New(Config{})
	assert.Error(t, err)
}

func TestExport_WriteFailureIsReported(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	dir := t.TempDir()
	ex, err := New(Config{OutputDir: dir})
	require.NoError(t, err)
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	_, err = ex.Export(raster.Placeholder(), Request{Name: "x", Format: "png"})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Empty(t, ex.Manifest().Exports)
}

func TestExport_Concurrent(t *testing.T) {
	ex, err := New(Config{OutputDir: t.TempDir()})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(b int) {
			defer wg.Done()
			r := raster.Placeholder()
			r.Set(0, 0, uint8(b), 0, 0)
			_, err := ex.Export(r, Request{Name: "c", Format: "png"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Len(t, ex.Manifest().Exports, 8)
	require.NoError(t, ex.Flush())
}
