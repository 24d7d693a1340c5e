package cmd

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/AnyUserName/phototune/internal/hasher"
	"github.com/AnyUserName/phototune/internal/manifest"
	"github.com/AnyUserName/phototune/internal/profile"
	"github.com/AnyUserName/phototune/internal/raster"
	"github.com/AnyUserName/phototune/internal/source"
	"github.com/spf13/cobra"
)

// adjustFlags are the control flags shared by apply, batch and tune.
type adjustFlags struct {
	preset     string
	brightness int
	contrast   float64
	saturation float64
	gamma      float64
}

func (a *adjustFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&a.preset, "preset", "p", "neutral", "starting preset (see `phototune presets`)")
	f.IntVarP(&a.brightness, "brightness", "b", 0, "brightness offset, -255..255")
	f.Float64VarP(&a.contrast, "contrast", "c", 0, "contrast, strictly between -255 and 255")
	f.Float64VarP(&a.saturation, "saturation", "s", 0, "saturation, strictly between -255 and 255")
	f.Float64VarP(&a.gamma, "gamma", "g", 1, "gamma exponent, > 0")
}

// resolve starts from the preset and overrides every flag given explicitly.
func (a *adjustFlags) resolve(cmd *cobra.Command) (profile.Params, error) {
	prof, err := profile.Get(a.preset)
	if err != nil {
		return profile.Params{}, err
	}
	p := prof.Params
	f := cmd.Flags()
	if f.Changed("brightness") {
		p.Brightness = a.brightness
	}
	if f.Changed("contrast") {
		p.Contrast = a.contrast
	}
	if f.Changed("saturation") {
		p.Saturation = a.saturation
	}
	if f.Changed("gamma") {
		p.Gamma = a.gamma
	}
	if err := p.Validate(); err != nil {
		return profile.Params{}, err
	}
	return p, nil
}

// placeholderName is the export name used for the generated source.
const placeholderName = "placeholder"

// loadSource reads path, or generates the placeholder when path is empty.
// It returns the raster, its manifest description and an export name.
func loadSource(path string, opts source.Options) (*raster.Raster, manifest.SourceInfo, string, error) {
	if path == "" {
		r := raster.Placeholder()
		logger.Debug("no image given, using the generated placeholder")
		return r, manifest.SourceInfo{
			Width:  r.Width,
			Height: r.Height,
			Hash:   hasher.RasterHash(r, 16),
		}, placeholderName, nil
	}

	r, info, err := source.Load(path, opts)
	if err != nil {
		return nil, manifest.SourceInfo{}, "", err
	}
	logger.WithField("path", path).Debugf("loaded %dx%d %s (%s)",
		info.Width, info.Height, info.Format, formatBytes(info.Size))
	return r, manifest.SourceInfo{
		Path:   filepath.ToSlash(path),
		Width:  info.Width,
		Height: info.Height,
		Hash:   hasher.RasterHash(r, 16),
	}, exportName(path), nil
}

// exportName derives an export base name from a file path.
func exportName(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(base, path.Ext(base))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
