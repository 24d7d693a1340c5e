// Package filter implements the four colour adjustments applied by the
// pipeline: brightness, contrast, saturation and gamma.
//
// Every filter is pure: it reads its input raster and returns a freshly
// allocated one. Channel arithmetic is done in float64, rounded to nearest
// (half away from zero) and clamped to [0, 255] after every stage.
package filter

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/AnyUserName/phototune/internal/raster"
)

var std = &Processor{}

// Brightness adds b to every channel.
func Brightness(src *raster.Raster, b int) (*raster.Raster, error) {
	return std.Brightness(context.Background(), src, b)
}

// AverageBrightness returns the floor of the mean of all channel samples
// pooled together.
func AverageBrightness(src *raster.Raster) int {
	avg, _ := std.AverageBrightness(context.Background(), src)
	return avg
}

// Contrast stretches every channel away from avg by (255+c)/(255-c).
func Contrast(src *raster.Raster, c float64, avg int) (*raster.Raster, error) {
	return std.Contrast(context.Background(), src, c, avg)
}

// Saturation stretches every channel away from its own pixel's mean by
// (255+s)/(255-s).
func Saturation(src *raster.Raster, s float64) (*raster.Raster, error) {
	return std.Saturation(context.Background(), src, s)
}

// Gamma maps every channel through 255*(v/255)^g.
func Gamma(src *raster.Raster, g float64) (*raster.Raster, error) {
	return std.Gamma(context.Background(), src, g)
}

// Brightness is the band-parallel form of Brightness. It returns the
// *ParameterError from CheckBrightness or ctx.Err() if ctx ends first.
func (p *Processor) Brightness(ctx context.Context, src *raster.Raster, b int) (*raster.Raster, error) {
	if err := CheckBrightness(b); err != nil {
		return nil, err
	}
	var lut [256]uint8
	for v := range lut {
		lut[v] = clamp(v + b)
	}
	return p.mapLUT(ctx, src, &lut)
}

// AverageBrightness sums the samples band by band and returns the floored
// pooled mean. An empty raster averages to 0.
func (p *Processor) AverageBrightness(ctx context.Context, src *raster.Raster) (int, error) {
	if len(src.Pix) == 0 {
		return 0, nil
	}
	var total atomic.Int64
	err := p.forEachBand(ctx, len(src.Pix), 1, func(lo, hi int) {
		var sum int64
		for _, v := range src.Pix[lo:hi] {
			sum += int64(v)
		}
		total.Add(sum)
	})
	if err != nil {
		return 0, err
	}
	// len(Pix) == W*H*3 and the sum is non-negative, so this is floor.
	return int(total.Load() / int64(len(src.Pix))), nil
}

// Contrast pivots every sample around avg, normally the value returned by
// AverageBrightness for the same src.
func (p *Processor) Contrast(ctx context.Context, src *raster.Raster, c float64, avg int) (*raster.Raster, error) {
	if err := CheckContrast(c); err != nil {
		return nil, err
	}
	alpha := factor(c)
	mean := float64(avg)
	var lut [256]uint8
	for v := range lut {
		lut[v] = clampRound(alpha*(float64(v)-mean) + mean)
	}
	return p.mapLUT(ctx, src, &lut)
}

// Saturation works per pixel, so bands are aligned to whole pixels.
func (p *Processor) Saturation(ctx context.Context, src *raster.Raster, s float64) (*raster.Raster, error) {
	if err := CheckSaturation(s); err != nil {
		return nil, err
	}
	alpha := factor(s)
	dst := raster.New(src.Width, src.Height)
	err := p.forEachBand(ctx, len(src.Pix), 3, func(lo, hi int) {
		in, out := src.Pix[lo:hi], dst.Pix[lo:hi]
		for i := 0; i+2 < len(in); i += 3 {
			r, g, b := float64(in[i]), float64(in[i+1]), float64(in[i+2])
			mean := (r + g + b) / 3
			out[i] = clampRound(alpha*(r-mean) + mean)
			out[i+1] = clampRound(alpha*(g-mean) + mean)
			out[i+2] = clampRound(alpha*(b-mean) + mean)
		}
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// Gamma builds the power-curve table once and maps every sample through it.
func (p *Processor) Gamma(ctx context.Context, src *raster.Raster, g float64) (*raster.Raster, error) {
	if err := CheckGamma(g); err != nil {
		return nil, err
	}
	var lut [256]uint8
	for v := range lut {
		lut[v] = clampRound(255 * math.Pow(float64(v)/255, g))
	}
	return p.mapLUT(ctx, src, &lut)
}

// mapLUT applies a per-sample lookup table into a new raster.
func (p *Processor) mapLUT(ctx context.Context, src *raster.Raster, lut *[256]uint8) (*raster.Raster, error) {
	dst := raster.New(src.Width, src.Height)
	err := p.forEachBand(ctx, len(src.Pix), 1, func(lo, hi int) {
		out := dst.Pix[lo:hi]
		for i, v := range src.Pix[lo:hi] {
			out[i] = lut[v]
		}
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

func clamp(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

func clampRound(f float64) uint8 {
	f = math.Round(f)
	switch {
	case f < 0:
		return 0
	case f > 255:
		return 255
	}
	return uint8(f)
}
