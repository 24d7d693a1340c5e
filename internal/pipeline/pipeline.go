package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/AnyUserName/phototune/internal/filter"
	"github.com/AnyUserName/phototune/internal/logging"
	"github.com/AnyUserName/phototune/internal/profile"
	"github.com/AnyUserName/phototune/internal/raster"
	"github.com/sirupsen/logrus"
)

// ErrNoSource is returned when a recomputation is requested without a
// source raster.
var ErrNoSource = errors.New("no source image loaded")

// Config holds the parameters shared by every recomputation.
type Config struct {
	Workers int // goroutines per stage (0 = NumCPU)
	Logger  logrus.FieldLogger
}

// Pipeline runs the fixed brightness → contrast → saturation → gamma chain.
type Pipeline struct {
	cfg  Config
	proc *filter.Processor
	log  logrus.FieldLogger
}

// New creates a configured pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Pipeline{
		cfg:  cfg,
		proc: filter.NewProcessor(cfg.Workers),
		log:  logging.OrDiscard(cfg.Logger),
	}
}

// Workers returns the effective per-stage parallelism.
func (p *Pipeline) Workers() int { return p.cfg.Workers }

// Recompute runs all four stages on src and returns a new raster. src is
// never modified. Parameters are validated before any pixel work; ctx is
// checked between stages and returned as-is when cancelled.
func (p *Pipeline) Recompute(ctx context.Context, src *raster.Raster, params profile.Params) (*raster.Raster, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	start := time.Now()
	cur := src

	// Step 1: Brightness.
	out, err := p.stage(ctx, "brightness", func() (*raster.Raster, error) {
		return p.proc.Brightness(ctx, cur, params.Brightness)
	})
	if err != nil {
		return nil, err
	}
	cur = out

	// Step 2: Contrast around the post-brightness pooled mean.
	out, err = p.stage(ctx, "contrast", func() (*raster.Raster, error) {
		avg, err := p.proc.AverageBrightness(ctx, cur)
		if err != nil {
			return nil, err
		}
		p.log.WithField("avg", avg).Debug("average brightness")
		return p.proc.Contrast(ctx, cur, params.Contrast, avg)
	})
	if err != nil {
		return nil, err
	}
	cur = out

	// Step 3: Saturation.
	out, err = p.stage(ctx, "saturation", func() (*raster.Raster, error) {
		return p.proc.Saturation(ctx, cur, params.Saturation)
	})
	if err != nil {
		return nil, err
	}
	cur = out

	// Step 4: Gamma.
	out, err = p.stage(ctx, "gamma", func() (*raster.Raster, error) {
		return p.proc.Gamma(ctx, cur, params.Gamma)
	})
	if err != nil {
		return nil, err
	}

	// Final check before handing the result out.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"size":    fmt.Sprintf("%dx%d", src.Width, src.Height),
		"params":  params.String(),
		"elapsed": time.Since(start).Round(time.Microsecond),
	}).Debug("recompute done")
	return out, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, run func() (*raster.Raster, error)) (*raster.Raster, error) {
	if err := ctx.Err(); err != nil {
		p.log.WithField("stage", name).Debug("cancelled before stage")
		return nil, err
	}
	start := time.Now()
	out, err := run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	p.log.WithFields(logrus.Fields{
		"stage":   name,
		"elapsed": time.Since(start).Round(time.Microsecond),
	}).Debug("stage done")
	return out, nil
}
