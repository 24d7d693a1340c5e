package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/AnyUserName/phototune/internal/export"
	"github.com/AnyUserName/phototune/internal/hasher"
	"github.com/AnyUserName/phototune/internal/logging"
	"github.com/AnyUserName/phototune/internal/manifest"
	"github.com/AnyUserName/phototune/internal/profile"
	"github.com/AnyUserName/phototune/internal/source"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchJobs is how many images Batch processes at once when
// BatchConfig.Jobs is not set. Every stage already fans out over the
// pipeline's workers and each image in flight holds several full-size
// rasters.
const DefaultBatchJobs = 2

// BatchConfig holds the parameters for adjusting a directory of images.
type BatchConfig struct {
	InputDir string
	Params   profile.Params
	Jobs     int // images processed concurrently (0 = DefaultBatchJobs)
	Load     source.Options
	Exporter *export.Exporter
	Format   string
	Quality  int
	Logger   logrus.FieldLogger
}

func (c BatchConfig) jobs() int {
	if c.Jobs <= 0 {
		return DefaultBatchJobs
	}
	return c.Jobs
}

// BatchResult summarises a batch run.
type BatchResult struct {
	Exports []manifest.Export
	Errors  []error // one per failed image
}

// batchItem holds the result of processing a single source image.
type batchItem struct {
	export manifest.Export
	err    error
	done   bool
}

// Batch applies one parameter set to every image under cfg.InputDir and
// exports the results. The exporter's own directory is never scanned.
// Individual failures are collected; the run fails only if nothing could
// be processed, the parameters are invalid or ctx is cancelled. Whatever
// was exported is flushed to the manifest before Batch returns, and a
// cancelled run still reports the exports that finished.
func (p *Pipeline) Batch(ctx context.Context, cfg BatchConfig) (*BatchResult, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if cfg.Exporter == nil {
		return nil, errors.New("batch: no exporter configured")
	}
	log := logging.OrDiscard(cfg.Logger)

	// Step 1: Scan for images.
	sources, err := source.Scan(cfg.InputDir, cfg.Exporter.Dir())
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images found in %s", cfg.InputDir)
	}
	log.WithFields(logrus.Fields{"count": len(sources), "jobs": cfg.jobs()}).Info("found images")

	// Step 2: Process images in parallel. Goroutines never return an
	// error so one broken image does not cancel the others.
	items := make([]batchItem, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.jobs())
	for i, src := range sources {
		i, src := i, src
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			log.WithField("key", src.Key).Debug("processing")
			items[i] = p.batchOne(gctx, src, cfg)
			if items[i].err == nil {
				log.WithFields(logrus.Fields{"key": src.Key, "path": items[i].export.Path}).Debug("done")
			}
			return nil
		})
	}
	_ = g.Wait()

	// Step 3: Collect results.
	res := &BatchResult{}
	for _, it := range items {
		switch {
		case it.done:
			res.Exports = append(res.Exports, it.export)
		case it.err != nil && !errors.Is(it.err, context.Canceled):
			res.Errors = append(res.Errors, it.err)
			log.WithError(it.err).Error("image failed")
		}
	}
	if len(res.Exports) > 0 {
		if err := cfg.Exporter.Flush(); err != nil {
			return res, err
		}
	}

	if err := ctx.Err(); err != nil {
		log.Warnf("cancelled after %d of %d images", len(res.Exports), len(sources))
		return res, err
	}
	if len(res.Errors) == len(sources) {
		return res, fmt.Errorf("all %d images failed to process: %w", len(sources), errors.Join(res.Errors...))
	}
	if len(res.Errors) > 0 {
		log.Warnf("%d of %d images had errors", len(res.Errors), len(sources))
	}
	return res, nil
}

// batchOne handles a single source image: decode, adjust, export.
func (p *Pipeline) batchOne(ctx context.Context, s source.Source, cfg BatchConfig) batchItem {
	src, info, err := source.Load(s.AbsPath, cfg.Load)
	if err != nil {
		return batchItem{err: fmt.Errorf("%s: %w", s.RelPath, err)}
	}

	out, err := p.Recompute(ctx, src, cfg.Params)
	if err != nil {
		return batchItem{err: fmt.Errorf("%s: %w", s.RelPath, err)}
	}

	rec, err := cfg.Exporter.Export(out, export.Request{
		Name:    s.Key,
		Format:  cfg.Format,
		Quality: cfg.Quality,
		Params:  cfg.Params,
		Source: manifest.SourceInfo{
			Path:   s.RelPath,
			Width:  info.Width,
			Height: info.Height,
			Hash:   hasher.RasterHash(src, 16),
		},
	})
	if err != nil {
		return batchItem{err: fmt.Errorf("%s: %w", s.RelPath, err)}
	}
	return batchItem{export: rec, done: true}
}
