package filter

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minParallelSamples is the smallest buffer worth splitting across
// goroutines; below it the fan-out costs more than the loop.
const minParallelSamples = 64 * 1024

// bandsPerWorker over-splits the work so a slow core does not hold up the
// whole stage.
const bandsPerWorker = 4

// Processor runs filters with intra-stage parallelism. The zero value uses
// runtime.NumCPU workers.
type Processor struct {
	Workers int
}

// NewProcessor returns a processor bounded to workers goroutines
// (0 = NumCPU).
func NewProcessor(workers int) *Processor {
	return &Processor{Workers: workers}
}

func (p *Processor) workers() int {
	if p == nil || p.Workers <= 0 {
		return runtime.NumCPU()
	}
	return p.Workers
}

// forEachBand calls fn over disjoint [lo, hi) slices of [0, n), rounded to
// multiples of align. Bands start only while ctx is live.
func (p *Processor) forEachBand(ctx context.Context, n, align int, fn func(lo, hi int)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w := p.workers()
	if w == 1 || n < minParallelSamples {
		fn(0, n)
		return nil
	}

	chunk := (n + w*bandsPerWorker - 1) / (w * bandsPerWorker)
	chunk = (chunk + align - 1) / align * align

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w)
	for lo := 0; lo < n; lo += chunk {
		lo := lo
		hi := min(lo+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(lo, hi)
			return nil
		})
	}
	return g.Wait()
}
