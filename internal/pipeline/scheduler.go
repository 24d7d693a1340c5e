package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AnyUserName/phototune/internal/logging"
	"github.com/AnyUserName/phototune/internal/profile"
	"github.com/AnyUserName/phototune/internal/raster"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is the quiet period after a control change before a
// recomputation starts.
const DefaultDebounce = 40 * time.Millisecond

// Frame is one delivered result.
type Frame struct {
	Generation uint64
	Params     profile.Params
	Raster     *raster.Raster
}

// Sink receives finished frames. Display is only called from the goroutine
// running Scheduler.Run and may be called any number of times; each frame
// replaces the previous one.
type Sink interface {
	Display(f *Frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(f *Frame)

func (fn SinkFunc) Display(f *Frame) { fn(f) }

// SchedulerConfig configures NewScheduler.
type SchedulerConfig struct {
	Debounce time.Duration // 0 = DefaultDebounce, negative = start immediately
	Logger   logrus.FieldLogger
	// OnError receives pipeline failures of the current generation on the
	// Run goroutine. Cancellations are never reported.
	OnError func(gen uint64, err error)
}

// Stats counts scheduler outcomes since creation.
type Stats struct {
	Submitted  uint64 // generations issued
	Started    uint64 // runs that reached the pipeline
	Superseded uint64 // generations replaced before finishing
	Cancelled  uint64 // runs that stopped on cancellation
	Discarded  uint64 // runs that finished but were stale
	Delivered  uint64 // frames handed to the sink
	Failed     uint64 // runs that returned an error
}

type outcome struct {
	gen   uint64
	frame *Frame
	err   error
}

// Scheduler turns a stream of control changes into recomputations and
// guarantees only the newest generation's result reaches the sink.
//
// Every Submit or SetSource issues a new generation and cancels the
// previous one. Finished runs are committed on the Run goroutine only if
// their generation is still the newest, and the generation is checked once
// more right before the sink is called. A Submit that arrives while Display
// is running cannot recall that frame; the next commit replaces it.
type Scheduler struct {
	pipe *Pipeline
	sink Sink
	cfg  SchedulerConfig
	log  logrus.FieldLogger

	base context.Context
	stop context.CancelFunc

	mu      sync.Mutex
	source  *raster.Raster
	params  profile.Params
	gen     uint64
	active  uint64 // generation scheduled and not yet finished, 0 if none
	cancel  context.CancelFunc
	timer   *time.Timer
	latest  *Frame  // last committed frame
	shown   *Frame  // last frame the sink has returned from
	failed  outcome // last error of a current generation
	changed chan struct{}

	outcomes chan outcome

	submitted, started, superseded atomic.Uint64
	cancelled, discarded           atomic.Uint64
	delivered, failures            atomic.Uint64
}

// NewScheduler creates a scheduler over p delivering to sink. The initial
// parameters are the identity set.
func NewScheduler(p *Pipeline, sink Sink, cfg SchedulerConfig) *Scheduler {
	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultDebounce
	}
	base, stop := context.WithCancel(context.Background())
	return &Scheduler{
		pipe:     p,
		sink:     sink,
		cfg:      cfg,
		log:      logging.OrDiscard(cfg.Logger),
		base:     base,
		stop:     stop,
		params:   profile.Default(),
		changed:  make(chan struct{}),
		outcomes: make(chan outcome),
	}
}

// SetSource replaces the source raster and recomputes it with the current
// parameters. The raster must not be modified afterwards.
func (s *Scheduler) SetSource(src *raster.Raster) (uint64, error) {
	if src == nil {
		return 0, ErrNoSource
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
	return s.issueLocked(), nil
}

// Submit records a control change. Invalid parameters are rejected before
// any generation is issued. Without a source the parameters are kept and
// ErrNoSource is returned.
func (s *Scheduler) Submit(params profile.Params) (uint64, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = params
	if s.source == nil {
		return 0, ErrNoSource
	}
	return s.issueLocked(), nil
}

// Params returns the most recently accepted parameter set.
func (s *Scheduler) Params() profile.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Generation returns the newest issued generation.
func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Latest returns the last delivered frame, or nil.
func (s *Scheduler) Latest() *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Stats returns a snapshot of the outcome counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Submitted:  s.submitted.Load(),
		Started:    s.started.Load(),
		Superseded: s.superseded.Load(),
		Cancelled:  s.cancelled.Load(),
		Discarded:  s.discarded.Load(),
		Delivered:  s.delivered.Load(),
		Failed:     s.failures.Load(),
	}
}

// issueLocked starts a new generation and revokes the previous one.
func (s *Scheduler) issueLocked() uint64 {
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.active != 0 {
		s.superseded.Add(1)
		s.log.WithField("generation", s.active).Debug("superseded")
	}

	s.gen++
	gen := s.gen
	s.active = gen
	s.submitted.Add(1)

	ctx, cancel := context.WithCancel(s.base)
	s.cancel = cancel
	src, params := s.source, s.params

	run := func() { s.run(ctx, gen, src, params) }
	if s.cfg.Debounce < 0 {
		s.timer = nil
		go run()
	} else {
		s.timer = time.AfterFunc(s.cfg.Debounce, run)
	}
	return gen
}

func (s *Scheduler) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

func (s *Scheduler) run(ctx context.Context, gen uint64, src *raster.Raster, params profile.Params) {
	defer func() {
		s.mu.Lock()
		if s.active == gen {
			s.active = 0
		}
		s.mu.Unlock()
	}()

	if ctx.Err() != nil {
		s.cancelled.Add(1)
		return
	}
	s.started.Add(1)
	log := s.log.WithField("generation", gen)
	log.Debug("recompute start")

	out, err := s.pipe.Recompute(ctx, src, params)
	switch {
	case errors.Is(err, context.Canceled):
		s.cancelled.Add(1)
		log.Debug("recompute cancelled")
		return
	case !s.isCurrent(gen):
		s.discarded.Add(1)
		log.Debug("stale result dropped")
		return
	}

	o := outcome{gen: gen, err: err}
	if err == nil {
		o.frame = &Frame{Generation: gen, Params: params, Raster: out}
	}
	select {
	case s.outcomes <- o:
	case <-ctx.Done():
		s.cancelled.Add(1)
	}
}

// Run commits and displays results until ctx is done or Close is called.
// It is the only goroutine that calls the sink.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.base.Done():
			return nil
		case o := <-s.outcomes:
			s.commit(o)
		}
	}
}

func (s *Scheduler) commit(o outcome) {
	s.mu.Lock()
	if o.gen != s.gen {
		s.mu.Unlock()
		s.discarded.Add(1)
		s.log.WithField("generation", o.gen).Debug("stale result dropped at commit")
		return
	}
	if o.err != nil {
		s.failed = o
		s.notifyLocked()
		s.mu.Unlock()

		s.failures.Add(1)
		s.log.WithField("generation", o.gen).WithError(o.err).Warn("recompute failed")
		if s.cfg.OnError != nil {
			s.cfg.OnError(o.gen, o.err)
		}
		return
	}
	s.latest = o.frame
	s.mu.Unlock()

	s.display(o.frame)
}

// display hands f to the sink unless a newer generation was issued after
// commit accepted it. The sink runs without the lock held, so a Submit
// landing during Display itself is only seen by the next commit.
func (s *Scheduler) display(f *Frame) {
	if !s.isCurrent(f.Generation) {
		s.discarded.Add(1)
		s.log.WithField("generation", f.Generation).Debug("stale result dropped before display")
		return
	}
	s.delivered.Add(1)
	s.log.WithField("generation", f.Generation).Debug("delivered")
	if s.sink != nil {
		s.sink.Display(f)
	}

	s.mu.Lock()
	s.shown = f
	s.notifyLocked()
	s.mu.Unlock()
}

// notifyLocked wakes every Settle waiter.
func (s *Scheduler) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Settle blocks until the newest generation has been displayed and returns
// its frame, or its error. Run must be active for Settle to make progress.
func (s *Scheduler) Settle(ctx context.Context) (*Frame, error) {
	for {
		s.mu.Lock()
		gen, shown, failed, changed := s.gen, s.shown, s.failed, s.changed
		s.mu.Unlock()

		switch {
		case gen == 0:
			return nil, ErrNoSource
		case shown != nil && shown.Generation == gen:
			return shown, nil
		case failed.err != nil && failed.gen == gen:
			return nil, failed.err
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close cancels pending work and stops Run.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.stop()
}
