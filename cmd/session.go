package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AnyUserName/phototune/internal/encoder"
	"github.com/AnyUserName/phototune/internal/export"
	"github.com/AnyUserName/phototune/internal/manifest"
	"github.com/AnyUserName/phototune/internal/pipeline"
	"github.com/AnyUserName/phototune/internal/profile"
	"github.com/AnyUserName/phototune/internal/source"
	"github.com/sirupsen/logrus"
)

// errQuit ends a tune session.
var errQuit = errors.New("quit")

// session applies control-change lines to a scheduler. It is driven from a
// single goroutine.
type session struct {
	sched    *pipeline.Scheduler
	exporter *export.Exporter
	out      io.Writer
	load     source.Options
	format   string
	quality  int
	timeout  time.Duration // bound for waiting on a result in save

	info manifest.SourceInfo
	name string
}

// open loads path (or the placeholder) and hands it to the scheduler.
func (s *session) open(path string) error {
	r, info, name, err := loadSource(path, s.load)
	if err != nil {
		return err
	}
	gen, err := s.sched.SetSource(r)
	if err != nil {
		return err
	}
	s.info, s.name = info, name
	fmt.Fprintf(s.out, "loaded %s %dx%d (generation %d)\n", name, r.Width, r.Height, gen)
	return nil
}

// handle executes one line. Problems with the line itself are returned and
// leave the session usable; errQuit ends it.
func (s *session) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	verb, arg := splitCommand(line)

	switch verb {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		s.help()
		return nil
	case "show", "status":
		s.status()
		return nil
	case "reset":
		return s.submit(profile.Default())
	case "preset":
		prof, err := profile.Get(arg)
		if err != nil {
			return err
		}
		return s.submit(prof.Params)
	case "load", "open":
		return s.open(arg)
	case "save", "export":
		return s.save(ctx, arg)
	}

	// Anything else is a control change: "brightness=20" or "gamma 1.4".
	if arg == "" {
		return fmt.Errorf("unknown command %q (try help)", verb)
	}
	params, err := s.sched.Params().Apply(verb, arg)
	if err != nil {
		return err
	}
	return s.submit(params)
}

func (s *session) submit(params profile.Params) error {
	gen, err := s.sched.Submit(params)
	if errors.Is(err, pipeline.ErrNoSource) {
		fmt.Fprintln(s.out, "no image loaded; values kept for the next load")
		return nil
	}
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"generation": gen, "params": params.String()}).Debug("submitted")
	return nil
}

// save exports the frame of the newest generation once it has been shown.
func (s *session) save(ctx context.Context, format string) error {
	if format == "" {
		format = s.format
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	f, err := s.sched.Settle(ctx)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	rec, err := s.exporter.Export(f.Raster, export.Request{
		Name:       s.name,
		Format:     format,
		Quality:    s.quality,
		Params:     f.Params,
		Generation: f.Generation,
		Source:     s.info,
	})
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := s.exporter.Flush(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	fmt.Fprintf(s.out, "saved %s (%s, generation %d)\n", rec.Path, formatBytes(rec.Size), rec.Generation)
	return nil
}

func (s *session) status() {
	fmt.Fprintf(s.out, "%s\n", s.sched.Params())
	fmt.Fprintf(s.out, "generation %d", s.sched.Generation())
	if f := s.sched.Latest(); f != nil {
		fmt.Fprintf(s.out, ", showing %d", f.Generation)
	}
	fmt.Fprintln(s.out)
	st := s.sched.Stats()
	fmt.Fprintf(s.out, "runs: %d started, %d superseded, %d cancelled, %d discarded, %d delivered, %d failed\n",
		st.Started, st.Superseded, st.Cancelled, st.Discarded, st.Delivered, st.Failed)
}

func (s *session) help() {
	fmt.Fprint(s.out, `  brightness=N | contrast=X | saturation=X | gamma=X   change a control
  preset <name>      start from a preset
  reset              back to neutral
  load <path>        switch image
  save [format]      export the current result
  show               print values and counters
  quit
`)
}

// splitCommand separates "key=value", "key value" and bare words.
func splitCommand(line string) (string, string) {
	if i := strings.IndexAny(line, "= \t"); i >= 0 {
		arg := strings.TrimSpace(line[i+1:])
		return strings.ToLower(line[:i]), strings.TrimSpace(strings.TrimPrefix(arg, "="))
	}
	return strings.ToLower(line), ""
}

// previewSink rewrites one image file with every displayed frame.
type previewSink struct {
	path string
	enc  encoder.Encoder
	log  logrus.FieldLogger
}

func (p *previewSink) Display(f *pipeline.Frame) {
	log := p.log.WithField("generation", f.Generation)
	if p.path == "" {
		log.Info("frame ready")
		return
	}
	data, err := p.enc.Encode(f.Raster.Image(), encoder.DefaultQuality)
	if err == nil {
		err = writeFileAtomic(p.path, data)
	}
	if err != nil {
		log.WithError(err).Warn("preview not written")
		return
	}
	log.WithField("path", p.path).Info("preview updated")
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".preview-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
