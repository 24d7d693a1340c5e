package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/AnyUserName/phototune/internal/encoder"
	"github.com/AnyUserName/phototune/internal/export"
	"github.com/AnyUserName/phototune/internal/pipeline"
	"github.com/AnyUserName/phototune/internal/source"
	"github.com/spf13/cobra"
)

var (
	tuneAdjust   adjustFlags
	tuneOutDir   string
	tuneFormat   string
	tuneQuality  int
	tuneMaxWidth int
	tunePreview  string
	tuneDebounce time.Duration
	tuneTimeout  time.Duration
)

var tuneCmd = &cobra.Command{
	Use:   "tune [image]",
	Short: "Adjust an image interactively from control lines on stdin",
	Long: `Starts an interactive session. Each line on stdin changes one control
(brightness=20, contrast -40, gamma 1.4, ...) or runs a command (preset,
reset, load, save, show, quit). Every change restarts the computation after
a short quiet period and only the newest result is shown: the preview file
is rewritten whenever a result arrives, and save exports that result.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTune,
}

func init() {
	tuneAdjust.register(tuneCmd)
	tuneCmd.Flags().StringVarP(&tuneOutDir, "out", "o", "./phototune_out", "output directory for saves")
	tuneCmd.Flags().StringVarP(&tuneFormat, "format", "f", export.DefaultFormat, "default save format")
	tuneCmd.Flags().IntVarP(&tuneQuality, "quality", "q", encoder.DefaultQuality, "quality 1-100 for lossy formats")
	tuneCmd.Flags().IntVar(&tuneMaxWidth, "max-width", 0, "downscale wider sources first (0 = keep size)")
	tuneCmd.Flags().StringVar(&tunePreview, "preview", "", "preview file rewritten on every result (default <out>/preview.png, \"-\" = none)")
	tuneCmd.Flags().DurationVar(&tuneDebounce, "debounce", pipeline.DefaultDebounce, "quiet period before recomputing (negative = none)")
	tuneCmd.Flags().DurationVar(&tuneTimeout, "save-timeout", time.Minute, "how long save waits for the current result")
	rootCmd.AddCommand(tuneCmd)
}

func runTune(cmd *cobra.Command, args []string) error {
	params, err := tuneAdjust.resolve(cmd)
	if err != nil {
		return err
	}
	absOutput, err := filepath.Abs(tuneOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	exp, err := export.New(export.Config{OutputDir: absOutput, Logger: logger})
	if err != nil {
		return err
	}

	sink, err := newPreviewSink(tunePreview, absOutput)
	if err != nil {
		return err
	}

	debounce := tuneDebounce
	if debounce == 0 {
		debounce = -1 // 0 on the command line means "no wait"
	}
	p := pipeline.New(pipeline.Config{Workers: workers, Logger: logger})
	sched := pipeline.NewScheduler(p, sink, pipeline.SchedulerConfig{
		Debounce: debounce,
		Logger:   logger.WithField("session", exp.Session()),
	})
	defer sched.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- sched.Run(ctx) }()

	s := &session{
		sched:    sched,
		exporter: exp,
		out:      cmd.OutOrStdout(),
		load:     source.Options{MaxWidth: tuneMaxWidth},
		format:   tuneFormat,
		quality:  tuneQuality,
		timeout:  tuneTimeout,
	}
	// Without a source yet the values are only stored.
	if _, err := sched.Submit(params); err != nil && !errors.Is(err, pipeline.ErrNoSource) {
		return err
	}
	var path string
	if len(args) == 1 {
		path = args[0]
	}
	if err := s.open(path); err != nil {
		return err
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-runDone:
			return err
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			err := s.handle(ctx, line)
			switch {
			case errors.Is(err, errQuit):
				return nil
			case err != nil:
				fmt.Fprintf(cmd.ErrOrStderr(), "! %v\n", err)
			}
		}
	}
}

// newPreviewSink picks the preview encoder from the file extension.
func newPreviewSink(path, outDir string) (*previewSink, error) {
	switch path {
	case "-":
		return &previewSink{log: logger}, nil
	case "":
		path = filepath.Join(outDir, "preview.png")
	}
	format := source.FormatOf(path)
	if format == "" {
		return nil, fmt.Errorf("preview %s: unrecognised image extension", path)
	}
	if format == "png" {
		return &previewSink{path: path, enc: &encoder.PNGEncoder{Fast: true}, log: logger}, nil
	}
	enc, err := encoder.NewRegistry().Lookup(format)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	return &previewSink{path: path, enc: enc, log: logger}, nil
}
