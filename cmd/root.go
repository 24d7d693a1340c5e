package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/AnyUserName/phototune/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version   = "0.1.0"
	verbose   bool
	logLevel  string
	logFormat string
	logFile   string
	workers   int

	// logger is built before any subcommand runs.
	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "phototune",
	Short: "Brightness, contrast, saturation and gamma adjustment for photos",
	Long: `phototune applies four colour adjustments to a photo in a fixed order:
brightness, contrast (around the image's average brightness), saturation
and gamma.

Run a single image or a whole directory with one set of values, or tune
interactively: every control change starts a fresh recomputation and only
the newest result is ever shown or saved.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		level := logLevel
		if verbose {
			level = logrus.DebugLevel.String()
		}
		l, err := logging.New(logging.Options{
			Level:  level,
			Format: logFormat,
			File:   logFile,
		})
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute runs the command tree; an interrupt cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output (same as --log-level debug)")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&logFile, "log-file", "", "write logs to a rotating file instead of stderr")
	pf.IntVarP(&workers, "workers", "w", 0, "parallel workers per stage (0 = NumCPU)")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"phototune %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}
