package cmd

import (
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
	applyAdjust   adjustFlags
	applyOutDir   string
	applyFormat   string
	applyQuality  int
	applyMaxWidth int
	applyName     string
)

var applyCmd = &cobra.Command{
	Use:   "apply [image]",
	Short: "Adjust one image and export the result",
	Long: `Loads an image (or generates the built-in placeholder when none is given),
runs brightness, contrast, saturation and gamma in that order and exports
the result into the output directory, recording it in the manifest.

Output filenames are content-addressed: <name>.<w>.<h>.<hash>.ext`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	applyAdjust.register(applyCmd)
	applyCmd.Flags().StringVarP(&applyOutDir, "out", "o", "./phototune_out", "output directory")
	applyCmd.Flags().StringVarP(&applyFormat, "format", "f", export.DefaultFormat, "export format")
	applyCmd.Flags().IntVarP(&applyQuality, "quality", "q", encoder.DefaultQuality, "quality 1-100 for lossy formats")
	applyCmd.Flags().IntVar(&applyMaxWidth, "max-width", 0, "downscale wider sources first (0 = keep size)")
	applyCmd.Flags().StringVar(&applyName, "name", "", "export base name (default: source file name)")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	start := time.Now()
	params, err := applyAdjust.resolve(cmd)
	if err != nil {
		return err
	}

	var path string
	if len(args) == 1 {
		path = args[0]
	}
	src, info, name, err := loadSource(path, source.Options{MaxWidth: applyMaxWidth})
	if err != nil {
		return err
	}
	if applyName != "" {
		name = applyName
	}

	absOutput, err := filepath.Abs(applyOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	logger.WithField("params", params.String()).Debug("applying")

	p := pipeline.New(pipeline.Config{Workers: workers, Logger: logger})
	out, err := p.Recompute(cmd.Context(), src, params)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	exp, err := export.New(export.Config{OutputDir: absOutput, Logger: logger})
	if err != nil {
		return err
	}
	rec, err := exp.Export(out, export.Request{
		Name:    name,
		Format:  applyFormat,
		Quality: applyQuality,
		Params:  params,
		Source:  info,
	})
	if err != nil {
		return err
	}
	if err := exp.Flush(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "  %s  %dx%d  %s  (%s)\n", rec.Path, rec.Width, rec.Height,
		formatBytes(rec.Size), time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(w, "  %s\n", params)
	return nil
}
