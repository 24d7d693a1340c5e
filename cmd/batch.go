package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AnyUserName/phototune/internal/encoder"
	"github.com/AnyUserName/phototune/internal/export"
	"github.com/AnyUserName/phototune/internal/manifest"
	"github.com/AnyUserName/phototune/internal/pipeline"
	"github.com/AnyUserName/phototune/internal/profile"
	"github.com/AnyUserName/phototune/internal/source"
	"github.com/spf13/cobra"
)

var (
	batchAdjust   adjustFlags
	batchOutDir   string
	batchFormat   string
	batchQuality  int
	batchMaxWidth int
	batchJobs     int
)

var batchCmd = &cobra.Command{
	Use:   "batch <input_dir>",
	Short: "Apply one adjustment to every image in a directory",
	Long: `Scans input directory for images (png, jpg, jpeg, gif, bmp, tiff, webp),
adjusts each one with the same values and exports the results plus a
manifest. Subdirectories are kept in the output names.

Output filenames are content-addressed: <key>.<w>.<h>.<hash>.ext`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchAdjust.register(batchCmd)
	batchCmd.Flags().StringVarP(&batchOutDir, "out", "o", "./phototune_out", "output directory")
	batchCmd.Flags().StringVarP(&batchFormat, "format", "f", export.DefaultFormat, "export format")
	batchCmd.Flags().IntVarP(&batchQuality, "quality", "q", encoder.DefaultQuality, "quality 1-100 for lossy formats")
	batchCmd.Flags().IntVar(&batchMaxWidth, "max-width", 0, "downscale wider sources first (0 = keep size)")
	batchCmd.Flags().IntVarP(&batchJobs, "jobs", "j", 0, fmt.Sprintf("images processed at once (0 = %d)", pipeline.DefaultBatchJobs))
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	start := time.Now()
	params, err := batchAdjust.resolve(cmd)
	if err != nil {
		return err
	}

	absInput, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	absOutput, err := filepath.Abs(batchOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	logger.Debugf("input:  %s", absInput)
	logger.Debugf("output: %s", absOutput)
	logger.Debugf("params: %s", params)

	exp, err := export.New(export.Config{OutputDir: absOutput, Logger: logger})
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Config{Workers: workers, Logger: logger})
	res, err := p.Batch(cmd.Context(), pipeline.BatchConfig{
		InputDir: absInput,
		Params:   params,
		Jobs:     batchJobs,
		Load:     source.Options{MaxWidth: batchMaxWidth},
		Exporter: exp,
		Format:   batchFormat,
		Quality:  batchQuality,
		Logger:   logger,
	})
	if res != nil {
		// Partial and cancelled runs still report what was written.
		printBatchReport(cmd.OutOrStdout(), res, params, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

func printBatchReport(w io.Writer, res *pipeline.BatchResult, params profile.Params, elapsed time.Duration) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  phototune batch complete")
	fmt.Fprintln(w)

	var total int64
	for _, e := range res.Exports {
		total += e.Size
	}
	fmt.Fprintf(w, "  Params:      %s\n", params)
	fmt.Fprintf(w, "  Exported:    %d\n", len(res.Exports))
	if len(res.Errors) > 0 {
		fmt.Fprintf(w, "  Failed:      %d\n", len(res.Errors))
	}
	fmt.Fprintf(w, "  Output size: %s\n", formatBytes(total))
	fmt.Fprintf(w, "  Time:        %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintln(w)

	// Top 10 largest exports.
	if len(res.Exports) > 0 {
		items := append([]manifest.Export(nil), res.Exports...)
		sort.Slice(items, func(i, j int) bool {
			return items[i].Size > items[j].Size
		})
		n := min(len(items), 10)
		fmt.Fprintf(w, "  Top %d largest:\n", n)
		for _, it := range items[:n] {
			fmt.Fprintf(w, "    %-40s %5dx%-5d %8s\n",
				truncKey(it.Source.Path, 40), it.Width, it.Height, formatBytes(it.Size))
		}
		fmt.Fprintln(w)
	}

	for _, err := range res.Errors {
		fmt.Fprintf(w, "  ! %v\n", err)
	}
	if len(res.Errors) > 0 {
		fmt.Fprintln(w)
	}

	formats := map[string]bool{}
	for _, e := range res.Exports {
		formats[e.Format] = true
	}
	var names []string
	for f := range formats {
		names = append(names, f)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "  Formats:     %s\n", strings.Join(names, ", "))
	fmt.Fprintf(w, "  Manifest:    %s\n", manifest.FileName)
	fmt.Fprintln(w)
}
