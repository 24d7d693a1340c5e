package cmd

import (
	"fmt"
	"io"

	"github.com/AnyUserName/phototune/internal/filter"
	"github.com/AnyUserName/phototune/internal/hasher"
	"github.com/AnyUserName/phototune/internal/raster"
	"github.com/AnyUserName/phototune/internal/source"
	"github.com/spf13/cobra"
)

var inspectMaxWidth int

var inspectCmd = &cobra.Command{
	Use:   "inspect [image]",
	Short: "Print dimensions, average brightness and channel means of an image",
	Long: `Prints what the adjustment pipeline sees for an image: its size, the
pooled average brightness that contrast pivots around, the mean of each
channel and a content hash of the samples. Without an image the built-in
placeholder is inspected.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectMaxWidth, "max-width", 0, "downscale wider sources first (0 = keep size)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	}
	r, info, name, err := loadSource(path, source.Options{MaxWidth: inspectMaxWidth})
	if err != nil {
		return err
	}

	avg, err := filter.NewProcessor(workers).AverageBrightness(cmd.Context(), r)
	if err != nil {
		return err
	}
	printInspect(cmd.OutOrStdout(), name, r, info.Width, info.Height, avg)
	return nil
}

func printInspect(w io.Writer, name string, r *raster.Raster, srcW, srcH, avg int) {
	means := channelMeans(r)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Image:       %s\n", name)
	if srcW != r.Width || srcH != r.Height {
		fmt.Fprintf(w, "  Size:        %dx%d (from %dx%d)\n", r.Width, r.Height, srcW, srcH)
	} else {
		fmt.Fprintf(w, "  Size:        %dx%d\n", r.Width, r.Height)
	}
	fmt.Fprintf(w, "  Pixels:      %d\n", r.Len())
	fmt.Fprintf(w, "  Average:     %d\n", avg)
	fmt.Fprintf(w, "  Means:       R %.1f  G %.1f  B %.1f\n", means[0], means[1], means[2])
	fmt.Fprintf(w, "  Hash:        %s\n", hasher.RasterHash(r, 16))
	fmt.Fprintln(w)
}

// channelMeans returns the mean of each channel, zero for an empty raster.
func channelMeans(r *raster.Raster) [3]float64 {
	var sums [3]uint64
	for i, v := range r.Pix {
		sums[i%3] += uint64(v)
	}
	var means [3]float64
	if n := r.Len(); n > 0 {
		for c := range means {
			means[c] = float64(sums[c]) / float64(n)
		}
	}
	return means
}
