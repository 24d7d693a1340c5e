package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/AnyUserName/phototune/internal/manifest"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <out_dir_or_manifest>",
	Short: "Display the exports recorded in an output directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "most recent exports to list (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, err := manifestPath(args[0])
	if err != nil {
		return err
	}
	m, err := manifest.ReadJSON(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	printHistory(cmd.OutOrStdout(), m, historyLimit)
	return nil
}

// manifestPath accepts a manifest file or the directory holding one.
func manifestPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, manifest.FileName)
	}
	return path, nil
}

func printHistory(w io.Writer, m *manifest.Manifest, limit int) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Manifest version: %d\n", m.Version)
	fmt.Fprintf(w, "  Generated:        %s\n", m.GeneratedAt)
	fmt.Fprintf(w, "  Session:          %s\n", m.Session)
	fmt.Fprintln(w)

	s := m.Stats
	fmt.Fprintf(w, "  Total exports:    %d\n", s.TotalExports)
	fmt.Fprintf(w, "  Output size:      %s\n", formatBytes(s.TotalOutputBytes))
	fmt.Fprintln(w)

	// Per-format breakdown.
	formatStats := map[string]struct {
		count int
		bytes int64
	}{}
	for _, e := range m.Exports {
		fs := formatStats[e.Format]
		fs.count++
		fs.bytes += e.Size
		formatStats[e.Format] = fs
	}
	var formats []string
	for f := range formatStats {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	fmt.Fprintln(w, "  Format breakdown:")
	for _, f := range formats {
		fs := formatStats[f]
		fmt.Fprintf(w, "    %-6s  %4d files  %s\n", f, fs.count, formatBytes(fs.bytes))
	}
	fmt.Fprintln(w)

	exports := m.Exports
	if limit > 0 && len(exports) > limit {
		exports = exports[len(exports)-limit:]
	}
	if len(exports) == 0 {
		return
	}
	fmt.Fprintf(w, "  Last %d exports:\n", len(exports))
	for _, e := range exports {
		src := e.Source.Path
		if src == "" {
			src = placeholderName
		}
		fmt.Fprintf(w, "    %s  %-30s %5dx%-5d %8s\n", e.CreatedAt, truncKey(src, 30), e.Width, e.Height, formatBytes(e.Size))
		fmt.Fprintf(w, "      %s\n", e.Params)
	}
	fmt.Fprintln(w)
}
