package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/rowscale/internal/manifest"
)

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_manifest>",
	Short: "Display statistics for a built asset directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	path, err := resolveManifest(args[0])
	if err != nil {
		return err
	}
	m, err := manifest.ReadFile(path)
	if err != nil {
		return err
	}
	printStats(cmd.OutOrStdout(), m)
	return nil
}

func printStats(out io.Writer, m *manifest.Manifest) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Manifest version: %d\n", m.Version)
	fmt.Fprintf(out, "  Generated:        %s\n", m.GeneratedAt)
	fmt.Fprintf(out, "  Profile:          %s\n", m.Profile)
	if b := m.BuildInfo; b != nil {
		fmt.Fprintf(out, "  Workers:          %d\n", b.Workers)
		fmt.Fprintf(out, "  Encoders:         %s\n", strings.Join(b.Encoders, ", "))
		if len(b.Options) > 0 {
			fmt.Fprintf(out, "  Options:          %s\n", strings.Join(b.Options, " "))
		}
	}
	fmt.Fprintln(out)

	s := m.Stats
	fmt.Fprintf(out, "  Total assets:     %d\n", s.TotalAssets)
	fmt.Fprintf(out, "  Total variants:   %d\n", s.TotalVariants)
	fmt.Fprintf(out, "  Input size:       %s\n", formatBytes(s.TotalInputBytes))
	fmt.Fprintf(out, "  Output size:      %s\n", formatBytes(s.TotalOutputBytes))
	if s.TotalInputBytes > 0 {
		ratio := float64(s.TotalOutputBytes) / float64(s.TotalInputBytes) * 100
		fmt.Fprintf(out, "  Compression:      %.1f%% of original\n", ratio)
	}
	fmt.Fprintln(out)

	// Per-format breakdown.
	formatStats := map[string]struct {
		count int
		bytes int64
	}{}
	// Per-filter breakdown, from the resize summaries.
	filterStats := map[string]int{}
	widthStats := map[int]int{}
	for _, a := range m.Assets {
		for _, v := range a.Variants {
			fs := formatStats[v.Format]
			fs.count++
			fs.bytes += v.Size
			formatStats[v.Format] = fs
			widthStats[v.Width]++
			if v.Resize != nil {
				filterStats[v.Resize.Filter]++
			}
		}
	}

	fmt.Fprintln(out, "  Format breakdown:")
	for _, f := range outputFormats {
		if fs, ok := formatStats[f]; ok {
			fmt.Fprintf(out, "    %-6s  %4d files  %s\n", f, fs.count, formatBytes(fs.bytes))
		}
	}
	fmt.Fprintln(out)

	var widths []int
	for w := range widthStats {
		widths = append(widths, w)
	}
	sort.Ints(widths)
	fmt.Fprintln(out, "  Width breakdown:")
	for _, w := range widths {
		fmt.Fprintf(out, "    %5dpx  %4d variants\n", w, widthStats[w])
	}
	fmt.Fprintln(out)

	if len(filterStats) > 0 {
		var filters []string
		for f := range filterStats {
			filters = append(filters, f)
		}
		sort.Strings(filters)
		fmt.Fprintln(out, "  Filters:")
		for _, f := range filters {
			fmt.Fprintf(out, "    %-24s %4d variants\n", f, filterStats[f])
		}
		fmt.Fprintln(out)
	}

	var placeholders int
	for _, a := range m.Assets {
		if a.AvgColor != nil {
			placeholders++
		}
	}
	fmt.Fprintf(out, "  Average color coverage: %d / %d assets\n", placeholders, len(m.Assets))

	var warnings []string
	for key, a := range m.Assets {
		if len(a.Variants) == 0 {
			warnings = append(warnings, fmt.Sprintf("asset %q has no variants", key))
		}
		if a.AvgColor == nil {
			warnings = append(warnings, fmt.Sprintf("asset %q missing average color", key))
		}
	}
	if len(warnings) > 0 {
		sort.Strings(warnings)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Fprintf(out, "    ⚠ %s\n", w)
		}
	}
	fmt.Fprintln(out)
}
