package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/rowscale/internal/manifest"
	"github.com/AnyUserName/rowscale/internal/pipeline"
	"github.com/AnyUserName/rowscale/internal/profile"
)

var (
	buildOutDir      string
	buildProfile     string
	buildWorkers     int
	buildWidths      []int
	buildQuality     int
	buildOpts        []string
	buildNoRegress   bool
	buildZstd        bool
	buildIncremental bool
)

var buildCmd = &cobra.Command{
	Use:   "build <input_dir>",
	Short: "Resize a directory of images into variants and a manifest",
	Long: `Scans the input directory for images (png, jpg, jpeg, gif, bmp, tiff),
renders every width and format of the chosen profile and writes a
manifest describing the variants.

Output filenames are content-addressed: <key>.<w>.<h>.<hash>.ext
Variants whose cache key matches the previous manifest are reused.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVarP(&buildOutDir, "out", "o", "./rowscale_out", "output directory")
	f.StringVarP(&buildProfile, "profile", "p", profile.DefaultName,
		"processing profile ("+strings.Join(profile.Names(), ", ")+")")
	f.IntVarP(&buildWorkers, "workers", "w", 0, "parallel workers (0 = NumCPU)")
	f.IntSliceVar(&buildWidths, "widths", nil, "custom widths (overrides profile)")
	f.IntVarP(&buildQuality, "quality", "q", 0, "quality 1-100 (0 = profile default)")
	f.StringArrayVarP(&buildOpts, "opt", "O", nil, "resize option key=value applied to every variant (repeatable)")
	f.BoolVar(&buildNoRegress, "no-regress-size", true, "skip variants larger than original file")
	f.BoolVar(&buildZstd, "zstd", false, "write the manifest zstd-compressed")
	f.BoolVar(&buildIncremental, "incremental", true, "reuse variants listed in the previous manifest")
	f.BoolVar(&resizeNoPlanar, "no-planar", false, "always resample interleaved pixels")
	f.BoolVar(&resizeNoDither, "no-dither", false, "map indexed output without error diffusion")
	f.IntVar(&resizeWindowMiB, "planar-window", 0, "planar window limit in MiB (0 = unlimited)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	inputDir := args[0]
	start := time.Now()

	absInput, err := filepath.Abs(inputDir)
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	absOutput, err := filepath.Abs(buildOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	opts, err := parseOpts(buildOpts)
	if err != nil {
		return err
	}

	prof := profile.Get(buildProfile)
	if buildWidths != nil {
		prof.Widths = buildWidths
	}
	if buildQuality > 0 {
		prof.Quality = buildQuality
	}

	log.Debugf("input:   %s", absInput)
	log.Debugf("output:  %s", absOutput)
	log.Debugf("profile: %s (widths=%v, quality=%d)", prof.Name, prof.Widths, prof.Quality)

	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var previous *manifest.Manifest
	if buildIncremental {
		previous = loadPrevious(absOutput)
	}

	p := pipeline.New(pipeline.Config{
		InputDir:      absInput,
		OutputDir:     absOutput,
		Profile:       prof,
		Workers:       buildWorkers,
		Options:       opts,
		NoRegressSize: buildNoRegress,
		Previous:      previous,
		Chain:         chainOptions(),
		Logger:        log,
	})

	m, err := p.Run(contextOf(cmd))
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	name := manifest.FileName
	if buildZstd {
		name += ".zst"
	}
	manifestPath := filepath.Join(absOutput, name)
	if err := manifest.WriteFile(m, manifestPath); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	// Only one manifest may describe the directory.
	stale := filepath.Join(absOutput, manifest.FileName)
	if !buildZstd {
		stale += ".zst"
	}
	if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("remove stale manifest")
	}

	printBuildReport(cmd, m, manifestPath, time.Since(start))
	return nil
}

// loadPrevious reads the manifest of an earlier build, if any.
func loadPrevious(dir string) *manifest.Manifest {
	path, err := manifest.Find(dir)
	if err != nil {
		return nil
	}
	m, err := manifest.ReadFile(path)
	if err != nil {
		log.WithError(err).Warnf("ignoring previous manifest %s", path)
		return nil
	}
	log.Debugf("previous manifest: %s (%d assets)", path, len(m.Assets))
	return m
}

func printBuildReport(cmd *cobra.Command, m *manifest.Manifest, manifestPath string, elapsed time.Duration) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "╔══════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║             rowscale build complete              ║")
	fmt.Fprintln(out, "╚══════════════════════════════════════════════════╝")
	fmt.Fprintln(out)

	stats := m.Stats
	ratio := float64(0)
	if stats.TotalInputBytes > 0 {
		ratio = float64(stats.TotalOutputBytes) / float64(stats.TotalInputBytes) * 100
	}

	fmt.Fprintf(out, "  Assets:      %d\n", stats.TotalAssets)
	fmt.Fprintf(out, "  Variants:    %d\n", stats.TotalVariants)
	fmt.Fprintf(out, "  Input size:  %s\n", formatBytes(stats.TotalInputBytes))
	fmt.Fprintf(out, "  Output size: %s\n", formatBytes(stats.TotalOutputBytes))
	fmt.Fprintf(out, "  Ratio:       %.1f%% of original\n", ratio)
	if stats.Reused > 0 {
		fmt.Fprintf(out, "  Reused:      %d variants (unchanged since last build)\n", stats.Reused)
	}
	if stats.SkippedRegress > 0 {
		fmt.Fprintf(out, "  Skipped:     %d variants (larger than original)\n", stats.SkippedRegress)
	}
	fmt.Fprintf(out, "  Time:        %s\n", elapsed.Round(time.Millisecond))
	if m.BuildInfo != nil {
		fmt.Fprintf(out, "  Workers:     %d\n", m.BuildInfo.Workers)
		fmt.Fprintf(out, "  Encoders:    %s\n", strings.Join(m.BuildInfo.Encoders, ", "))
	}
	fmt.Fprintln(out)

	// Top 10 heaviest assets.
	if len(m.Assets) > 0 {
		type assetSize struct {
			key        string
			inputSize  int64
			outputSize int64
		}
		var items []assetSize
		for key, a := range m.Assets {
			var outSum int64
			for _, v := range a.Variants {
				outSum += v.Size
			}
			items = append(items, assetSize{key, a.Original.Size, outSum})
		}
		sort.Slice(items, func(i, j int) bool {
			return items[i].inputSize > items[j].inputSize
		})
		n := min(len(items), 10)
		fmt.Fprintf(out, "  Top %d heaviest (original → resized):\n", n)
		for _, it := range items[:n] {
			saved := float64(0)
			if it.inputSize > 0 {
				saved = (1 - float64(it.outputSize)/float64(it.inputSize)) * 100
			}
			fmt.Fprintf(out, "    %-40s %8s → %8s  (−%.0f%%)\n",
				truncKey(it.key, 40),
				formatBytes(it.inputSize),
				formatBytes(it.outputSize),
				saved,
			)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "  Formats:     %s\n", strings.Join(detectOutputFormats(m), ", "))
	fmt.Fprintln(out)

	size := int64(0)
	if st, err := os.Stat(manifestPath); err == nil {
		size = st.Size()
	}
	fmt.Fprintf(out, "  Manifest:    %s (%s)\n", filepath.Base(manifestPath), formatBytes(size))
	fmt.Fprintln(out)
}

// outputFormats is the order formats are reported in.
var outputFormats = []string{"avif", "webp", "jpeg", "png", "png8", "gif"}

func detectOutputFormats(m *manifest.Manifest) []string {
	set := map[string]bool{}
	for _, a := range m.Assets {
		for _, v := range a.Variants {
			set[v.Format] = true
		}
	}
	var out []string
	for _, f := range outputFormats {
		if set[f] {
			out = append(out, f)
		}
	}
	return out
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
