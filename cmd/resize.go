package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/AnyUserName/rowscale/internal/decoder"
	"github.com/AnyUserName/rowscale/internal/encoder"
	"github.com/AnyUserName/rowscale/internal/pipeline"
	"github.com/AnyUserName/rowscale/internal/planar"
)

var (
	resizeOpts      []string
	resizeNoPlanar  bool
	resizeNoDither  bool
	resizeWindowMiB int
)

var resizeCmd = &cobra.Command{
	Use:   "resize <input> <output>",
	Short: "Resize a single image",
	Long: `Resizes one image with options given as key=value pairs, the same
keys a URL query would carry:

  rowscale resize in.jpg out.webp --opt width=640 --opt mode=crop --opt anchor=top

The output format defaults to the extension of <output>.`,
	Args: cobra.ExactArgs(2),
	RunE: runResize,
}

func init() {
	resizeCmd.Flags().StringArrayVarP(&resizeOpts, "opt", "O", nil, "resize option key=value (repeatable)")
	resizeCmd.Flags().BoolVar(&resizeNoPlanar, "no-planar", false, "always resample interleaved pixels")
	resizeCmd.Flags().BoolVar(&resizeNoDither, "no-dither", false, "map indexed output without error diffusion")
	resizeCmd.Flags().IntVar(&resizeWindowMiB, "planar-window", 0, "planar window limit in MiB (0 = unlimited)")
	rootCmd.AddCommand(resizeCmd)
}

func chainOptions() pipeline.ChainOptions {
	return pipeline.ChainOptions{
		NoPlanar: resizeNoPlanar,
		NoDither: resizeNoDither,
		Planar:   planar.Options{MaxWindowBytes: resizeWindowMiB << 20},
		Logger:   log,
	}
}

func runResize(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]
	start := time.Now()

	opts, err := parseOpts(resizeOpts)
	if err != nil {
		return err
	}
	s, err := settingsFor(opts, out)
	if err != nil {
		return err
	}
	img, err := decoder.Open(in)
	if err != nil {
		return err
	}

	proc := pipeline.NewProcessor(encoder.NewRegistry(), chainOptions())
	res, err := proc.Process(contextOf(cmd), img, s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	log.WithFields(logrus.Fields{
		"out":     out,
		"width":   res.Resolved.Width,
		"height":  res.Resolved.Height,
		"format":  res.Resolved.Format,
		"bytes":   len(res.Data),
		"key":     res.Key,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("resized")
	log.Debugf("chain %s", (&pipeline.Chain{Stages: res.Stages}))
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
