package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/AnyUserName/rowscale/internal/resize"
)

var (
	version = "0.1.0"
	verbose bool
	logJSON bool

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "rowscale",
	Short: "Streaming image resizer with planar JPEG scaling",
	Long: `rowscale resizes images through a pull chain of row-windowed stages:
decoder-native reduction, a windowed planar cache for Y'CbCr sources,
hybrid power-of-two pre-scaling, separable high-quality resampling and
unsharp masking.

Single images are handled by "resize"; whole directories by "build",
which writes content-addressed variants and a manifest.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		setupLogger()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		log.WithError(err).Error("failed")
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON lines")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"rowscale %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
	log.SetOutput(os.Stderr)
}

func setupLogger() {
	if logJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// parseOpts turns repeated --opt key=value flags into an option map.
func parseOpts(pairs []string) (map[string]string, error) {
	opts := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("option %q is not key=value", p)
		}
		opts[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return opts, nil
}

// settingsFor parses opts, taking the output format from the file
// extension of out when none is given.
func settingsFor(opts map[string]string, out string) (resize.Settings, error) {
	if _, ok := opts["format"]; !ok && out != "" {
		if ext := filepath.Ext(out); ext != "" {
			opts["format"] = ext
		}
	}
	return resize.ParseOptions(opts)
}
