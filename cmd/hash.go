package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/rowscale/internal/decoder"
	"github.com/AnyUserName/rowscale/internal/resize"
)

var hashOpts []string

var hashCmd = &cobra.Command{
	Use:   "hash <input>",
	Short: "Print the resolved settings and cache key of a resize",
	Args:  cobra.ExactArgs(1),
	RunE:  runHash,
}

func init() {
	hashCmd.Flags().StringArrayVarP(&hashOpts, "opt", "O", nil, "resize option key=value (repeatable)")
	rootCmd.AddCommand(hashCmd)
}

func runHash(cmd *cobra.Command, args []string) error {
	opts, err := parseOpts(hashOpts)
	if err != nil {
		return err
	}
	s, err := settingsFor(opts, "")
	if err != nil {
		return err
	}
	img, err := decoder.Open(args[0])
	if err != nil {
		return err
	}
	r, err := resize.Resolve(s, img.Info())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Settings:  %s\n", r)
	fmt.Fprintf(out, "  Cache key: %s\n", resize.CacheKey(img.Info(), r))
	return nil
}
