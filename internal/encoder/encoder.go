// Package encoder writes the terminal image of a chain to an output format.
//
// JPEG, PNG and GIF use the Go codecs. WebP and AVIF shell out to cwebp and
// avifenc, which keeps the build free of cgo.
package encoder

import (
	"context"
	"image"

	"github.com/AnyUserName/rowscale/internal/resize"
)

// Options carries the resolved settings an encoder embeds in its output.
type Options struct {
	// Quality is 1-100. Lossless formats ignore it.
	Quality   int
	Subsample resize.Subsample
	// ICC is an ICC profile to embed, when the format can carry one.
	ICC []byte
}

// OptionsFor extracts the encoder options of a resolved plan. records are
// the source metadata records; only those the plan asks for are kept.
func OptionsFor(r resize.Resolved, records map[string][]byte) Options {
	o := Options{Quality: r.Quality, Subsample: r.Subsample}
	for _, tag := range r.Metadata {
		if tag == "icc" {
			o.ICC = records["icc"]
		}
	}
	return o
}

// Encoder encodes an image to a specific format.
type Encoder interface {
	// Format returns the output format name (e.g. "jpeg", "png8", "avif").
	Format() string

	// Encode converts the image to bytes.
	Encode(ctx context.Context, img image.Image, opts Options) ([]byte, error)

	// Available returns true if the encoder is ready to use.
	// External encoders (cwebp, avifenc) may not be installed.
	Available() bool

	// Extension returns the file extension without dot.
	Extension() string
}

func quality(q int) int {
	if q <= 0 || q > 100 {
		return 82
	}
	return q
}
