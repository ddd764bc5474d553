package encoder

import (
	"bytes"
	"context"
	"image"
	"image/gif"
	"image/png"

	"github.com/AnyUserName/rowscale/internal/imgerr"
)

// PNGEncoder encodes images to PNG using Go's standard library. With
// Indexed set it registers as "png8" and expects a paletted image, which
// the standard encoder writes as a palette PNG.
type PNGEncoder struct {
	Indexed bool
}

func (e *PNGEncoder) Format() string {
	if e.Indexed {
		return "png8"
	}
	return "png"
}
func (e *PNGEncoder) Extension() string { return "png" }
func (e *PNGEncoder) Available() bool   { return true }

func (e *PNGEncoder) Encode(_ context.Context, img image.Image, _ Options) ([]byte, error) {
	if _, ok := img.(*image.Paletted); e.Indexed && !ok {
		return nil, imgerr.Unsupported("png8 needs a paletted image, got %T", img)
	}
	var buf bytes.Buffer
	buf.Grow(512 * 1024)

	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, imgerr.Upstream("encode png", err)
	}
	return buf.Bytes(), nil
}

// GIFEncoder writes a single paletted frame as GIF.
type GIFEncoder struct{}

func (e *GIFEncoder) Format() string    { return "gif" }
func (e *GIFEncoder) Extension() string { return "gif" }
func (e *GIFEncoder) Available() bool   { return true }

func (e *GIFEncoder) Encode(_ context.Context, img image.Image, _ Options) ([]byte, error) {
	p, ok := img.(*image.Paletted)
	if !ok {
		return nil, imgerr.Unsupported("gif needs a paletted image, got %T", img)
	}
	var buf bytes.Buffer
	if err := gif.Encode(&buf, p, &gif.Options{NumColors: len(p.Palette)}); err != nil {
		return nil, imgerr.Upstream("encode gif", err)
	}
	return buf.Bytes(), nil
}
