package transform

import (
	"context"
	"image"
	"image/color"

	"github.com/soniakeys/quant/median"
	"golang.org/x/image/draw"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/pixel"
)

// MaxPaletteColors is the largest palette an Indexed8 frame can carry.
const MaxPaletteColors = 256

// IndexedConvert quantizes its upstream to an adaptive palette with median
// cut and maps pixels onto it, optionally with Floyd-Steinberg dithering.
// A palette is global to the frame, so the first CopyPixels drains the
// whole upstream.
type IndexedConvert struct {
	pixel.Link
	ctx    context.Context
	colors int
	dither bool
	img    *image.Paletted
}

// NewIndexedConvert quantizes up to at most colors palette entries. The
// whole frame is read on the first CopyPixels, and ctx cancels that read.
func NewIndexedConvert(ctx context.Context, up pixel.Source, colors int, dither bool) (*IndexedConvert, error) {
	switch up.Format() {
	case pixel.Grey8, pixel.Bgr24, pixel.Bgra32:
	default:
		return nil, imgerr.Unsupported("palette conversion of %s", up.Format())
	}
	if colors < 2 || colors > MaxPaletteColors {
		return nil, imgerr.Invalid("palette size %d out of range 2-%d", colors, MaxPaletteColors)
	}
	return &IndexedConvert{Link: pixel.Link{Up: up}, ctx: ctx, colors: colors, dither: dither}, nil
}

func (q *IndexedConvert) Width() int           { return q.Up.Width() }
func (q *IndexedConvert) Height() int          { return q.Up.Height() }
func (q *IndexedConvert) Format() pixel.Format { return pixel.Indexed8 }

// Palette is nil until the first CopyPixels.
func (q *IndexedConvert) Palette() color.Palette {
	if q.img == nil {
		return nil
	}
	return q.img.Palette
}

func (q *IndexedConvert) quantize() error {
	frame, err := pixel.ToImage(q.ctx, q.Up)
	if err != nil {
		return err
	}
	pal := median.Quantizer(q.colors).Paletted(frame)
	if q.dither {
		draw.FloydSteinberg.Draw(pal, pal.Rect, frame, image.Point{})
	} else {
		draw.Draw(pal, pal.Rect, frame, image.Point{}, draw.Src)
	}
	q.img = pal
	return nil
}

func (q *IndexedConvert) CopyPixels(r image.Rectangle, stride int, buf []byte) error {
	if err := pixel.CheckCopy(q, r, stride, buf); err != nil {
		return err
	}
	if q.img == nil {
		if err := q.quantize(); err != nil {
			return err
		}
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := q.img.PixOffset(r.Min.X, y)
		copy(buf[(y-r.Min.Y)*stride:], q.img.Pix[off:off+r.Dx()])
	}
	return nil
}
