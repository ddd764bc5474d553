package pixel

import (
	"context"
	"image"
	"image/color"

	"github.com/AnyUserName/rowscale/internal/imgerr"
)

// StripRows is the number of rows pulled per CopyPixels call when a whole
// frame is drained from a chain.
const StripRows = 64

// Buffer is an in-memory Source over a tightly described pixel slice.
type Buffer struct {
	W, H   int
	Fmt    Format
	Pix    []byte
	Stride int
	Colors color.Palette
}

// NewBuffer allocates a zeroed buffer source.
func NewBuffer(w, h int, f Format) *Buffer {
	stride := w * f.BytesPerPixel()
	return &Buffer{W: w, H: h, Fmt: f, Pix: make([]byte, stride*h), Stride: stride}
}

func (b *Buffer) Width() int             { return b.W }
func (b *Buffer) Height() int            { return b.H }
func (b *Buffer) Format() Format         { return b.Fmt }
func (b *Buffer) Close() error           { return nil }
func (b *Buffer) Palette() color.Palette { return b.Colors }

// Row returns the bytes of row y.
func (b *Buffer) Row(y int) []byte {
	off := y * b.Stride
	return b.Pix[off : off+b.W*b.Fmt.BytesPerPixel()]
}

func (b *Buffer) CopyPixels(r image.Rectangle, stride int, buf []byte) error {
	if err := CheckCopy(b, r, stride, buf); err != nil {
		return err
	}
	bpp := b.Fmt.BytesPerPixel()
	n := r.Dx() * bpp
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := y*b.Stride + r.Min.X*bpp
		copy(buf[(y-r.Min.Y)*stride:], b.Pix[off:off+n])
	}
	return nil
}

// Drain pulls every row of src into a Buffer, checking ctx between strips.
func Drain(ctx context.Context, src Source) (*Buffer, error) {
	out := NewBuffer(src.Width(), src.Height(), src.Format())
	for y := 0; y < out.H; y += StripRows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := image.Rect(0, y, out.W, min(y+StripRows, out.H))
		if err := src.CopyPixels(r, out.Stride, out.Pix[y*out.Stride:]); err != nil {
			return nil, err
		}
	}
	// A palette may only be known once pixels have been pulled.
	if p, ok := src.(Paletted); ok {
		out.Colors = p.Palette()
	}
	return out, nil
}

// ToImage drains src into the Go image type closest to its format:
// *image.Gray, *image.NRGBA, *image.CMYK or *image.Paletted.
func ToImage(ctx context.Context, src Source) (image.Image, error) {
	buf, err := Drain(ctx, src)
	if err != nil {
		return nil, err
	}
	return buf.Image()
}

// Image converts the buffer to a Go image. Gray, CMYK and paletted buffers
// are wrapped without copying.
func (b *Buffer) Image() (image.Image, error) {
	rect := image.Rect(0, 0, b.W, b.H)
	switch b.Fmt {
	case Grey8, Y8:
		return &image.Gray{Pix: b.Pix, Stride: b.Stride, Rect: rect}, nil
	case Cmyk32:
		return &image.CMYK{Pix: b.Pix, Stride: b.Stride, Rect: rect}, nil
	case Indexed8:
		if len(b.Colors) == 0 {
			return nil, imgerr.Unsupported("indexed image without palette")
		}
		return &image.Paletted{Pix: b.Pix, Stride: b.Stride, Rect: rect, Palette: b.Colors}, nil
	case Bgr24, Bgra32, Rgb24, Rgba32:
		img := image.NewNRGBA(rect)
		bpp := b.Fmt.BytesPerPixel()
		swap := b.Fmt == Bgr24 || b.Fmt == Bgra32
		for y := 0; y < b.H; y++ {
			src := b.Row(y)
			dst := img.Pix[y*img.Stride : y*img.Stride+b.W*4]
			for x, s, d := 0, 0, 0; x < b.W; x, s, d = x+1, s+bpp, d+4 {
				if swap {
					dst[d], dst[d+1], dst[d+2] = src[s+2], src[s+1], src[s]
				} else {
					dst[d], dst[d+1], dst[d+2] = src[s], src[s+1], src[s+2]
				}
				if bpp == 4 {
					dst[d+3] = src[s+3]
				} else {
					dst[d+3] = 0xff
				}
			}
		}
		return img, nil
	}
	return nil, imgerr.Unsupported("no image type for %s", b.Fmt)
}
