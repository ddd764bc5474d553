package transform

import (
	"image"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/mathutil"
	"github.com/AnyUserName/rowscale/internal/pixel"
)

// HybridScale is the cheap half of a hybrid downscale: it averages square
// blocks of ratio×ratio input pixels, leaving the quality kernel a much
// smaller image to finish. Blocks clipped by the right or bottom edge
// average only the pixels they hold.
type HybridScale struct {
	pixel.Link
	ratio int
	w, h  int
	line  []byte
	acc   []uint32
}

// NewHybridScale reduces up by ratio, a power of two. A ratio of 1 returns
// up unchanged.
func NewHybridScale(up pixel.Source, ratio int) (pixel.Source, error) {
	if ratio == 1 {
		return up, nil
	}
	if ratio < 1 || !mathutil.IsPow2(ratio) {
		return nil, imgerr.Invalid("hybrid ratio %d is not a power of two", ratio)
	}
	switch up.Format() {
	case pixel.Grey8, pixel.Y8, pixel.CbCr16, pixel.Bgr24, pixel.Bgra32, pixel.Rgb24, pixel.Rgba32, pixel.Cmyk32:
	default:
		return nil, imgerr.Unsupported("hybrid scaling of %s", up.Format())
	}
	return &HybridScale{
		Link:  pixel.Link{Up: up},
		ratio: ratio,
		w:     mathutil.DivCeil(up.Width(), ratio),
		h:     mathutil.DivCeil(up.Height(), ratio),
	}, nil
}

func (s *HybridScale) Width() int           { return s.w }
func (s *HybridScale) Height() int          { return s.h }
func (s *HybridScale) Format() pixel.Format { return s.Up.Format() }

func (s *HybridScale) CopyPixels(r image.Rectangle, stride int, buf []byte) error {
	if err := pixel.CheckCopy(s, r, stride, buf); err != nil {
		return err
	}
	k := s.ratio
	ch := s.Format().BytesPerPixel()
	alpha := s.Format().HasAlpha()
	x0, x1 := r.Min.X*k, min(r.Max.X*k, s.Up.Width())
	inRow := (x1 - x0) * ch
	s.line = growBuf(s.line, inRow*k)
	if cap(s.acc) < r.Dx()*ch {
		s.acc = make([]uint32, r.Dx()*ch)
	}
	acc := s.acc[:r.Dx()*ch]

	for oy := r.Min.Y; oy < r.Max.Y; oy++ {
		y0, y1 := oy*k, min(oy*k+k, s.Up.Height())
		if err := s.Up.CopyPixels(image.Rect(x0, y0, x1, y1), inRow, s.line); err != nil {
			return err
		}
		clear(acc)
		for y := range y1 - y0 {
			row := s.line[y*inRow : (y+1)*inRow]
			for x := range x1 - x0 {
				o := (x / k) * ch
				p := row[x*ch : x*ch+ch]
				if alpha {
					a := uint32(p[3])
					acc[o] += uint32(p[0]) * a
					acc[o+1] += uint32(p[1]) * a
					acc[o+2] += uint32(p[2]) * a
					acc[o+3] += a
					continue
				}
				for c := range ch {
					acc[o+c] += uint32(p[c])
				}
			}
		}

		out := buf[(oy-r.Min.Y)*stride:]
		bh := uint32(y1 - y0)
		for ox := range r.Dx() {
			bw := uint32(min(x0+(ox+1)*k, x1) - (x0 + ox*k))
			n := bw * bh
			o := ox * ch
			if alpha {
				a := acc[o+3]
				if a == 0 {
					out[o], out[o+1], out[o+2], out[o+3] = 0, 0, 0, 0
					continue
				}
				out[o] = byte((acc[o] + a/2) / a)
				out[o+1] = byte((acc[o+1] + a/2) / a)
				out[o+2] = byte((acc[o+2] + a/2) / a)
				out[o+3] = byte((a + n/2) / n)
				continue
			}
			for c := range ch {
				out[o+c] = byte((acc[o+c] + n/2) / n)
			}
		}
	}
	return nil
}
