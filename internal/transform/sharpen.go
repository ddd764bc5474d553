package transform

import (
	"image"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/interp"
	"github.com/AnyUserName/rowscale/internal/mathutil"
	"github.com/AnyUserName/rowscale/internal/pixel"
)

// Sharpen applies an unsharp mask: each color sample moves away from its
// gaussian-blurred value by amount percent of the difference, unless the
// difference is below threshold. Alpha is left alone.
type Sharpen struct {
	pixel.Link
	amount    float32
	threshold float32
	conv      *convolver
}

// NewSharpen wraps up with an unsharp mask. A zero amount returns up
// unchanged.
func NewSharpen(up pixel.Source, amount int, radius float64, threshold uint8) (pixel.Source, error) {
	if amount <= 0 {
		return up, nil
	}
	switch up.Format() {
	case pixel.Grey8, pixel.Y8, pixel.Bgr24, pixel.Bgra32:
	default:
		return nil, imgerr.Unsupported("sharpening %s", up.Format())
	}
	xmap, err := interp.NewBlurMap(up.Width(), radius)
	if err != nil {
		return nil, err
	}
	ymap, err := interp.NewBlurMap(up.Height(), radius)
	if err != nil {
		return nil, err
	}
	return &Sharpen{
		Link:      pixel.Link{Up: up},
		amount:    float32(amount) / 100,
		threshold: float32(threshold),
		conv:      newConvolver(up, xmap, ymap, false),
	}, nil
}

func (s *Sharpen) Width() int           { return s.Up.Width() }
func (s *Sharpen) Height() int          { return s.Up.Height() }
func (s *Sharpen) Format() pixel.Format { return s.Up.Format() }

func (s *Sharpen) CopyPixels(r image.Rectangle, stride int, buf []byte) error {
	if err := pixel.CheckCopy(s, r, stride, buf); err != nil {
		return err
	}
	ch := s.conv.ch
	colors := ch
	if s.conv.alpha {
		colors--
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		blur, err := s.conv.row(y)
		if err != nil {
			return err
		}
		src := s.conv.rawRow(y)
		dst := buf[(y-r.Min.Y)*stride:]
		for x := r.Min.X; x < r.Max.X; x++ {
			o := x * ch
			d := dst[(x-r.Min.X)*ch:]
			scale := float32(255)
			if s.conv.alpha {
				d[colors] = src[o+colors]
				if a := blur[o+colors]; a > 0 {
					scale = 255 / a
				}
			}
			for i := range colors {
				v := float32(src[o+i])
				diff := v - blur[o+i]*scale
				if diff < s.threshold && -diff < s.threshold {
					d[i] = src[o+i]
					continue
				}
				d[i] = mathutil.ClampToByte(int(v + diff*s.amount + 0.5))
			}
		}
	}
	return nil
}
