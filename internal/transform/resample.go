package transform

import (
	"image"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/interp"
	"github.com/AnyUserName/rowscale/internal/pixel"
)

// Window selects the part of the input a resampler maps onto its output,
// in input pixel units. The zero Window is the whole input.
type Window struct {
	X, Y, W, H float64
}

// ResampleOptions configures NewResample.
type ResampleOptions struct {
	Interpolation interp.Settings
	// Linear convolves color channels in linear light. Plane formats are
	// always convolved as stored.
	Linear bool
	Window Window
}

// Resample scales its upstream to a new size with a separable kernel.
type Resample struct {
	pixel.Link
	w, h int
	conv *convolver
}

// NewResample scales up to width×height. A same-size request over the whole
// input returns up unchanged.
func NewResample(up pixel.Source, width, height int, opts ResampleOptions) (pixel.Source, error) {
	if width <= 0 || height <= 0 {
		return nil, imgerr.Invalid("resample to %dx%d", width, height)
	}
	f := up.Format()
	switch f {
	case pixel.Grey8, pixel.Y8, pixel.CbCr16, pixel.Bgr24, pixel.Bgra32:
	default:
		return nil, imgerr.Unsupported("resampling %s", f)
	}
	win := opts.Window
	if win == (Window{}) {
		if width == up.Width() && height == up.Height() {
			return up, nil
		}
		win = Window{W: float64(up.Width()), H: float64(up.Height())}
	}
	xmap, err := interp.NewWindowMap(up.Width(), width, opts.Interpolation, win.X, win.W)
	if err != nil {
		return nil, err
	}
	ymap, err := interp.NewWindowMap(up.Height(), height, opts.Interpolation, win.Y, win.H)
	if err != nil {
		return nil, err
	}
	linear := opts.Linear && f != pixel.Y8 && f != pixel.CbCr16
	return &Resample{
		Link: pixel.Link{Up: up},
		w:    width,
		h:    height,
		conv: newConvolver(up, xmap, ymap, linear),
	}, nil
}

func (s *Resample) Width() int           { return s.w }
func (s *Resample) Height() int          { return s.h }
func (s *Resample) Format() pixel.Format { return s.Up.Format() }

func (s *Resample) CopyPixels(r image.Rectangle, stride int, buf []byte) error {
	if err := pixel.CheckCopy(s, r, stride, buf); err != nil {
		return err
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		v, err := s.conv.row(y)
		if err != nil {
			return err
		}
		s.conv.store(buf[(y-r.Min.Y)*stride:], v, r.Min.X, r.Max.X)
	}
	return nil
}
