package decoder

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/mathutil"
	"github.com/AnyUserName/rowscale/internal/pixel"
	"github.com/AnyUserName/rowscale/internal/transform"
)

// maxNativeRatio matches the smallest JPEG DCT scale, 1/8.
const maxNativeRatio = 8

// ImageSource adapts a decoded image.Image to pixel.Source. Gray, CMYK and
// Y'CbCr images are served in place; everything else is normalized to
// NRGBA once at construction.
type ImageSource struct {
	img    image.Image
	gray   *image.Gray
	cmyk   *image.CMYK
	ycc    *image.YCbCr
	nrgba  *image.NRGBA
	format pixel.Format
	native bool
	closed bool
}

// NewImageSource wraps img. native enables NativeScale, which only codecs
// with cheap reduced decodes should advertise.
func NewImageSource(img image.Image, native bool) (*ImageSource, error) {
	if img.Bounds().Empty() {
		return nil, imgerr.Invalid("empty image")
	}
	s := &ImageSource{img: img, native: native}
	switch m := img.(type) {
	case *image.Gray:
		s.gray, s.format = m, pixel.Grey8
	case *image.CMYK:
		s.cmyk, s.format = m, pixel.Cmyk32
	case *image.YCbCr:
		s.ycc, s.format = m, pixel.Bgr24
	default:
		n, ok := img.(*image.NRGBA)
		if !ok {
			n = imaging.Clone(img)
		}
		s.nrgba = n
		s.format = pixel.Rgba32
		if n.Opaque() {
			s.format = pixel.Rgb24
		}
	}
	return s, nil
}

func (s *ImageSource) Width() int           { return s.img.Bounds().Dx() }
func (s *ImageSource) Height() int          { return s.img.Bounds().Dy() }
func (s *ImageSource) Format() pixel.Format { return s.format }

// Close drops the decoded pixels.
func (s *ImageSource) Close() error {
	if !s.closed {
		s.closed = true
		s.img, s.gray, s.cmyk, s.ycc, s.nrgba = nil, nil, nil, nil, nil
	}
	return nil
}

func (s *ImageSource) CopyPixels(r image.Rectangle, stride int, buf []byte) error {
	if s.closed {
		return imgerr.Invalid("read from closed image source")
	}
	if err := pixel.CheckCopy(s, r, stride, buf); err != nil {
		return err
	}
	ar := r.Add(s.img.Bounds().Min)
	switch {
	case s.gray != nil:
		copyRows(buf, stride, s.gray.Pix, s.gray.Stride, s.gray.PixOffset(ar.Min.X, ar.Min.Y), r.Dx(), r.Dy())
	case s.cmyk != nil:
		copyRows(buf, stride, s.cmyk.Pix, s.cmyk.Stride, s.cmyk.PixOffset(ar.Min.X, ar.Min.Y), r.Dx()*4, r.Dy())
	case s.ycc != nil:
		for y := ar.Min.Y; y < ar.Max.Y; y++ {
			out := buf[(y-ar.Min.Y)*stride:]
			for x := ar.Min.X; x < ar.Max.X; x++ {
				yi, ci := s.ycc.YOffset(x, y), s.ycc.COffset(x, y)
				red, green, blue := color.YCbCrToRGB(s.ycc.Y[yi], s.ycc.Cb[ci], s.ycc.Cr[ci])
				o := (x - ar.Min.X) * 3
				out[o], out[o+1], out[o+2] = blue, green, red
			}
		}
	case s.format == pixel.Rgba32:
		copyRows(buf, stride, s.nrgba.Pix, s.nrgba.Stride, s.nrgba.PixOffset(ar.Min.X, ar.Min.Y), r.Dx()*4, r.Dy())
	default:
		for y := ar.Min.Y; y < ar.Max.Y; y++ {
			in := s.nrgba.Pix[s.nrgba.PixOffset(ar.Min.X, y):]
			out := buf[(y-ar.Min.Y)*stride:]
			for x := range r.Dx() {
				out[x*3], out[x*3+1], out[x*3+2] = in[x*4], in[x*4+1], in[x*4+2]
			}
		}
	}
	return nil
}

func copyRows(dst []byte, dstStride int, src []byte, srcStride, off, n, rows int) {
	for y := range rows {
		copy(dst[y*dstStride:y*dstStride+n], src[off+y*srcStride:])
	}
}

// ─── planar capability ────────────────────────────────────────

// PlanarLayout reports the chroma subsampling of a Y'CbCr image. 4:1:1 and
// 4:1:0 have no planar form here.
func (s *ImageSource) PlanarLayout() (pixel.PlanarLayout, bool) {
	if s.ycc == nil {
		return pixel.PlanarLayout{}, false
	}
	switch s.ycc.SubsampleRatio {
	case image.YCbCrSubsampleRatio444:
		return pixel.PlanarLayout{RatioX: 1, RatioY: 1}, true
	case image.YCbCrSubsampleRatio422:
		return pixel.PlanarLayout{RatioX: 2, RatioY: 1}, true
	case image.YCbCrSubsampleRatio420:
		return pixel.PlanarLayout{RatioX: 2, RatioY: 2}, true
	case image.YCbCrSubsampleRatio440:
		return pixel.PlanarLayout{RatioX: 1, RatioY: 2}, true
	}
	return pixel.PlanarLayout{}, false
}

func (s *ImageSource) CopyPlanes(r image.Rectangle, luma []byte, lumaStride int, chroma []byte, chromaStride int) error {
	layout, ok := s.PlanarLayout()
	if !ok {
		return imgerr.Unsupported("planar read of %s", s.format)
	}
	if s.closed {
		return imgerr.Invalid("read from closed image source")
	}
	if err := pixel.CheckArea(pixel.Bounds(s), 1, r, lumaStride, luma); err != nil {
		return err
	}
	rx, ry := layout.RatioX, layout.RatioY
	if r.Min.X%rx != 0 || r.Min.Y%ry != 0 {
		return imgerr.Invalid("planar rect %v not aligned to %dx%d", r, rx, ry)
	}
	cr := image.Rect(r.Min.X/rx, r.Min.Y/ry, mathutil.DivCeil(r.Max.X, rx), mathutil.DivCeil(r.Max.Y, ry))
	if err := pixel.CheckArea(cr, 2, cr, chromaStride, chroma); err != nil {
		return err
	}

	org := s.ycc.Rect.Min
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := s.ycc.YOffset(org.X+r.Min.X, org.Y+y)
		copy(luma[(y-r.Min.Y)*lumaStride:], s.ycc.Y[off:off+r.Dx()])
	}
	for cy := cr.Min.Y; cy < cr.Max.Y; cy++ {
		out := chroma[(cy-cr.Min.Y)*chromaStride:]
		for cx := cr.Min.X; cx < cr.Max.X; cx++ {
			ci := s.ycc.COffset(org.X+cx*rx, org.Y+cy*ry)
			o := (cx - cr.Min.X) * 2
			out[o], out[o+1] = s.ycc.Cb[ci], s.ycc.Cr[ci]
		}
	}
	return nil
}

// ─── native scaling ───────────────────────────────────────────

// NativeScale reduces the image by the largest power of two no greater
// than maxRatio (at most 8), the way a JPEG decoder scales DCT blocks: every
// output pixel is the mean of the factor×factor block it covers. Y'CbCr
// images are reduced plane by plane so they stay planar. The returned
// source owns nothing of s; s stays usable.
func (s *ImageSource) NativeScale(maxRatio int) (pixel.Source, int, error) {
	if !s.native || s.closed {
		return nil, 1, nil
	}
	factor := min(mathutil.FloorPow2(float64(maxRatio)), maxNativeRatio)
	if factor < 2 {
		return nil, 1, nil
	}

	var scaled image.Image
	var err error
	if s.ycc != nil && s.ycc.Rect.Min == (image.Point{}) {
		scaled, err = reduceYCbCr(s.ycc, factor)
	} else {
		var buf *pixel.Buffer
		if buf, err = reduce(s, factor); err == nil {
			scaled, err = buf.Image()
		}
	}
	if err != nil {
		return nil, 1, fmt.Errorf("native scale: %w", err)
	}
	out, err := NewImageSource(scaled, false)
	if err != nil {
		return nil, 1, err
	}
	return out, factor, nil
}

// reduce box-averages src by factor. The stage is drained and never
// closed, so src stays open.
func reduce(src pixel.Source, factor int) (*pixel.Buffer, error) {
	hs, err := transform.NewHybridScale(src, factor)
	if err != nil {
		return nil, err
	}
	return pixel.Drain(context.Background(), hs)
}

func reduceYCbCr(src *image.YCbCr, factor int) (*image.YCbCr, error) {
	plane := func(pix []byte, stride, w, h int) *pixel.Buffer {
		return &pixel.Buffer{W: w, H: h, Fmt: pixel.Grey8, Pix: pix, Stride: stride}
	}
	y, err := reduce(plane(src.Y, src.YStride, src.Rect.Dx(), src.Rect.Dy()), factor)
	if err != nil {
		return nil, err
	}
	// ceil(ceil(n/f)/r) == ceil(ceil(n/r)/f), so reduced chroma planes
	// match the chroma size of the reduced luma.
	cw, ch := chromaSize(src.Rect, src.SubsampleRatio)
	cb, err := reduce(plane(src.Cb, src.CStride, cw, ch), factor)
	if err != nil {
		return nil, err
	}
	cr, err := reduce(plane(src.Cr, src.CStride, cw, ch), factor)
	if err != nil {
		return nil, err
	}
	return &image.YCbCr{
		Y:              y.Pix,
		Cb:             cb.Pix,
		Cr:             cr.Pix,
		YStride:        y.Stride,
		CStride:        cb.Stride,
		SubsampleRatio: src.SubsampleRatio,
		Rect:           image.Rect(0, 0, y.W, y.H),
	}, nil
}

func chromaSize(r image.Rectangle, ratio image.YCbCrSubsampleRatio) (int, int) {
	w, h := r.Dx(), r.Dy()
	switch ratio {
	case image.YCbCrSubsampleRatio422:
		return mathutil.DivCeil(w, 2), h
	case image.YCbCrSubsampleRatio420:
		return mathutil.DivCeil(w, 2), mathutil.DivCeil(h, 2)
	case image.YCbCrSubsampleRatio440:
		return w, mathutil.DivCeil(h, 2)
	case image.YCbCrSubsampleRatio411:
		return mathutil.DivCeil(w, 4), h
	case image.YCbCrSubsampleRatio410:
		return mathutil.DivCeil(w, 4), mathutil.DivCeil(h, 2)
	}
	return w, h
}
