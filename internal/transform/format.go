package transform

import (
	"image"
	"image/color"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/mathutil"
	"github.com/AnyUserName/rowscale/internal/pixel"
)

// WorkingFormat is the smallest processing format that carries what an
// input of format in needs for the output: Grey8 for grey input, Bgra32 when
// alpha survives, Bgr24 otherwise.
func WorkingFormat(in pixel.Format, keepAlpha bool) pixel.Format {
	switch {
	case in == pixel.Grey8 || in == pixel.Y8:
		return pixel.Grey8
	case in.HasAlpha() && keepAlpha:
		return pixel.Bgra32
	default:
		return pixel.Bgr24
	}
}

type convertFunc func(dst, src []byte, w int, matte [3]byte)

type formatPair struct{ from, to pixel.Format }

var converters = map[formatPair]convertFunc{
	{pixel.Rgb24, pixel.Bgr24}:   swapRB3,
	{pixel.Rgba32, pixel.Bgra32}: swapRB4,
	{pixel.Bgra32, pixel.Bgr24}:  flattenBgra,
	{pixel.Rgba32, pixel.Bgr24}:  flattenRgba,
	{pixel.Grey8, pixel.Bgr24}:   greyToBgr,
	{pixel.Grey8, pixel.Bgra32}:  greyToBgra,
	{pixel.Bgr24, pixel.Bgra32}:  bgrToBgra,
	{pixel.Rgb24, pixel.Bgra32}:  rgbToBgra,
	{pixel.Bgr24, pixel.Grey8}:   bgrToGrey,
	{pixel.Y8, pixel.Grey8}:      copyRow,
}

// FormatConvert converts interleaved pixels between byte layouts.
type FormatConvert struct {
	pixel.Link
	to    pixel.Format
	conv  convertFunc
	matte [3]byte // B, G, R
	line  []byte
}

// NewFormatConvert converts up to format to. Alpha is flattened onto matte
// when to has none; a matte with zero alpha means white. When up is
// already in format to it is returned unchanged.
func NewFormatConvert(up pixel.Source, to pixel.Format, matte color.NRGBA) (pixel.Source, error) {
	from := up.Format()
	if from == to {
		return up, nil
	}
	conv, ok := converters[formatPair{from, to}]
	if !ok {
		return nil, imgerr.Unsupported("unsupported conversion %s to %s", from, to)
	}
	if matte.A == 0 {
		matte = color.NRGBA{255, 255, 255, 255}
	}
	return &FormatConvert{
		Link:  pixel.Link{Up: up},
		to:    to,
		conv:  conv,
		matte: [3]byte{matte.B, matte.G, matte.R},
	}, nil
}

func (f *FormatConvert) Width() int           { return f.Up.Width() }
func (f *FormatConvert) Height() int          { return f.Up.Height() }
func (f *FormatConvert) Format() pixel.Format { return f.to }

func (f *FormatConvert) CopyPixels(r image.Rectangle, stride int, buf []byte) error {
	if err := pixel.CheckCopy(f, r, stride, buf); err != nil {
		return err
	}
	w := r.Dx()
	inRow := w * f.Up.Format().BytesPerPixel()
	f.line = growBuf(f.line, inRow*r.Dy())
	if err := f.Up.CopyPixels(r, inRow, f.line); err != nil {
		return err
	}
	for y := range r.Dy() {
		f.conv(buf[y*stride:], f.line[y*inRow:], w, f.matte)
	}
	return nil
}

// ─── row converters ───────────────────────────────────────────

func swapRB3(dst, src []byte, w int, _ [3]byte) {
	for x := range w {
		i := x * 3
		dst[i], dst[i+1], dst[i+2] = src[i+2], src[i+1], src[i]
	}
}

func swapRB4(dst, src []byte, w int, _ [3]byte) {
	for x := range w {
		i := x * 4
		dst[i], dst[i+1], dst[i+2], dst[i+3] = src[i+2], src[i+1], src[i], src[i+3]
	}
}

func over(c, m, a byte) byte {
	return byte((int(c)*int(a) + int(m)*(255-int(a)) + 127) / 255)
}

func flattenBgra(dst, src []byte, w int, m [3]byte) {
	for x := range w {
		s, d := src[x*4:], dst[x*3:]
		a := s[3]
		d[0], d[1], d[2] = over(s[0], m[0], a), over(s[1], m[1], a), over(s[2], m[2], a)
	}
}

func flattenRgba(dst, src []byte, w int, m [3]byte) {
	for x := range w {
		s, d := src[x*4:], dst[x*3:]
		a := s[3]
		d[0], d[1], d[2] = over(s[2], m[0], a), over(s[1], m[1], a), over(s[0], m[2], a)
	}
}

func greyToBgr(dst, src []byte, w int, _ [3]byte) {
	for x := range w {
		v := src[x]
		dst[x*3], dst[x*3+1], dst[x*3+2] = v, v, v
	}
}

func greyToBgra(dst, src []byte, w int, _ [3]byte) {
	for x := range w {
		v := src[x]
		dst[x*4], dst[x*4+1], dst[x*4+2], dst[x*4+3] = v, v, v, 0xff
	}
}

func bgrToBgra(dst, src []byte, w int, _ [3]byte) {
	for x := range w {
		dst[x*4], dst[x*4+1], dst[x*4+2], dst[x*4+3] = src[x*3], src[x*3+1], src[x*3+2], 0xff
	}
}

func rgbToBgra(dst, src []byte, w int, _ [3]byte) {
	for x := range w {
		dst[x*4], dst[x*4+1], dst[x*4+2], dst[x*4+3] = src[x*3+2], src[x*3+1], src[x*3], 0xff
	}
}

// Rec. 601 luma weights in 15-bit fixed point.
var (
	lumaB = mathutil.Fix15(0.114)
	lumaG = mathutil.Fix15(0.587)
	lumaR = mathutil.Fix15(0.299)
)

func bgrToGrey(dst, src []byte, w int, _ [3]byte) {
	for x := range w {
		s := src[x*3:]
		dst[x] = mathutil.UnFix15ToByte(int32(s[0])*lumaB + int32(s[1])*lumaG + int32(s[2])*lumaR)
	}
}

func copyRow(dst, src []byte, w int, _ [3]byte) {
	copy(dst[:w], src[:w])
}
