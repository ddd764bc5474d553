package transform

import (
	"image"
	"image/color"
	"math"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/mathutil"
	"github.com/AnyUserName/rowscale/internal/pixel"
)

// ─── Y'CbCr → BGR lookup tables ───────────────────────────────
// JFIF full-range coefficients, pre-computed so the merge loop is integer
// only.
var (
	yccCrR [256]int32 // R = Y + yccCrR[Cr]
	yccCbG [256]int32 // G = Y - yccCbG[Cb] - yccCrG[Cr]
	yccCrG [256]int32
	yccCbB [256]int32 // B = Y + yccCbB[Cb]
)

func init() {
	for i := range 256 {
		v := float64(i - 128)
		yccCrR[i] = int32(math.Round(1.40200 * v))
		yccCbG[i] = int32(math.Round(0.34414 * v))
		yccCrG[i] = int32(math.Round(0.71414 * v))
		yccCbB[i] = int32(math.Round(1.77200 * v))
	}
}

// growBuf returns buf resized to n bytes, reallocating only when it is too
// small.
func growBuf(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}

// ColorConvert brings a source that is not in an RGB working space into
// one. Only CMYK is converted; every other format is passed through by
// NewColorConvert returning its input.
type ColorConvert struct {
	pixel.Link
	line []byte
}

// NewColorConvert returns up unchanged unless it needs converting.
func NewColorConvert(up pixel.Source) pixel.Source {
	if up.Format() != pixel.Cmyk32 {
		return up
	}
	return &ColorConvert{Link: pixel.Link{Up: up}}
}

func (c *ColorConvert) Width() int           { return c.Up.Width() }
func (c *ColorConvert) Height() int          { return c.Up.Height() }
func (c *ColorConvert) Format() pixel.Format { return pixel.Bgr24 }

func (c *ColorConvert) CopyPixels(r image.Rectangle, stride int, buf []byte) error {
	if err := pixel.CheckCopy(c, r, stride, buf); err != nil {
		return err
	}
	w := r.Dx()
	c.line = growBuf(c.line, w*4)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		if err := c.Up.CopyPixels(image.Rect(r.Min.X, y, r.Max.X, y+1), len(c.line), c.line); err != nil {
			return err
		}
		out := buf[(y-r.Min.Y)*stride:]
		for x := range w {
			p := c.line[x*4 : x*4+4]
			red, green, blue := color.CMYKToRGB(p[0], p[1], p[2], p[3])
			out[x*3], out[x*3+1], out[x*3+2] = blue, green, red
		}
	}
	return nil
}

// YccMerge combines a Y8 luma plane and a CbCr16 chroma plane of equal size
// into Bgr24.
type YccMerge struct {
	pixel.Link
	chroma       pixel.Source
	ybuf, cbuf   []byte
	chromaClosed bool
}

// NewYccMerge pairs luma and chroma. Both must already be at output size.
func NewYccMerge(luma, chroma pixel.Source) (*YccMerge, error) {
	if luma.Format() != pixel.Y8 || chroma.Format() != pixel.CbCr16 {
		return nil, imgerr.Unsupported("merge of %s and %s", luma.Format(), chroma.Format())
	}
	if luma.Width() != chroma.Width() || luma.Height() != chroma.Height() {
		return nil, imgerr.Invalid("plane sizes %dx%d and %dx%d differ",
			luma.Width(), luma.Height(), chroma.Width(), chroma.Height())
	}
	return &YccMerge{Link: pixel.Link{Up: luma}, chroma: chroma}, nil
}

func (m *YccMerge) Width() int           { return m.Up.Width() }
func (m *YccMerge) Height() int          { return m.Up.Height() }
func (m *YccMerge) Format() pixel.Format { return pixel.Bgr24 }

func (m *YccMerge) CopyPixels(r image.Rectangle, stride int, buf []byte) error {
	if err := pixel.CheckCopy(m, r, stride, buf); err != nil {
		return err
	}
	w := r.Dx()
	m.ybuf = growBuf(m.ybuf, w)
	m.cbuf = growBuf(m.cbuf, w*2)
	// One row of each plane at a time keeps the planar window of a shared
	// upstream cache near the filter footprint.
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := image.Rect(r.Min.X, y, r.Max.X, y+1)
		if err := m.Up.CopyPixels(row, w, m.ybuf); err != nil {
			return err
		}
		if err := m.chroma.CopyPixels(row, w*2, m.cbuf); err != nil {
			return err
		}
		out := buf[(y-r.Min.Y)*stride:]
		for x := range w {
			yy := int32(m.ybuf[x])
			cb, cr := m.cbuf[x*2], m.cbuf[x*2+1]
			out[x*3] = mathutil.ClampToByte(int(yy + yccCbB[cb]))
			out[x*3+1] = mathutil.ClampToByte(int(yy - yccCbG[cb] - yccCrG[cr]))
			out[x*3+2] = mathutil.ClampToByte(int(yy + yccCrR[cr]))
		}
	}
	return nil
}

// Close releases both planes.
func (m *YccMerge) Close() error {
	err := m.Link.Close()
	if !m.chromaClosed {
		m.chromaClosed = true
		if cerr := m.chroma.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
