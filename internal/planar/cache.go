// Package planar holds decoded luma and chroma rows of a subsampled Y'CbCr
// frame in a sliding window, so that the luma and chroma resamplers can read
// overlapping, out-of-step row ranges without a full-frame decode.
package planar

import (
	"image"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/mathutil"
	"github.com/AnyUserName/rowscale/internal/pixel"
)

// DefaultInitialRows is the luma window height a new cache starts with.
const DefaultInitialRows = 16

// Options tunes the window.
type Options struct {
	// InitialRows is the starting luma window height. Zero means
	// DefaultInitialRows.
	InitialRows int
	// MaxWindowBytes caps the combined size of both plane buffers. Zero
	// means unlimited.
	MaxWindowBytes int
}

// Stats counts the work done by a cache.
type Stats struct {
	Decodes     int // CopyPlanes calls
	RowsDecoded int // luma rows delivered by those calls
	Grows       int
	Shifts      int
	WindowRows  int // current luma window height
}

const (
	planeY = iota
	planeC
)

// Cache is a window over the planes of one frame. It is not safe for
// concurrent use; the Luma and Chroma readers share its state.
type Cache struct {
	src          pixel.PlanarSource
	layout       pixel.PlanarLayout
	crop         image.Rectangle
	lumaW, lumaH int
	chromaW      int
	chromaH      int
	lumaStride   int
	chromaStride int
	maxBytes     int
	height       int // window height in luma rows
	start        int // first luma row held, aligned to RatioY
	rows         int // valid luma rows from start
	luma, chroma []byte
	cursor       [2]int
	readers      [2]*reader
	open         int
	closed       bool
	stats        Stats
}

// New builds a cache over src restricted to crop. The crop is widened to
// the chroma subsampling grid; Crop reports the rectangle actually held.
func New(src pixel.PlanarSource, crop image.Rectangle, opts Options) (*Cache, error) {
	layout, ok := src.PlanarLayout()
	if !ok {
		return nil, imgerr.Unsupported("source %s is not planar", src.Format())
	}
	if (layout.RatioX != 1 && layout.RatioX != 2) || (layout.RatioY != 1 && layout.RatioY != 2) {
		return nil, imgerr.Unsupported("chroma subsampling %dx%d", layout.RatioX, layout.RatioY)
	}
	if crop.Empty() || !crop.In(pixel.Bounds(src)) {
		return nil, imgerr.Invalid("planar crop %v outside source %dx%d", crop, src.Width(), src.Height())
	}

	x0 := mathutil.AlignDown(crop.Min.X, layout.RatioX)
	y0 := mathutil.AlignDown(crop.Min.Y, layout.RatioY)
	x1 := min(mathutil.AlignUp(crop.Max.X, layout.RatioX), src.Width())
	y1 := min(mathutil.AlignUp(crop.Max.Y, layout.RatioY), src.Height())

	c := &Cache{
		src:      src,
		layout:   layout,
		crop:     image.Rect(x0, y0, x1, y1),
		lumaW:    x1 - x0,
		lumaH:    y1 - y0,
		maxBytes: opts.MaxWindowBytes,
	}
	c.chromaW = mathutil.DivCeil(c.lumaW, layout.RatioX)
	c.chromaH = mathutil.DivCeil(c.lumaH, layout.RatioY)
	c.lumaStride = c.lumaW
	c.chromaStride = c.chromaW * pixel.CbCr16.BytesPerPixel()

	rows := opts.InitialRows
	if rows <= 0 {
		rows = DefaultInitialRows
	}
	if err := c.resize(min(mathutil.AlignUp(rows, layout.RatioY), c.lumaH), 0, 0); err != nil {
		return nil, err
	}
	return c, nil
}

// Crop is the source rectangle held by the cache, aligned to the
// subsampling grid.
func (c *Cache) Crop() image.Rectangle { return c.crop }

// Layout is the chroma subsampling of the source.
func (c *Cache) Layout() pixel.PlanarLayout { return c.layout }

// Stats returns the counters accumulated so far.
func (c *Cache) Stats() Stats {
	s := c.stats
	s.WindowRows = c.height
	return s
}

// Luma returns the Y8 reader. Repeated calls return the same reader.
func (c *Cache) Luma() pixel.Source { return c.reader(planeY) }

// Chroma returns the CbCr16 reader. Repeated calls return the same reader.
func (c *Cache) Chroma() pixel.Source { return c.reader(planeC) }

func (c *Cache) reader(p int) pixel.Source {
	if c.readers[p] == nil {
		c.readers[p] = &reader{c: c, plane: p}
		c.open++
	}
	return c.readers[p]
}

// Close releases the cache when no reader was ever taken. Once readers
// exist, closing the last of them releases it instead.
func (c *Cache) Close() error {
	if c.open > 0 {
		return nil
	}
	return c.release()
}

func (c *Cache) release() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.luma, c.chroma = nil, nil
	return c.src.Close()
}

// ─── window management ───

func (c *Cache) bytesFor(h int) int {
	return h*c.lumaStride + mathutil.DivCeil(h, c.layout.RatioY)*c.chromaStride
}

// resize reallocates both buffers at height h. The keep resident luma rows
// starting at row from move to the front.
func (c *Cache) resize(h, from, keep int) error {
	if c.maxBytes > 0 && c.bytesFor(h) > c.maxBytes {
		return imgerr.Exhausted("planar window of %d rows needs %d bytes, limit %d", h, c.bytesFor(h), c.maxBytes)
	}
	ry := c.layout.RatioY
	luma := make([]byte, h*c.lumaStride)
	chroma := make([]byte, mathutil.DivCeil(h, ry)*c.chromaStride)
	if keep > 0 {
		off := from - c.start
		copy(luma, c.luma[off*c.lumaStride:(off+keep)*c.lumaStride])
		copy(chroma, c.chroma[(off/ry)*c.chromaStride:(off/ry+mathutil.DivCeil(keep, ry))*c.chromaStride])
	}
	c.luma, c.chroma = luma, chroma
	c.height = h
	return nil
}

// ensure makes luma rows [lo, hi) resident on behalf of plane p.
func (c *Cache) ensure(p, lo, hi int) error {
	if c.closed {
		return imgerr.Invalid("planar cache used after close")
	}
	c.cursor[p] = lo
	end := c.start + c.rows
	if lo >= c.start && hi <= end {
		return nil
	}

	ry := c.layout.RatioY
	keepFrom := lo
	if lo >= c.start {
		// Rows the other open reader has not moved past stay resident.
		for q, r := range c.readers {
			if r != nil && !r.closed && c.cursor[q] < keepFrom {
				keepFrom = c.cursor[q]
			}
		}
		keepFrom = max(keepFrom, c.start)
	}
	keepFrom = mathutil.AlignDown(keepFrom, ry)
	kept := 0
	if keepFrom >= c.start && keepFrom < end {
		kept = end - keepFrom
	}

	need := min(mathutil.AlignUp(hi, ry), c.lumaH) - keepFrom
	if need > c.height || (kept*4 >= c.height*3 && c.height < c.lumaH) {
		h := min(max(c.height*2, mathutil.AlignUp(need, ry)), c.lumaH)
		// The old window stays intact if the larger one is refused.
		if err := c.resize(h, keepFrom, kept); err != nil {
			return err
		}
		c.stats.Grows++
		if kept > 0 && keepFrom > c.start {
			c.stats.Shifts++
		}
	} else if kept > 0 && keepFrom > c.start {
		c.shift(keepFrom, kept)
	}
	c.start, c.rows = keepFrom, kept
	return c.fill()
}

// shift moves the kept rows starting at luma row from to the buffer front.
func (c *Cache) shift(from, kept int) {
	off := from - c.start
	ry := c.layout.RatioY
	copy(c.luma, c.luma[off*c.lumaStride:(off+kept)*c.lumaStride])
	copy(c.chroma, c.chroma[(off/ry)*c.chromaStride:(off/ry+mathutil.DivCeil(kept, ry))*c.chromaStride])
	c.stats.Shifts++
}

// fill decodes the rows between the resident tail and the window end in
// a single CopyPlanes call.
func (c *Cache) fill() error {
	from := c.start + c.rows
	to := min(c.start+c.height, c.lumaH)
	if from >= to {
		return nil
	}
	ry := c.layout.RatioY
	r := image.Rect(c.crop.Min.X, c.crop.Min.Y+from, c.crop.Max.X, c.crop.Min.Y+to)
	luma := c.luma[c.rows*c.lumaStride:]
	chroma := c.chroma[(c.rows/ry)*c.chromaStride:]
	if err := c.src.CopyPlanes(r, luma, c.lumaStride, chroma, c.chromaStride); err != nil {
		c.rows = 0
		return imgerr.Upstream("planar decode", err)
	}
	c.rows = to - c.start
	c.stats.Decodes++
	c.stats.RowsDecoded += to - from
	return nil
}

// ─── plane readers ───

type reader struct {
	c      *Cache
	plane  int
	closed bool
}

func (r *reader) Width() int {
	if r.plane == planeY {
		return r.c.lumaW
	}
	return r.c.chromaW
}

func (r *reader) Height() int {
	if r.plane == planeY {
		return r.c.lumaH
	}
	return r.c.chromaH
}

func (r *reader) Format() pixel.Format {
	if r.plane == planeY {
		return pixel.Y8
	}
	return pixel.CbCr16
}

func (r *reader) CopyPixels(rect image.Rectangle, stride int, buf []byte) error {
	if err := pixel.CheckCopy(r, rect, stride, buf); err != nil {
		return err
	}
	c := r.c
	ry := c.layout.RatioY
	lo, hi := rect.Min.Y, rect.Max.Y
	if r.plane == planeC {
		lo, hi = lo*ry, min(hi*ry, c.lumaH)
	}
	if err := c.ensure(r.plane, lo, hi); err != nil {
		return err
	}

	bpp := r.Format().BytesPerPixel()
	n := rect.Dx() * bpp
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		var src []byte
		if r.plane == planeY {
			off := (y-c.start)*c.lumaStride + rect.Min.X
			src = c.luma[off : off+n]
		} else {
			off := (y-c.start/ry)*c.chromaStride + rect.Min.X*bpp
			src = c.chroma[off : off+n]
		}
		copy(buf[(y-rect.Min.Y)*stride:], src)
	}
	return nil
}

// Close releases the reader; the cache and its source go with the last
// open reader.
func (r *reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.c.open--
	if r.c.open == 0 {
		return r.c.release()
	}
	return nil
}
