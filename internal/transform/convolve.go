package transform

import (
	"image"

	"github.com/AnyUserName/rowscale/internal/interp"
	"github.com/AnyUserName/rowscale/internal/mathutil"
	"github.com/AnyUserName/rowscale/internal/pixel"
)

// convolver runs a separable two-pass convolution over an upstream source.
// Input rows are pulled in forward order and convolved horizontally into a
// ring of ymap.Samples float rows; each output row is then one vertical
// pass over the ring. Raw input rows are kept alongside so that unsharp
// masking can compare each pixel with its blurred value.
//
// Working values are in [0,1]. In linear mode the color channels go through
// the sRGB tables, and alpha, when present, premultiplies color for the
// duration of the convolution.
type convolver struct {
	up     pixel.Source
	xmap   *interp.Map
	ymap   *interp.Map
	ch     int
	alpha  bool
	linear bool

	inRow      int // raw bytes per input row
	raw        []byte
	ring       []float32
	line       []float32
	out        []float32
	first, end int // input rows held in the ring
}

func newConvolver(up pixel.Source, xmap, ymap *interp.Map, linear bool) *convolver {
	f := up.Format()
	ch := f.BytesPerPixel()
	n := ymap.Samples
	c := &convolver{
		up:     up,
		xmap:   xmap,
		ymap:   ymap,
		ch:     ch,
		alpha:  f.HasAlpha(),
		linear: linear,
		inRow:  up.Width() * ch,
		line:   make([]float32, up.Width()*ch),
		out:    make([]float32, xmap.Pixels*ch),
	}
	c.raw = make([]byte, n*c.inRow)
	c.ring = make([]float32, n*xmap.Pixels*ch)
	return c
}

func (c *convolver) slot(y int) int { return y % c.ymap.Samples }

// rawRow returns input row y, which must be held in the ring.
func (c *convolver) rawRow(y int) []byte {
	off := c.slot(y) * c.inRow
	return c.raw[off : off+c.inRow]
}

func (c *convolver) ringRow(y int) []float32 {
	n := c.xmap.Pixels * c.ch
	off := c.slot(y) * n
	return c.ring[off : off+n]
}

// load makes input rows [start, start+Samples) resident.
func (c *convolver) load(start int) error {
	n := c.ymap.Samples
	if start < c.first || start > c.end {
		c.first, c.end = start, start
	}
	from, to := max(c.end, start), start+n
	if from < to {
		// Upstream rows arrive in one call; the ring slots they land in may
		// wrap, so read into the slots in at most two runs.
		for from < to {
			s := c.slot(from)
			run := min(to-from, n-s)
			r := image.Rect(0, from, c.up.Width(), from+run)
			if err := c.up.CopyPixels(r, c.inRow, c.raw[s*c.inRow:]); err != nil {
				return err
			}
			for y := from; y < from+run; y++ {
				c.horizontal(c.rawRow(y), c.ringRow(y))
			}
			from += run
		}
	}
	c.first, c.end = start, to
	return nil
}

func (c *convolver) toFloat(src []byte) {
	ch := c.ch
	for x := 0; x < len(src); x += ch {
		if !c.alpha {
			for i := range ch {
				c.line[x+i] = c.decode(src[x+i])
			}
			continue
		}
		a := float32(src[x+ch-1]) / 255
		for i := range ch - 1 {
			c.line[x+i] = c.decode(src[x+i]) * a
		}
		c.line[x+ch-1] = a
	}
}

func (c *convolver) decode(v byte) float32 {
	if c.linear {
		return mathutil.ToLinear(v)
	}
	return float32(v) * (1.0 / 255)
}

func (c *convolver) encode(v float32) byte {
	if c.linear {
		return mathutil.FromLinear(v)
	}
	return mathutil.FixToByte(v)
}

func (c *convolver) horizontal(src []byte, dst []float32) {
	c.toFloat(src)
	ch := c.ch
	for ox := range c.xmap.Pixels {
		start, w := c.xmap.Row(ox)
		o := ox * ch
		for i := range ch {
			var sum float32
			in := c.line[start*ch+i:]
			for k, wk := range w {
				sum += wk * in[k*ch]
			}
			dst[o+i] = sum
		}
	}
}

// row computes output row oy as floats in working space.
func (c *convolver) row(oy int) ([]float32, error) {
	start, w := c.ymap.Row(oy)
	if err := c.load(start); err != nil {
		return nil, err
	}
	clear(c.out)
	for k, wk := range w {
		in := c.ringRow(start + k)
		for i, v := range in {
			c.out[i] += wk * v
		}
	}
	return c.out, nil
}

// store encodes working values v for columns [x0, x1) into dst.
func (c *convolver) store(dst []byte, v []float32, x0, x1 int) {
	ch := c.ch
	for x := x0; x < x1; x++ {
		p := v[x*ch : x*ch+ch]
		d := dst[(x-x0)*ch:]
		if !c.alpha {
			for i := range ch {
				d[i] = c.encode(p[i])
			}
			continue
		}
		a := mathutil.Clamp(p[ch-1], 0, 1)
		if a <= 0 {
			clear(d[:ch])
			continue
		}
		for i := range ch - 1 {
			d[i] = c.encode(mathutil.Clamp(p[i]/a, 0, 1))
		}
		d[ch-1] = mathutil.FixToByte(a)
	}
}
