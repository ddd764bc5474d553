// Package transform implements the stages of the pixel pull chain. Every
// stage wraps exactly one upstream pixel.Source (the YCC merge wraps the two
// plane readers of one planar cache), reports its own geometry and format,
// and pulls only the rows it needs to satisfy a CopyPixels call.
package transform

import (
	"image"
	"image/color"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/pixel"
)

// Crop exposes a rectangle of its upstream.
type Crop struct {
	pixel.Link
	rect image.Rectangle
}

// NewCrop wraps up so that it reports only r.
func NewCrop(up pixel.Source, r image.Rectangle) (*Crop, error) {
	if r.Empty() || !r.In(pixel.Bounds(up)) {
		return nil, imgerr.Invalid("crop %v outside %dx%d", r, up.Width(), up.Height())
	}
	return &Crop{Link: pixel.Link{Up: up}, rect: r}, nil
}

func (c *Crop) Width() int           { return c.rect.Dx() }
func (c *Crop) Height() int          { return c.rect.Dy() }
func (c *Crop) Format() pixel.Format { return c.Up.Format() }

func (c *Crop) CopyPixels(r image.Rectangle, stride int, buf []byte) error {
	if err := pixel.CheckCopy(c, r, stride, buf); err != nil {
		return err
	}
	return c.Up.CopyPixels(r.Add(c.rect.Min), stride, buf)
}

// Palette forwards the upstream palette of an Indexed8 source.
func (c *Crop) Palette() color.Palette {
	if p, ok := c.Up.(pixel.Paletted); ok {
		return p.Palette()
	}
	return nil
}
