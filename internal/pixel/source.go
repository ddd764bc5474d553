package pixel

import (
	"image"
	"image/color"

	"github.com/AnyUserName/rowscale/internal/imgerr"
)

// Source is one stage of a pull chain. A consumer asks the terminal stage
// for a rectangle of pixels and each stage pulls what it needs from the
// single upstream it owns.
//
// Sources are not safe for concurrent use. Close releases the stage and,
// transitively, everything upstream of it; closing twice is a no-op.
type Source interface {
	Width() int
	Height() int
	Format() Format
	// CopyPixels writes the pixels of r into buf, one row every stride
	// bytes. r must lie within the source bounds.
	CopyPixels(r image.Rectangle, stride int, buf []byte) error
	Close() error
}

// NativeScaler is implemented by decoders that can produce a smaller image
// more cheaply than a full decode, as JPEG DCT scaling does.
type NativeScaler interface {
	// NativeScale returns a source reduced by an integer factor no larger
	// than maxRatio, together with the factor actually applied. A factor of
	// 1 means no reduction was possible and the returned source is nil.
	// The reduced source does not depend on the receiver.
	NativeScale(maxRatio int) (Source, int, error)
}

// PlanarLayout describes a Y'CbCr source whose chroma planes are stored at
// reduced resolution.
type PlanarLayout struct {
	// RatioX and RatioY are the chroma subsampling factors, 1 or 2.
	RatioX, RatioY int
}

// PlanarSource is implemented by decoders that can deliver luma and chroma
// without converting to interleaved color.
type PlanarSource interface {
	Source
	// PlanarLayout reports the chroma layout. ok is false when the current
	// frame is not planar.
	PlanarLayout() (layout PlanarLayout, ok bool)
	// CopyPlanes copies the luma rectangle r (origin aligned to the
	// subsampling ratio) as Y8, and the matching chroma rectangle as CbCr16.
	CopyPlanes(r image.Rectangle, luma []byte, lumaStride int, chroma []byte, chromaStride int) error
}

// Paletted is implemented by Indexed8 sources.
type Paletted interface {
	Palette() color.Palette
}

// Bounds returns the full rectangle of src.
func Bounds(src Source) image.Rectangle {
	return image.Rect(0, 0, src.Width(), src.Height())
}

// CheckCopy validates a CopyPixels request against src.
func CheckCopy(src Source, r image.Rectangle, stride int, buf []byte) error {
	return CheckArea(Bounds(src), src.Format().BytesPerPixel(), r, stride, buf)
}

// CheckArea validates that r lies inside bounds and that buf can hold it.
func CheckArea(bounds image.Rectangle, bpp int, r image.Rectangle, stride int, buf []byte) error {
	if r.Empty() || !r.In(bounds) {
		return imgerr.Invalid("area %v outside source %v", r, bounds)
	}
	row := r.Dx() * bpp
	if stride < row {
		return imgerr.Invalid("stride %d smaller than row %d", stride, row)
	}
	if need := (r.Dy()-1)*stride + row; len(buf) < need {
		return imgerr.Invalid("buffer %d bytes, need %d", len(buf), need)
	}
	return nil
}

// Link is embedded by stages that own one upstream source. It provides the
// single disposal path: Close cascades upstream exactly once.
type Link struct {
	Up     Source
	closed bool
}

// Close closes the upstream source the first time it is called.
func (l *Link) Close() error {
	if l.closed || l.Up == nil {
		return nil
	}
	l.closed = true
	return l.Up.Close()
}
