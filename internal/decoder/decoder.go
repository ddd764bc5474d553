// Package decoder turns encoded image files into pixel.Source frames.
//
// Decoding is delegated to the Go image codecs (plus x/image for BMP, TIFF
// and WebP). Still images go through imaging.Decode so EXIF orientation is
// applied at decode time; GIF animations are composited frame by frame
// honoring each frame's disposal.
package decoder

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/resize"
)

// Image is a decoded file: one or more frames plus opaque metadata.
type Image struct {
	Format string
	Meta   Metadata
	frames []image.Image
	info   resize.ImageInfo
}

// Open reads and decodes the file at path. The file size and modification
// time become part of the image info, and so of every cache key derived
// from it.
func Open(path string) (*Image, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, imgerr.Upstream("stat", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, imgerr.Upstream("read", err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	img.info.ModTime = st.ModTime()
	return img, nil
}

// Decode decodes an in-memory file.
func Decode(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, imgerr.Upstream("decode config", err)
	}
	im := &Image{Format: resize.NormalizeFormat(format)}

	if im.Format == "gif" {
		if err := im.decodeGIF(data); err != nil {
			return nil, err
		}
	} else {
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, imgerr.Upstream("decode", err)
		}
		im.frames = []image.Image{img}
		if im.Format == "jpeg" {
			im.Meta = scanJPEG(data)
		}
	}

	im.info = resize.ImageInfo{Format: im.Format, Size: int64(len(data))}
	for _, f := range im.frames {
		b := f.Bounds()
		// Orientation is applied at decode time; a quarter turn shows up
		// as dimensions swapped against the stored header. Geometry keeps
		// the stored size and flags the turn.
		g := resize.ImageGeometry{Width: b.Dx(), Height: b.Dy(), HasAlpha: !isOpaque(f)}
		if b.Dx() != b.Dy() && b.Dx() == cfg.Height && b.Dy() == cfg.Width {
			g.Width, g.Height, g.Rotated90 = b.Dy(), b.Dx(), true
		}
		im.info.Frames = append(im.info.Frames, g)
	}
	return im, nil
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// decodeGIF composites every frame onto the logical screen so each frame
// is a complete picture.
func (im *Image) decodeGIF(data []byte) error {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return imgerr.Upstream("decode gif", err)
	}
	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() && len(g.Image) > 0 {
		screen = g.Image[0].Bounds()
	}
	canvas := image.NewNRGBA(screen)
	im.Meta.LoopCount = g.LoopCount
	for i, frame := range g.Image {
		var saved *image.NRGBA
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			saved = imaging.Clone(canvas)
		}
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		im.frames = append(im.frames, imaging.Clone(canvas))

		delay := 0
		if i < len(g.Delay) {
			delay = g.Delay[i]
		}
		im.Meta.Frames = append(im.Meta.Frames, FrameInfo{
			Delay:    time.Duration(delay) * 10 * time.Millisecond,
			Disposal: disposalName(disposal),
		})

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = saved
		}
	}
	if len(im.frames) == 0 {
		return imgerr.Upstream("decode gif", fmt.Errorf("no frames"))
	}
	return nil
}

// Info describes the file for the resolver and the cache key.
func (im *Image) Info() resize.ImageInfo { return im.info }

// FrameCount is the number of frames.
func (im *Image) FrameCount() int { return len(im.frames) }

// Frame returns a source over frame i, in displayed orientation. JPEG frames can reduce themselves
// natively and, when stored as Y'CbCr, serve luma and chroma planes.
func (im *Image) Frame(i int) (*ImageSource, error) {
	if i < 0 || i >= len(im.frames) {
		return nil, imgerr.Invalid("frame %d out of range, image has %d", i, len(im.frames))
	}
	return NewImageSource(im.frames[i], im.Format == "jpeg")
}
