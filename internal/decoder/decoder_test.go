package decoder

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/pixel"
)

// ─── fixtures ─────────────────────────────────────────────────

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	for y := range h {
		for x := range w {
			img.Y[img.YOffset(x, y)] = uint8((x*3 + y*7) % 256)
			ci := img.COffset(x, y)
			img.Cb[ci] = uint8(100 + x%8)
			img.Cr[ci] = uint8(150 - y%8)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// segment builds a JPEG marker segment.
func segment(marker byte, payload []byte) []byte {
	n := len(payload) + 2
	return append([]byte{0xff, marker, byte(n >> 8), byte(n)}, payload...)
}

// spliceAfterSOI inserts segments right after the SOI marker.
func spliceAfterSOI(data []byte, segs ...[]byte) []byte {
	out := append([]byte{}, data[:2]...)
	for _, s := range segs {
		out = append(out, s...)
	}
	return append(out, data[2:]...)
}

// exifOrientation is a big-endian TIFF block whose IFD0 holds only the
// orientation tag.
func exifOrientation(o byte) []byte {
	tiff := []byte{
		'M', 'M', 0, 42, 0, 0, 0, 8,
		0, 1, // one entry
		0x01, 0x12, 0, 3, 0, 0, 0, 1, 0, o, 0, 0,
		0, 0, 0, 0,
	}
	return append([]byte("Exif\x00\x00"), tiff...)
}

func iccChunk(seq, count byte, data string) []byte {
	return append(append([]byte("ICC_PROFILE\x00"), seq, count), data...)
}

// ─── tests ────────────────────────────────────────────────────

func TestDecodePNGWithAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Pix[3] = 0
	im, err := Decode(encodePNG(t, img))
	if err != nil {
		t.Fatal(err)
	}
	info := im.Info()
	if info.Format != "png" || len(info.Frames) != 1 {
		t.Fatalf("info %+v", info)
	}
	if g := info.Frames[0]; g.Width != 6 || g.Height != 4 || !g.HasAlpha || g.Rotated90 {
		t.Errorf("geometry %+v", g)
	}
	src, err := im.Frame(0)
	if err != nil {
		t.Fatal(err)
	}
	if src.Format() != pixel.Rgba32 {
		t.Errorf("format %s, want Rgba32", src.Format())
	}
	if _, err := im.Frame(1); !errors.Is(err, imgerr.ErrInvalidConfiguration) {
		t.Errorf("frame 1: %v", err)
	}
}

func TestDecodeOpaquePNGDropsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Pix[0] = 10
	im, err := Decode(encodePNG(t, img))
	if err != nil {
		t.Fatal(err)
	}
	src, _ := im.Frame(0)
	if src.Format() != pixel.Rgb24 {
		t.Fatalf("format %s, want Rgb24", src.Format())
	}
	buf := make([]byte, 12)
	if err := src.CopyPixels(image.Rect(0, 0, 2, 2), 6, buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 10 || buf[1] != 255 {
		t.Errorf("pixels %v", buf)
	}
}

func TestJPEGPlanes(t *testing.T) {
	im, err := Decode(encodeJPEG(t, 33, 17))
	if err != nil {
		t.Fatal(err)
	}
	src, err := im.Frame(0)
	if err != nil {
		t.Fatal(err)
	}
	layout, ok := src.PlanarLayout()
	if !ok || layout != (pixel.PlanarLayout{RatioX: 2, RatioY: 2}) {
		t.Fatalf("layout %+v, %v", layout, ok)
	}

	r := image.Rect(2, 4, 33, 17)
	luma := make([]byte, r.Dx()*r.Dy())
	chroma := make([]byte, 16*7*2)
	if err := src.CopyPlanes(r, luma, r.Dx(), chroma, 32); err != nil {
		t.Fatal(err)
	}
	ycc := im.frames[0].(*image.YCbCr)
	if luma[0] != ycc.Y[ycc.YOffset(2, 4)] {
		t.Errorf("luma origin %d, want %d", luma[0], ycc.Y[ycc.YOffset(2, 4)])
	}
	if ci := ycc.COffset(2, 4); chroma[0] != ycc.Cb[ci] || chroma[1] != ycc.Cr[ci] {
		t.Errorf("chroma origin %d,%d", chroma[0], chroma[1])
	}
	if err := src.CopyPlanes(image.Rect(1, 0, 4, 2), luma, 3, chroma, 4); !errors.Is(err, imgerr.ErrInvalidConfiguration) {
		t.Errorf("unaligned rect: %v", err)
	}

	scaled, factor, err := src.NativeScale(5)
	if err != nil {
		t.Fatal(err)
	}
	if factor != 4 || scaled.Width() != 9 || scaled.Height() != 5 {
		t.Fatalf("native scale: factor %d, %dx%d", factor, scaled.Width(), scaled.Height())
	}
	if _, ok := scaled.(pixel.PlanarSource).PlanarLayout(); !ok {
		t.Error("scaled Y'CbCr source lost its planes")
	}
}

// stripes lights columns 3 and 4 of every 8, a quarter of all pixels.
func stripes(x int) uint8 {
	if x%8 == 3 || x%8 == 4 {
		return 255
	}
	return 0
}

func TestNativeScaleAveragesBlocks(t *testing.T) {
	ycc := image.NewYCbCr(image.Rect(0, 0, 256, 256), image.YCbCrSubsampleRatio420)
	for y := range 256 {
		for x := range 256 {
			ycc.Y[ycc.YOffset(x, y)] = stripes(x)
		}
	}
	for i := range ycc.Cb {
		ycc.Cb[i], ycc.Cr[i] = 128, 128
	}
	gray := image.NewGray(image.Rect(0, 0, 256, 256))
	for y := range 256 {
		for x := range 256 {
			gray.Pix[gray.PixOffset(x, y)] = stripes(x)
		}
	}

	for _, img := range []image.Image{ycc, gray} {
		src, err := NewImageSource(img, true)
		if err != nil {
			t.Fatal(err)
		}
		scaled, factor, err := src.NativeScale(8)
		if err != nil {
			t.Fatal(err)
		}
		if factor != 8 || scaled.Width() != 32 || scaled.Height() != 32 {
			t.Fatalf("%T: factor %d, %dx%d", img, factor, scaled.Width(), scaled.Height())
		}
		var luma []byte
		switch m := scaled.(*ImageSource).img.(type) {
		case *image.YCbCr:
			luma = m.Y
			if m.Cb[0] != 128 || m.Cr[len(m.Cr)-1] != 128 {
				t.Errorf("chroma %d,%d", m.Cb[0], m.Cr[len(m.Cr)-1])
			}
		case *image.Gray:
			luma = m.Pix
		default:
			t.Fatalf("scaled %T", m)
		}
		for i, v := range luma {
			if v < 63 || v > 65 {
				t.Fatalf("%T: sample %d = %d, want the block mean 64", img, i, v)
			}
		}
	}
}

func TestNativeScaleOnlyForJPEG(t *testing.T) {
	im, err := Decode(encodePNG(t, image.NewGray(image.Rect(0, 0, 16, 16))))
	if err != nil {
		t.Fatal(err)
	}
	src, _ := im.Frame(0)
	if s, factor, err := src.NativeScale(8); s != nil || factor != 1 || err != nil {
		t.Errorf("png native scale: %v, %d, %v", s, factor, err)
	}
	if src.Format() != pixel.Grey8 {
		t.Errorf("format %s, want Grey8", src.Format())
	}
}

func TestJPEGMetadataAndOrientation(t *testing.T) {
	data := spliceAfterSOI(encodeJPEG(t, 8, 4),
		segment(0xe1, exifOrientation(6)),
		segment(0xe2, iccChunk(2, 2, "world")),
		segment(0xe2, iccChunk(1, 2, "hello ")),
	)
	im, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	g := im.Info().Frames[0]
	if g.Width != 8 || g.Height != 4 || !g.Rotated90 {
		t.Errorf("geometry %+v, want stored 8x4 rotated", g)
	}
	src, err := im.Frame(0)
	if err != nil {
		t.Fatal(err)
	}
	if w, h := g.Displayed(); src.Width() != w || src.Height() != h || w != 4 {
		t.Errorf("frame %dx%d, displayed %dx%d", src.Width(), src.Height(), w, h)
	}
	if icc, ok := im.Meta.Record("icc"); !ok || string(icc) != "hello world" {
		t.Errorf("icc %q, %v", icc, ok)
	}
	if exif, ok := im.Meta.Record("exif"); !ok || string(exif[:2]) != "MM" {
		t.Errorf("exif %q, %v", exif, ok)
	}
}

func TestGIFFramesComposite(t *testing.T) {
	pal := color.Palette{color.Transparent, color.NRGBA{255, 0, 0, 255}, color.NRGBA{0, 0, 255, 255}}
	f0 := image.NewPaletted(image.Rect(0, 0, 4, 4), pal)
	for i := range f0.Pix {
		f0.Pix[i] = 1
	}
	f1 := image.NewPaletted(image.Rect(2, 2, 4, 4), pal)
	for i := range f1.Pix {
		f1.Pix[i] = 2
	}
	var buf bytes.Buffer
	err := gif.EncodeAll(&buf, &gif.GIF{
		Image:    []*image.Paletted{f0, f1},
		Delay:    []int{5, 20},
		Disposal: []byte{gif.DisposalNone, gif.DisposalBackground},
		Config:   image.Config{Width: 4, Height: 4, ColorModel: pal},
	})
	if err != nil {
		t.Fatal(err)
	}
	im, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if im.FrameCount() != 2 || len(im.Info().Frames) != 2 {
		t.Fatalf("frames %d", im.FrameCount())
	}
	if im.Meta.Frames[1].Delay != 200*time.Millisecond || im.Meta.Frames[1].Disposal != "background" {
		t.Errorf("frame 1 meta %+v", im.Meta.Frames[1])
	}
	second := im.frames[1].(*image.NRGBA)
	if c := second.NRGBAAt(0, 0); c.R != 255 {
		t.Errorf("frame 1 lost the red background: %v", c)
	}
	if c := second.NRGBAAt(3, 3); c.B != 255 {
		t.Errorf("frame 1 patch %v, want blue", c)
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jpg")
	data := encodeJPEG(t, 10, 10)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	im, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	info := im.Info()
	if info.Size != int64(len(data)) || info.ModTime.IsZero() || info.Format != "jpeg" {
		t.Errorf("info %+v", info)
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.jpg")); !errors.Is(err, imgerr.ErrUpstreamIO) {
		t.Errorf("missing file: %v", err)
	}
}
