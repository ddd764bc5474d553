package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/AnyUserName/rowscale/internal/decoder"
	"github.com/AnyUserName/rowscale/internal/encoder"
	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/resize"
)

func pngImage(t *testing.T, img image.Image) *decoder.Image {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	im, err := decoder.Decode(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return im
}

func TestProcess(t *testing.T) {
	im := pngImage(t, gradient(90, 60))
	proc := NewProcessor(encoder.NewRegistry(), ChainOptions{})

	tests := []struct {
		name string
		opts map[string]string
		w, h int
		ext  string
	}{
		{"jpeg", map[string]string{"width": "45", "format": "jpeg"}, 45, 30, "jpg"},
		{"png crop", map[string]string{"width": "20", "height": "20", "mode": "crop", "format": "png"}, 20, 20, "png"},
		{"png8", map[string]string{"width": "30", "format": "png8"}, 30, 20, "png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := resize.ParseOptions(tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			res, err := proc.Process(context.Background(), im, s)
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Key) != 8 || res.Extension != tt.ext {
				t.Errorf("key %q, extension %q", res.Key, res.Extension)
			}
			out, err := decodeAny(res.Data)
			if err != nil {
				t.Fatal(err)
			}
			if b := out.Bounds(); b.Dx() != tt.w || b.Dy() != tt.h {
				t.Errorf("encoded %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.w, tt.h)
			}
		})
	}
}

func decodeAny(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

func TestPlanKeyTracksOptions(t *testing.T) {
	im := pngImage(t, flat(40, 40, color.NRGBA{1, 2, 3, 255}))
	proc := NewProcessor(encoder.NewRegistry(), ChainOptions{})

	a, err := proc.Plan(im, resize.Settings{Width: 20, Format: "png"})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := proc.Plan(im, resize.Settings{Width: 20, Format: "png"})
	c, _ := proc.Plan(im, resize.Settings{Width: 21, Format: "png"})
	if a.Key != b.Key {
		t.Errorf("same request, keys %s and %s", a.Key, b.Key)
	}
	if a.Key == c.Key {
		t.Errorf("different widths share key %s", a.Key)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	im := pngImage(t, flat(8, 8, color.NRGBA{A: 255}))
	proc := NewProcessor(encoder.NewRegistry(), ChainOptions{})
	plan, err := proc.Plan(im, resize.Settings{Width: 4, Format: "png"})
	if err != nil {
		t.Fatal(err)
	}
	plan.Resolved.Format = "bmp"
	if _, err := proc.Render(context.Background(), im, plan); !errors.Is(err, imgerr.ErrUnsupported) {
		t.Errorf("render bmp: %v", err)
	}
}
