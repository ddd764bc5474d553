package resize

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/interp"
	"github.com/AnyUserName/rowscale/internal/mathutil"
)

func geom(w, h int) ImageGeometry { return ImageGeometry{Width: w, Height: h} }

func mustResolve(t *testing.T, s Settings, g ImageGeometry) Resolved {
	t.Helper()
	r, err := ResolveFrame(s, g)
	if err != nil {
		t.Fatalf("resolve %+v on %dx%d: %v", s, g.Width, g.Height, err)
	}
	return r
}

func TestResolveScenarios(t *testing.T) {
	tests := []struct {
		name       string
		s          Settings
		g          ImageGeometry
		wantW      int
		wantH      int
		wantCrop   image.Rectangle
		wantHybrid int
	}{
		{
			name:       "width only keeps aspect and full crop",
			s:          Settings{Width: 200},
			g:          geom(4000, 3000),
			wantW:      200,
			wantH:      150,
			wantCrop:   image.Rect(0, 0, 4000, 3000),
			wantHybrid: 4,
		},
		{
			name:       "max fits square into box",
			s:          Settings{Width: 100, Height: 100, Mode: ModeMax},
			g:          geom(1000, 1000),
			wantW:      100,
			wantH:      100,
			wantCrop:   image.Rect(0, 0, 1000, 1000),
			wantHybrid: 2,
		},
		{
			name:       "favor speed at ratio ten",
			s:          Settings{Width: 100, Height: 100, Hybrid: HybridFavorSpeed},
			g:          geom(1000, 1000),
			wantW:      100,
			wantH:      100,
			wantCrop:   image.Rect(0, 0, 1000, 1000),
			wantHybrid: 4,
		},
		{
			name:       "top-left anchor",
			s:          Settings{Width: 100, Height: 100, Anchor: AnchorTop | AnchorLeft},
			g:          geom(200, 100),
			wantW:      100,
			wantH:      100,
			wantCrop:   image.Rect(0, 0, 100, 100),
			wantHybrid: 1,
		},
		{
			name:       "center anchor crops both sides",
			s:          Settings{Width: 100, Height: 100},
			g:          geom(200, 100),
			wantW:      100,
			wantH:      100,
			wantCrop:   image.Rect(50, 0, 150, 100),
			wantHybrid: 1,
		},
		{
			name:       "bottom-right anchor",
			s:          Settings{Width: 50, Height: 100, Anchor: AnchorBottom | AnchorRight},
			g:          geom(300, 300),
			wantW:      50,
			wantH:      100,
			wantCrop:   image.Rect(150, 0, 300, 300),
			wantHybrid: 1,
		},
		{
			name:       "max does not enlarge",
			s:          Settings{Width: 800, Height: 800, Mode: ModeMax},
			g:          geom(400, 200),
			wantW:      400,
			wantH:      200,
			wantCrop:   image.Rect(0, 0, 400, 200),
			wantHybrid: 1,
		},
		{
			name:       "max with height only",
			s:          Settings{Height: 50, Mode: ModeMax},
			g:          geom(400, 200),
			wantW:      100,
			wantH:      50,
			wantCrop:   image.Rect(0, 0, 400, 200),
			wantHybrid: 1,
		},
		{
			name:       "stretch ignores aspect",
			s:          Settings{Width: 100, Height: 300, Mode: ModeStretch},
			g:          geom(400, 200),
			wantW:      100,
			wantH:      300,
			wantCrop:   image.Rect(0, 0, 400, 200),
			wantHybrid: 1,
		},
		{
			name:       "stretch with one side becomes crop",
			s:          Settings{Width: 100, Mode: ModeStretch},
			g:          geom(400, 200),
			wantW:      100,
			wantH:      50,
			wantCrop:   image.Rect(0, 0, 400, 200),
			wantHybrid: 1,
		},
		{
			name:       "no size copies the source",
			s:          Settings{},
			g:          geom(640, 480),
			wantW:      640,
			wantH:      480,
			wantCrop:   image.Rect(0, 0, 640, 480),
			wantHybrid: 1,
		},
		{
			name:       "no size with explicit crop",
			s:          Settings{Crop: Rect{10, 20, 100, 50}},
			g:          geom(640, 480),
			wantW:      100,
			wantH:      50,
			wantCrop:   image.Rect(10, 20, 110, 70),
			wantHybrid: 1,
		},
		{
			name:       "explicit crop with zero size runs to the edge",
			s:          Settings{Width: 60, Crop: Rect{X: 40, Y: 80}},
			g:          geom(640, 480),
			wantW:      60,
			wantH:      40,
			wantCrop:   image.Rect(40, 80, 640, 480),
			wantHybrid: 2,
		},
		{
			name:       "overhanging crop is clipped",
			s:          Settings{Width: 50, Crop: Rect{600, 400, 200, 200}},
			g:          geom(640, 480),
			wantW:      50,
			wantH:      100,
			wantCrop:   image.Rect(600, 400, 640, 480),
			wantHybrid: 1,
		},
		{
			name:       "crop outside the image is ignored",
			s:          Settings{Width: 64, Crop: Rect{1000, 1000, 10, 10}},
			g:          geom(640, 480),
			wantW:      64,
			wantH:      48,
			wantCrop:   image.Rect(0, 0, 640, 480),
			wantHybrid: 2,
		},
		{
			name:       "rotated source swaps axes",
			s:          Settings{Width: 300},
			g:          ImageGeometry{Width: 800, Height: 600, Rotated90: true},
			wantW:      300,
			wantH:      400,
			wantCrop:   image.Rect(0, 0, 600, 800),
			wantHybrid: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustResolve(t, tt.s, tt.g)
			if r.Width != tt.wantW || r.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", r.Width, r.Height, tt.wantW, tt.wantH)
			}
			if r.Crop != tt.wantCrop {
				t.Errorf("crop = %v, want %v", r.Crop, tt.wantCrop)
			}
			if r.HybridRatio != tt.wantHybrid {
				t.Errorf("hybrid = %d, want %d", r.HybridRatio, tt.wantHybrid)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		s    Settings
		g    ImageGeometry
	}{
		{"negative width", Settings{Width: -1}, geom(10, 10)},
		{"negative height", Settings{Height: -5}, geom(10, 10)},
		{"max without size", Settings{Mode: ModeMax}, geom(10, 10)},
		{"stretch without size", Settings{Mode: ModeStretch}, geom(10, 10)},
		{"quality", Settings{Quality: 101}, geom(10, 10)},
		{"blur", Settings{Interpolation: interp.Settings{Kernel: interp.Linear{}, Blur: 0.4}}, geom(10, 10)},
		{"subsample", Settings{Subsample: 411}, geom(10, 10)},
		{"format", Settings{Format: "bmp"}, geom(10, 10)},
		{"empty source", Settings{Width: 10}, geom(0, 10)},
		{"negative crop", Settings{Crop: Rect{X: -1, Width: 5, Height: 5}}, geom(10, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveFrame(tt.s, tt.g)
			if !errors.Is(err, imgerr.ErrInvalidConfiguration) {
				t.Errorf("err = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestResolveFrameIndex(t *testing.T) {
	info := ImageInfo{Format: "gif", Frames: []ImageGeometry{geom(10, 10), geom(20, 20)}}
	r, err := Resolve(Settings{Frame: 1}, info)
	if err != nil {
		t.Fatal(err)
	}
	if r.Width != 20 || r.Format != "gif" {
		t.Errorf("frame 1: %dx%d %s", r.Width, r.Height, r.Format)
	}
	if _, err := Resolve(Settings{Frame: 2}, info); !errors.Is(err, imgerr.ErrInvalidConfiguration) {
		t.Errorf("frame 2: err = %v", err)
	}
}

func TestCropModePreservesAspect(t *testing.T) {
	for w := 1; w <= 2000; w += 37 {
		for h := 1; h <= 2000; h += 53 {
			for _, req := range []int{1, 7, 100, 333, 4000} {
				if float64(h)*float64(req)/float64(w) < 1 {
					// Derived side clamps at one pixel.
					continue
				}
				r := mustResolve(t, Settings{Width: req}, geom(w, h))
				got := float64(r.Width) / float64(r.Height)
				want := float64(r.Crop.Dx()) / float64(r.Crop.Dy())
				// One pixel of rounding on the derived side.
				lo := float64(r.Width) / float64(r.Height+1)
				hi := float64(r.Width) / math.Max(float64(r.Height-1), 0.5)
				if want < lo || want > hi {
					t.Fatalf("%dx%d w=%d: out %dx%d aspect %.4f, crop aspect %.4f", w, h, req, r.Width, r.Height, got, want)
				}
			}
		}
	}
}

func TestNormalizedIsIdempotent(t *testing.T) {
	requests := []Settings{
		{Width: 200},
		{Height: 77, Sharpen: true},
		{Width: 120, Height: 120, Anchor: AnchorTop | AnchorRight, Sharpen: true},
		{Width: 90, Height: 300, Mode: ModeMax},
		{Width: 90, Height: 300, Mode: ModeStretch, Hybrid: HybridTurbo},
		{Width: 50, Crop: Rect{5, 5, 100, 0}, Format: "png"},
		{Width: 640, Height: 640, Mode: ModeMax, Interpolation: interp.Mitchell},
		{},
	}
	sources := []ImageGeometry{geom(4000, 3000), geom(123, 457), geom(640, 480),
		{Width: 600, Height: 800, Rotated90: true, HasAlpha: true}}
	for _, s := range requests {
		for _, g := range sources {
			first := mustResolve(t, s, g)
			second := mustResolve(t, first.Normalized(), g)
			if first.Crop != second.Crop || first.Width != second.Width || first.Height != second.Height {
				t.Errorf("%+v on %+v: geometry %v -> %v", s, g, first, second)
			}
			if first.ScaleRatio != second.ScaleRatio || first.HybridRatio != second.HybridRatio {
				t.Errorf("%+v on %+v: ratios changed", s, g)
			}
			if first.Interpolation != second.Interpolation || first.Unsharp != second.Unsharp {
				t.Errorf("%+v on %+v: algorithm %v -> %v", s, g, first, second)
			}
			if first.Format != second.Format || first.Quality != second.Quality || first.Subsample != second.Subsample {
				t.Errorf("%+v on %+v: encoder %v -> %v", s, g, first, second)
			}
		}
	}
}

func TestHybridRatioIsPowerOfTwo(t *testing.T) {
	for _, mode := range []HybridMode{HybridFavorQuality, HybridFavorSpeed, HybridTurbo, HybridOff} {
		for ratio := 0.25; ratio < 200; ratio *= 1.07 {
			h := HybridRatio(mode, ratio)
			if !mathutil.IsPow2(h) || h > 32 {
				t.Fatalf("%s ratio %.3f: hybrid %d", mode, ratio, h)
			}
			if mode == HybridOff && h != 1 {
				t.Fatalf("off mode returned %d", h)
			}
			if ratio >= 2 && ratio/float64(h) < 1 {
				t.Fatalf("%s ratio %.3f: residual ratio %.3f below 1", mode, ratio, ratio/float64(h))
			}
		}
	}
	if got := HybridRatio(HybridFavorSpeed, 10); got != 4 {
		t.Errorf("favor speed at 10 = %d, want 4", got)
	}
	if got := HybridRatio(HybridFavorQuality, 10); got != 2 {
		t.Errorf("favor quality at 10 = %d, want 2", got)
	}
	if got := HybridRatio(HybridTurbo, 1000); got != 32 {
		t.Errorf("turbo at 1000 = %d, want 32", got)
	}
}

func TestDefaultInterpolationBands(t *testing.T) {
	tests := []struct {
		ratio float64
		want  interp.Settings
	}{
		{0.25, interp.Lanczos3},
		{0.5, interp.Spline36Curve},
		{1, interp.Spline36Curve},
		{4, interp.Spline36Curve},
		{4.5, interp.CatmullRom},
		{9, interp.QuadraticCurve},
		{17, interp.Bilinear},
	}
	for _, tt := range tests {
		if got := DefaultInterpolation(tt.ratio); got != tt.want {
			t.Errorf("ratio %v: %v, want %v", tt.ratio, got, tt.want)
		}
	}
}

func TestDefaultUnsharpBands(t *testing.T) {
	tests := []struct {
		ratio float64
		want  UnsharpMask
	}{
		{1, NoSharpen},
		{0.3, UnsharpMask{40, 1.5, 0}},
		{0.8, UnsharpMask{30, 1.0, 0}},
		{1.5, UnsharpMask{30, 0.75, 4}},
		{3, UnsharpMask{75, 0.5, 2}},
		{5, UnsharpMask{50, 0.75, 2}},
		{7, UnsharpMask{100, 0.6, 1}},
		{9, UnsharpMask{125, 0.5, 0}},
		{20, UnsharpMask{150, 0.5, 0}},
	}
	for _, tt := range tests {
		if got := DefaultUnsharpMask(tt.ratio); got != tt.want {
			t.Errorf("ratio %v: %+v, want %+v", tt.ratio, got, tt.want)
		}
	}
}

func TestSharpenToggle(t *testing.T) {
	on := mustResolve(t, Settings{Width: 100, Sharpen: true}, geom(1000, 1000))
	if !on.Unsharp.Enabled() {
		t.Error("sharpen on: mask disabled")
	}
	off := mustResolve(t, Settings{Width: 100}, geom(1000, 1000))
	if off.Unsharp.Enabled() {
		t.Error("sharpen off: mask enabled")
	}
	same := mustResolve(t, Settings{Sharpen: true}, geom(100, 100))
	if same.Unsharp.Enabled() {
		t.Error("1:1 should not sharpen")
	}
}

func TestEncoderDefaults(t *testing.T) {
	r := mustResolve(t, Settings{Width: 300}, geom(1200, 900))
	if r.Format != "jpeg" || r.Quality != 93 || r.Subsample != Subsample422 {
		t.Errorf("jpeg defaults: %s q=%d ss=%d", r.Format, r.Quality, r.Subsample)
	}
	r = mustResolve(t, Settings{Width: 100}, ImageGeometry{Width: 400, Height: 400, HasAlpha: true})
	if r.Format != "png" || r.Quality != 0 {
		t.Errorf("alpha defaults: %s q=%d", r.Format, r.Quality)
	}
	r = mustResolve(t, Settings{Width: 2000, Quality: 70, Format: "jpg"}, geom(4000, 3000))
	if r.Format != "jpeg" || r.Quality != 70 || r.Subsample != Subsample420 {
		t.Errorf("explicit: %s q=%d ss=%d", r.Format, r.Quality, r.Subsample)
	}
	if DefaultQuality(160) != 95 || DefaultQuality(1921) != 83 {
		t.Error("quality bands")
	}
}

func TestMatteDroppedWithoutAlpha(t *testing.T) {
	s := Settings{Width: 10}
	s.Matte.R, s.Matte.A = 200, 255
	if r := mustResolve(t, s, geom(100, 100)); r.Matte.A != 0 {
		t.Errorf("opaque source kept matte %v", r.Matte)
	}
	if r := mustResolve(t, s, ImageGeometry{Width: 100, Height: 100, HasAlpha: true}); r.Matte != s.Matte {
		t.Errorf("alpha source lost matte %v", r.Matte)
	}
}
