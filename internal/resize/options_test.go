package resize

import (
	"errors"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/interp"
)

func TestParseOptions(t *testing.T) {
	s, err := ParseOptions(map[string]string{
		"W":          "320",
		"height":     "200",
		"crop":       "10,20,300,400",
		"anchor":     "Top-Right",
		"mode":       "MAX",
		"format":     "jpg",
		"q":          "80",
		"subsample":  "444",
		"gamma":      "companded",
		"hybrid":     "turbo",
		"sharpen":    "false",
		"bg":         "#f80",
		"filter":     "mitchell",
		"page":       "2",
		"metadata":   " ICC,exif,icc",
		"utm_source": "ignored",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := Settings{
		Width: 320, Height: 200,
		Crop:          Rect{10, 20, 300, 400},
		Anchor:        AnchorTop | AnchorRight,
		Mode:          ModeMax,
		Format:        "jpeg",
		Quality:       80,
		Subsample:     Subsample444,
		Gamma:         GammaCompanded,
		Hybrid:        HybridTurbo,
		Sharpen:       false,
		Matte:         color.NRGBA{0xff, 0x88, 0x00, 0xff},
		Interpolation: interp.Mitchell,
		Frame:         2,
	}
	if s.Width != want.Width || s.Height != want.Height || s.Crop != want.Crop ||
		s.Anchor != want.Anchor || s.Mode != want.Mode || s.Format != want.Format ||
		s.Quality != want.Quality || s.Subsample != want.Subsample || s.Gamma != want.Gamma ||
		s.Hybrid != want.Hybrid || s.Sharpen != want.Sharpen || s.Matte != want.Matte ||
		s.Interpolation != want.Interpolation || s.Frame != want.Frame {
		t.Errorf("got  %+v\nwant %+v", s, want)
	}
	if got := strings.Join(s.Metadata, ","); got != "exif,icc" {
		t.Errorf("metadata %q, want exif,icc", got)
	}
}

func TestParseOptionsCaseCollisions(t *testing.T) {
	tests := []struct {
		opts map[string]string
		want int
	}{
		{map[string]string{"Width": "10", "width": "20"}, 20},
		{map[string]string{"WIDTH": "10", "width": "20", "wIdth": "30"}, 20},
		{map[string]string{"WIDTH": "10", "Width": "20"}, 10},
		{map[string]string{"w": "5", "Width": "40"}, 40},
	}
	for _, tt := range tests {
		for range 20 {
			s, err := ParseOptions(tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if s.Width != tt.want {
				t.Fatalf("%v: width %d, want %d", tt.opts, s.Width, tt.want)
			}
		}
	}
}

func TestParseOptionsDefaults(t *testing.T) {
	s, err := ParseOptions(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Sharpen || s.Width != 0 || s.Mode != ModeCrop || !s.Interpolation.IsZero() {
		t.Errorf("defaults: %+v", s)
	}
}

func TestParseOptionsRejects(t *testing.T) {
	bad := []map[string]string{
		{"width": "-3"},
		{"width": "wide"},
		{"quality": "101"},
		{"crop": "1,2,3"},
		{"crop": "1,2,-3,4"},
		{"anchor": "top-top"},
		{"mode": "pad"},
		{"format": "tiff"},
		{"subsample": "411"},
		{"gamma": "srgb"},
		{"hybrid": "fast"},
		{"sharpen": "maybe"},
		{"bgcolor": "orange"},
		{"filter": "sinc"},
	}
	for _, opts := range bad {
		if _, err := ParseOptions(opts); !errors.Is(err, imgerr.ErrInvalidConfiguration) {
			t.Errorf("%v: err = %v", opts, err)
		}
	}
}

func TestParseAnchor(t *testing.T) {
	tests := map[string]Anchor{
		"":              AnchorCenter,
		"middle":        AnchorCenter,
		"middle-center": AnchorCenter,
		"top":           AnchorTop,
		"bottom-left":   AnchorBottom | AnchorLeft,
		"right":         AnchorRight,
		"topleft":       AnchorTop | AnchorLeft,
	}
	for in, want := range tests {
		got, err := ParseAnchor(in)
		if err != nil || got != want {
			t.Errorf("ParseAnchor(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if (AnchorTop | AnchorLeft).String() != "top-left" {
		t.Errorf("anchor string %q", (AnchorTop | AnchorLeft).String())
	}
}

func TestParseColor(t *testing.T) {
	tests := map[string]color.NRGBA{
		"#ffffff":     {255, 255, 255, 255},
		"000":         {0, 0, 0, 255},
		"#FF000080":   {255, 0, 0, 128},
		"transparent": {},
	}
	for in, want := range tests {
		got, err := ParseColor(in)
		if err != nil || got != want {
			t.Errorf("ParseColor(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestCacheKey(t *testing.T) {
	info := ImageInfo{
		Format:  "jpeg",
		Frames:  []ImageGeometry{geom(4000, 3000)},
		Size:    123456,
		ModTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	base, err := Resolve(Settings{Width: 200, Sharpen: true}, info)
	if err != nil {
		t.Fatal(err)
	}
	key := CacheKey(info, base)
	if len(key) != 8 {
		t.Fatalf("key %q: want 8 chars", key)
	}
	for _, c := range key {
		if !(c >= 'A' && c <= 'Z' || c >= '2' && c <= '7') {
			t.Fatalf("key %q: %q is not base32", key, c)
		}
	}

	again, _ := Resolve(base.Normalized(), info)
	if got := CacheKey(info, again); got != key {
		t.Errorf("normalized settings hash %q, want %q", got, key)
	}

	variants := map[string]Settings{
		"width":     {Width: 201, Sharpen: true},
		"crop":      {Width: 200, Sharpen: true, Crop: Rect{1, 0, 3999, 3000}},
		"quality":   {Width: 200, Sharpen: true, Quality: 50},
		"format":    {Width: 200, Sharpen: true, Format: "webp"},
		"sharpen":   {Width: 200},
		"gamma":     {Width: 200, Sharpen: true, Gamma: GammaCompanded},
		"filter":    {Width: 200, Sharpen: true, Interpolation: interp.Lanczos3},
		"blur":      {Width: 200, Sharpen: true, Interpolation: interp.Settings{Kernel: interp.Spline36{}, Blur: 1.1}},
		"subsample": {Width: 200, Sharpen: true, Subsample: Subsample444},
		"hybrid":    {Width: 200, Sharpen: true, Hybrid: HybridOff},
		"metadata":  {Width: 200, Sharpen: true, Metadata: []string{"icc"}},
	}
	seen := map[string]string{key: "base"}
	for name, s := range variants {
		r, err := Resolve(s, info)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		k := CacheKey(info, r)
		if prev, dup := seen[k]; dup {
			t.Errorf("%s hashes like %s (%s)", name, prev, k)
		}
		seen[k] = name
	}

	touched := info
	touched.ModTime = touched.ModTime.Add(time.Second)
	if CacheKey(touched, base) == key {
		t.Error("modification time does not affect key")
	}
}
