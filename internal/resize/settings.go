// Package resize turns raw resize requests into frozen, pixel-exact plans.
//
// A Settings value is what a caller asks for: possibly partial, possibly
// contradictory. Resolve checks it against a concrete source frame and
// returns a Resolved plan in which every default has been computed once.
// The plan can be turned back into Settings with Normalized; resolving
// those again against the same frame yields the same plan.
package resize

import (
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/AnyUserName/rowscale/internal/interp"
)

// Mode selects how the output box relates to the source aspect ratio.
type Mode int

const (
	// ModeCrop fills the output box, cropping whatever overhangs it.
	ModeCrop Mode = iota
	// ModeMax fits the source inside the output box without enlarging it.
	ModeMax
	// ModeStretch distorts the source to exactly the output box.
	ModeStretch
)

func (m Mode) String() string {
	switch m {
	case ModeCrop:
		return "crop"
	case ModeMax:
		return "max"
	case ModeStretch:
		return "stretch"
	}
	return "unknown"
}

// Anchor positions an automatic crop window. Flags combine per axis;
// the zero value centers on both axes.
type Anchor int

const (
	AnchorCenter Anchor = 0
	AnchorTop    Anchor = 1 << 0
	AnchorBottom Anchor = 1 << 1
	AnchorLeft   Anchor = 1 << 2
	AnchorRight  Anchor = 1 << 3
)

func (a Anchor) String() string {
	var v, h string
	switch {
	case a&AnchorTop != 0:
		v = "top"
	case a&AnchorBottom != 0:
		v = "bottom"
	}
	switch {
	case a&AnchorLeft != 0:
		h = "left"
	case a&AnchorRight != 0:
		h = "right"
	}
	switch {
	case v == "" && h == "":
		return "center"
	case v == "":
		return h
	case h == "":
		return v
	}
	return v + "-" + h
}

// HybridMode trades quality for speed by letting a cheap box reduction do
// the bulk of a large downscale before the high-quality kernel runs.
type HybridMode int

const (
	HybridFavorQuality HybridMode = iota
	HybridFavorSpeed
	HybridTurbo
	HybridOff
)

func (h HybridMode) String() string {
	switch h {
	case HybridFavorQuality:
		return "favorquality"
	case HybridFavorSpeed:
		return "favorspeed"
	case HybridTurbo:
		return "turbo"
	case HybridOff:
		return "off"
	}
	return "unknown"
}

// Gamma selects the light space in which pixels are blended.
type Gamma int

const (
	// GammaLinear converts sRGB to linear light before resampling.
	GammaLinear Gamma = iota
	// GammaCompanded resamples the encoded values directly.
	GammaCompanded
)

func (g Gamma) String() string {
	if g == GammaCompanded {
		return "companded"
	}
	return "linear"
}

// Subsample is a JPEG chroma subsampling mode. Zero means automatic.
type Subsample int

const (
	SubsampleAuto Subsample = 0
	Subsample420  Subsample = 420
	Subsample422  Subsample = 422
	Subsample444  Subsample = 444
)

// Rect is a crop rectangle in source pixels. A zero Width or Height extends
// the crop to the image edge. The zero Rect means no explicit crop.
type Rect struct {
	X, Y, Width, Height int
}

// IsZero reports whether no crop was given.
func (r Rect) IsZero() bool { return r == Rect{} }

// FromImageRect converts an image.Rectangle to a Rect.
func FromImageRect(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// UnsharpMask parameterizes post-resize sharpening. Amount is a percentage,
// Radius the gaussian sigma in output pixels, Threshold the minimum luma
// difference that gets sharpened.
type UnsharpMask struct {
	Amount    int
	Radius    float64
	Threshold uint8
}

// NoSharpen disables the unsharp mask.
var NoSharpen = UnsharpMask{}

// Enabled reports whether the mask changes pixels.
func (u UnsharpMask) Enabled() bool {
	return u.Amount > 0 && u.Radius > 0
}

// Settings is a resize request. Zero fields mean "choose automatically".
type Settings struct {
	Width, Height int
	Mode          Mode
	Anchor        Anchor
	Crop          Rect
	Hybrid        HybridMode

	// Interpolation overrides the ratio-based kernel choice when set.
	Interpolation interp.Settings
	// Sharpen enables automatic unsharp masking after downscaling.
	Sharpen bool
	// Unsharp overrides the ratio-based unsharp mask when set.
	Unsharp *UnsharpMask

	Gamma Gamma
	// Matte is the color transparent pixels are flattened onto when the
	// output format has no alpha. A zero alpha means white.
	Matte color.NRGBA

	// Format is the output format name: jpeg, png, png8, gif, webp or avif.
	Format    string
	Quality   int
	Subsample Subsample

	// Frame selects a frame of a multi-frame source.
	Frame int
	// Metadata lists the metadata records carried into the output.
	Metadata []string
}

// DefaultSettings returns a request that keeps the source size and enables
// automatic sharpening.
func DefaultSettings() Settings {
	return Settings{Sharpen: true}
}

// ImageGeometry describes one decoded frame.
type ImageGeometry struct {
	Width, Height int
	// Rotated90 reports that the frame is displayed rotated by a quarter
	// turn, so its displayed width is Height.
	Rotated90 bool
	HasAlpha  bool
}

// Displayed returns the frame size as shown, after any quarter turn.
func (g ImageGeometry) Displayed() (width, height int) {
	if g.Rotated90 {
		return g.Height, g.Width
	}
	return g.Width, g.Height
}

// ImageInfo describes a source file for resolution and cache keys.
type ImageInfo struct {
	// Format is the container format, e.g. "jpeg" or "gif".
	Format  string
	Frames  []ImageGeometry
	Size    int64
	ModTime time.Time
}

// Output formats.
var outputFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"png8": true,
	"gif":  true,
	"webp": true,
	"avif": true,
}

// NormalizeFormat canonicalizes an output format name, accepting common
// aliases and file extensions.
func NormalizeFormat(name string) string {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")
	switch name {
	case "jpg", "jpe":
		return "jpeg"
	}
	return name
}

// IsIndexedFormat reports whether the format stores palette indices.
func IsIndexedFormat(name string) bool {
	return name == "png8" || name == "gif"
}

// FormatHasAlpha reports whether the output format can keep transparency.
func FormatHasAlpha(name string) bool {
	return name != "jpeg"
}
