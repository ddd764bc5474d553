package resize

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/interp"
	"github.com/AnyUserName/rowscale/internal/mathutil"
)

// Resolved is the frozen plan for resizing one frame. It has no mutators;
// every field is final.
type Resolved struct {
	// Crop is the source area, in displayed (post-rotation) coordinates.
	Crop          image.Rectangle
	Width, Height int
	// ScaleRatio is max(crop width / output width, crop height / output height).
	ScaleRatio float64
	// HybridRatio is the power-of-two factor removed by the cheap pre-scale.
	HybridRatio   int
	Interpolation interp.Settings
	Unsharp       UnsharpMask

	Mode      Mode
	Anchor    Anchor
	Hybrid    HybridMode
	Gamma     Gamma
	Matte     color.NRGBA
	Format    string
	Quality   int
	Subsample Subsample
	Frame     int
	Metadata  []string

	Source ImageGeometry
}

// Resolve validates s against the frame it selects from info and computes
// the full plan.
func Resolve(s Settings, info ImageInfo) (Resolved, error) {
	if s.Frame < 0 || s.Frame >= len(info.Frames) {
		return Resolved{}, imgerr.Invalid("frame %d out of range (image has %d)", s.Frame, len(info.Frames))
	}
	return resolve(s, info.Frames[s.Frame], NormalizeFormat(info.Format))
}

// ResolveFrame computes the plan for a single frame whose container format
// is unknown. It is a pure function of its inputs.
func ResolveFrame(s Settings, g ImageGeometry) (Resolved, error) {
	return resolve(s, g, "")
}

func validate(s Settings, g ImageGeometry) error {
	switch {
	case g.Width <= 0 || g.Height <= 0:
		return imgerr.Invalid("source size %dx%d must be positive", g.Width, g.Height)
	case s.Width < 0 || s.Height < 0:
		return imgerr.Invalid("requested size %dx%d must not be negative", s.Width, s.Height)
	case s.Mode < ModeCrop || s.Mode > ModeStretch:
		return imgerr.Invalid("unknown resize mode %d", s.Mode)
	case s.Hybrid < HybridFavorQuality || s.Hybrid > HybridOff:
		return imgerr.Invalid("unknown hybrid mode %d", s.Hybrid)
	case s.Gamma != GammaLinear && s.Gamma != GammaCompanded:
		return imgerr.Invalid("unknown gamma mode %d", s.Gamma)
	case s.Quality < 0 || s.Quality > 100:
		return imgerr.Invalid("quality %d out of range 0-100", s.Quality)
	case s.Crop.X < 0 || s.Crop.Y < 0 || s.Crop.Width < 0 || s.Crop.Height < 0:
		return imgerr.Invalid("crop %+v must not be negative", s.Crop)
	case s.Frame < 0:
		return imgerr.Invalid("frame %d must not be negative", s.Frame)
	}
	switch s.Subsample {
	case SubsampleAuto, Subsample420, Subsample422, Subsample444:
	default:
		return imgerr.Invalid("unknown subsample mode %d", s.Subsample)
	}
	if s.Format != "" && !outputFormats[NormalizeFormat(s.Format)] {
		return imgerr.Invalid("unknown output format %q", s.Format)
	}
	if !s.Interpolation.IsZero() {
		if err := s.Interpolation.Validate(); err != nil {
			return err
		}
	}
	if u := s.Unsharp; u != nil && (u.Amount < 0 || u.Radius < 0 || math.IsNaN(u.Radius)) {
		return imgerr.Invalid("unsharp mask %+v must not be negative", *u)
	}
	return nil
}

func resolve(s Settings, g ImageGeometry, container string) (Resolved, error) {
	if err := validate(s, g); err != nil {
		return Resolved{}, err
	}

	imgW, imgH := g.Displayed()
	whole := image.Rect(0, 0, imgW, imgH)

	mode, anchor := s.Mode, s.Anchor
	width, height := s.Width, s.Height

	// An explicit crop that misses the image entirely is ignored; one that
	// overhangs it is clipped.
	crop, auto := whole, true
	if !s.Crop.IsZero() {
		c := s.Crop
		cw, ch := c.Width, c.Height
		if cw == 0 {
			cw = max(1, imgW-c.X)
		}
		if ch == 0 {
			ch = max(1, imgH-c.Y)
		}
		if r := image.Rect(c.X, c.Y, c.X+cw, c.Y+ch); r.Overlaps(whole) {
			crop, auto = r.Intersect(whole), false
		}
	}

	if width == 0 && height == 0 {
		if mode != ModeCrop {
			return Resolved{}, imgerr.Invalid("%s mode needs a width or height", mode)
		}
		return finish(s, g, container, crop, crop.Dx(), crop.Dy(), mode, AnchorCenter), nil
	}
	if mode == ModeStretch && (width == 0 || height == 0) {
		mode = ModeCrop
	}
	if auto && mode != ModeCrop {
		anchor = AnchorCenter
	}

	if auto && mode == ModeCrop {
		wrat, hrat := axisRatios(imgW, imgH, width, height)
		rat := math.Min(wrat, hrat)
		wwin, hwin := imgW, imgH
		if width > 0 {
			wwin = mathutil.Clamp(ceilTol(rat*float64(width)), 1, imgW)
		}
		if height > 0 {
			hwin = mathutil.Clamp(ceilTol(rat*float64(height)), 1, imgH)
		}

		left := (imgW - wwin) / 2
		switch {
		case anchor&AnchorLeft != 0:
			left = 0
		case anchor&AnchorRight != 0:
			left = imgW - wwin
		}
		top := (imgH - hwin) / 2
		switch {
		case anchor&AnchorTop != 0:
			top = 0
		case anchor&AnchorBottom != 0:
			top = imgH - hwin
		}
		crop = image.Rect(left, top, left+wwin, top+hwin)

		if width == 0 {
			width = max(mathutil.Round(float64(imgW)/wrat), 1)
		}
		if height == 0 {
			height = max(mathutil.Round(float64(imgH)/hrat), 1)
		}
	}

	if mode == ModeMax {
		if width == 0 {
			width = math.MaxInt32
		}
		if height == 0 {
			height = math.MaxInt32
		}
	}

	wrat, hrat := axisRatios(crop.Dx(), crop.Dy(), width, height)
	if mode == ModeMax {
		dim := max(width, height)
		rat := max(wrat, hrat, 1)
		width = mathutil.Clamp(mathutil.Round(float64(crop.Dx())/rat), 1, dim)
		height = mathutil.Clamp(mathutil.Round(float64(crop.Dy())/rat), 1, dim)
	}
	if width == 0 {
		width = max(mathutil.Round(float64(crop.Dx())/wrat), 1)
	}
	if height == 0 {
		height = max(mathutil.Round(float64(crop.Dy())/hrat), 1)
	}

	return finish(s, g, container, crop, width, height, mode, anchor), nil
}

// axisRatios returns source/output ratios per axis. A zero output side
// borrows the other axis' ratio.
func axisRatios(srcW, srcH, width, height int) (float64, float64) {
	var wrat float64
	if width > 0 {
		wrat = float64(srcW) / float64(width)
	} else {
		wrat = float64(srcH) / float64(height)
	}
	hrat := wrat
	if height > 0 {
		hrat = float64(srcH) / float64(height)
	}
	return wrat, hrat
}

// ceilTol rounds up, ignoring float error just above an integer.
func ceilTol(v float64) int {
	return int(math.Ceil(v - 1e-9))
}

func finish(s Settings, g ImageGeometry, container string, crop image.Rectangle, width, height int, mode Mode, anchor Anchor) Resolved {
	r := Resolved{
		Crop:       crop,
		Width:      width,
		Height:     height,
		ScaleRatio: math.Max(float64(crop.Dx())/float64(width), float64(crop.Dy())/float64(height)),
		Mode:       mode,
		Anchor:     anchor,
		Hybrid:     s.Hybrid,
		Gamma:      s.Gamma,
		Frame:      s.Frame,
		Metadata:   append([]string(nil), s.Metadata...),
		Source:     g,
	}
	r.HybridRatio = HybridRatio(s.Hybrid, r.ScaleRatio)

	r.Interpolation = s.Interpolation
	if r.Interpolation.IsZero() {
		r.Interpolation = DefaultInterpolation(r.ScaleRatio / float64(r.HybridRatio))
	}

	switch {
	case !s.Sharpen:
		r.Unsharp = NoSharpen
	case s.Unsharp != nil:
		r.Unsharp = *s.Unsharp
	default:
		r.Unsharp = DefaultUnsharpMask(r.ScaleRatio)
	}

	if g.HasAlpha {
		r.Matte = s.Matte
	}

	r.Format = NormalizeFormat(s.Format)
	if r.Format == "" {
		r.Format = defaultFormat(container, g.HasAlpha)
	}
	switch r.Format {
	case "jpeg", "webp", "avif":
		r.Quality = s.Quality
		if r.Quality == 0 {
			r.Quality = DefaultQuality(max(width, height))
		}
	}
	if r.Format == "jpeg" || r.Format == "avif" {
		r.Subsample = s.Subsample
		if r.Subsample == SubsampleAuto {
			r.Subsample = DefaultSubsample(r.Quality)
		}
	}
	return r
}

// Normalized returns settings that pin every automatic choice of r.
// Resolving them against the same frame reproduces r.
func (r Resolved) Normalized() Settings {
	s := Settings{
		Width:         r.Width,
		Height:        r.Height,
		Mode:          ModeCrop,
		Anchor:        r.Anchor,
		Crop:          FromImageRect(r.Crop),
		Hybrid:        r.Hybrid,
		Interpolation: r.Interpolation,
		Sharpen:       r.Unsharp.Enabled(),
		Gamma:         r.Gamma,
		Matte:         r.Matte,
		Format:        r.Format,
		Quality:       r.Quality,
		Subsample:     r.Subsample,
		Frame:         r.Frame,
		Metadata:      append([]string(nil), r.Metadata...),
	}
	if s.Sharpen {
		u := r.Unsharp
		s.Unsharp = &u
	}
	return s
}

// IsIdentity reports whether the plan copies the source unchanged.
func (r Resolved) IsIdentity() bool {
	return r.Crop.Min == image.Point{} && r.Crop.Dx() == r.Width && r.Crop.Dy() == r.Height &&
		r.Width == r.Source.Width && r.Height == r.Source.Height && !r.Source.Rotated90
}

func (r Resolved) String() string {
	c := r.Crop
	return fmt.Sprintf("crop=%d,%d,%d,%d out=%dx%d ratio=%.3f hybrid=%d filter=%s sharpen=%d/%g/%d fmt=%s q=%d",
		c.Min.X, c.Min.Y, c.Dx(), c.Dy(), r.Width, r.Height, r.ScaleRatio, r.HybridRatio,
		r.Interpolation, r.Unsharp.Amount, r.Unsharp.Radius, r.Unsharp.Threshold, r.Format, r.Quality)
}
