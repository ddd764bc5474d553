package resize

import (
	"github.com/AnyUserName/rowscale/internal/interp"
	"github.com/AnyUserName/rowscale/internal/mathutil"
)

// ─── ratio band tables ───────────────────────────────────────

// DefaultInterpolation picks the kernel for an effective scale ratio, where
// ratio is source size over output size after any hybrid pre-scale.
// Cheaper kernels take over as decimation grows.
func DefaultInterpolation(ratio float64) interp.Settings {
	switch {
	case ratio < 0.5:
		return interp.Lanczos3
	case ratio > 16:
		return interp.Bilinear
	case ratio > 8:
		return interp.QuadraticCurve
	case ratio > 4:
		return interp.CatmullRom
	}
	return interp.Spline36Curve
}

// DefaultUnsharpMask returns the sharpening tuned for a scale ratio.
func DefaultUnsharpMask(ratio float64) UnsharpMask {
	switch {
	case ratio == 1:
		return NoSharpen
	case ratio < 0.5:
		return UnsharpMask{40, 1.5, 0}
	case ratio < 1:
		return UnsharpMask{30, 1.0, 0}
	case ratio < 2:
		return UnsharpMask{30, 0.75, 4}
	case ratio < 4:
		return UnsharpMask{75, 0.5, 2}
	case ratio < 6:
		return UnsharpMask{50, 0.75, 2}
	case ratio < 8:
		return UnsharpMask{100, 0.6, 1}
	case ratio < 10:
		return UnsharpMask{125, 0.5, 0}
	}
	return UnsharpMask{150, 0.5, 0}
}

// DefaultQuality returns the lossy quality for an output whose larger side
// is dim pixels. Small images get more bits per pixel.
func DefaultQuality(dim int) int {
	switch {
	case dim <= 160:
		return 95
	case dim <= 320:
		return 93
	case dim <= 480:
		return 91
	case dim <= 640:
		return 89
	case dim <= 1280:
		return 87
	case dim <= 1920:
		return 85
	}
	return 83
}

// DefaultSubsample returns the chroma subsampling for a quality level.
func DefaultSubsample(quality int) Subsample {
	switch {
	case quality >= 95:
		return Subsample444
	case quality >= 90:
		return Subsample422
	}
	return Subsample420
}

// HybridRatio returns the power-of-two factor the cheap pre-scale may
// remove from a downscale of the given ratio.
func HybridRatio(mode HybridMode, ratio float64) int {
	if mode == HybridOff || ratio < 2 {
		return 1
	}
	div := 1.0
	switch mode {
	case HybridFavorQuality:
		div = 3
	case HybridFavorSpeed:
		div = 2
	}
	return mathutil.Clamp(mathutil.FloorPow2(ratio/div), 1, 32)
}

// defaultFormat chooses an output format from the source container.
func defaultFormat(container string, hasAlpha bool) string {
	switch {
	case container == "gif":
		return "gif"
	case container == "png" || hasAlpha:
		return "png"
	}
	return "jpeg"
}
