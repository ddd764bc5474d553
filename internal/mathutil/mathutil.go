// Package mathutil holds the small numeric helpers shared by the resize
// pipeline: clamps, 15-bit fixed point, alignment arithmetic, the gaussian
// kernel factory and the sRGB transfer tables.
package mathutil

import (
	"cmp"
	"math"
)

// Fixed-point precision used by integer convolution paths.
const (
	FixShift = 15
	FixOne   = 1 << FixShift
	fixRound = 1 << (FixShift - 1)
)

// Clamp limits x to [lo, hi].
func Clamp[T cmp.Ordered](x, lo, hi T) T {
	return min(max(lo, x), hi)
}

// ClampToByte saturates x to the 0–255 range.
func ClampToByte(x int) byte {
	return byte(Clamp(x, 0, 255))
}

// Fix15 converts a float weight to Q15 fixed point, rounding to nearest.
func Fix15(x float64) int32 {
	return int32(math.Round(x * FixOne))
}

// UnFix15 converts a Q15 accumulator back to integer scale, rounding.
func UnFix15(x int32) int32 {
	return (x + fixRound) >> FixShift
}

// UnFix15ToByte converts a Q15 accumulator to a saturated byte.
func UnFix15ToByte(x int32) byte {
	return ClampToByte(int(UnFix15(x)))
}

// FixToByte converts a normalized float in [0,1] to a saturated byte.
func FixToByte(x float32) byte {
	return ClampToByte(int(x*255 + 0.5))
}

// DivCeil returns x/y rounded up. Both operands must be non-negative, y > 0.
func DivCeil(x, y int) int {
	return (x + y - 1) / y
}

// AlignDown rounds x down to a multiple of the power of two p.
func AlignDown(x, p int) int {
	return x &^ (p - 1)
}

// AlignUp rounds x up to a multiple of the power of two p.
func AlignUp(x, p int) int {
	return (x + p - 1) &^ (p - 1)
}

// FloorPow2 returns the largest power of two not greater than x.
// Values below 1 yield 1.
func FloorPow2(x float64) int {
	if x < 1 {
		return 1
	}
	return int(math.Pow(2, math.Floor(math.Log2(x))))
}

// IsPow2 reports whether x is a positive power of two.
func IsPow2(x int) bool {
	return x > 0 && x&(x-1) == 0
}

// Round rounds half to even, matching the rounding used for output sizes.
func Round(x float64) int {
	return int(math.RoundToEven(x))
}

// GaussianKernel returns a normalized, odd-length 1-D gaussian of the given
// standard deviation. The kernel extends to 3 sigma on each side.
func GaussianKernel(sigma float64) []float32 {
	if sigma <= 0 {
		return []float32{1}
	}
	radius := int(math.Ceil(sigma * 3))
	k := make([]float32, radius*2+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+radius] = float32(w)
		sum += w
	}
	inv := float32(1 / sum)
	for i := range k {
		k[i] *= inv
	}
	return k
}
