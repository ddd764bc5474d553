package mathutil

import "math"

// ─── sRGB transfer tables ────────────────────────────────────
// Built once at init. Decoding is exact per byte; encoding goes through a
// 4096-step table over linear light, which is finer than 8-bit output needs.

const linearSteps = 4096

var (
	srgbToLinear [256]float32
	linearToSRGB [linearSteps + 1]byte
)

func init() {
	for i := range srgbToLinear {
		srgbToLinear[i] = float32(decodeSRGB(float64(i) / 255))
	}
	for i := range linearToSRGB {
		linearToSRGB[i] = byte(math.Round(encodeSRGB(float64(i)/linearSteps) * 255))
	}
}

func decodeSRGB(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func encodeSRGB(v float64) float64 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}

// ToLinear maps an sRGB-encoded byte to linear light in [0,1].
func ToLinear(b byte) float32 {
	return srgbToLinear[b]
}

// FromLinear maps linear light to an sRGB-encoded byte, saturating.
func FromLinear(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return linearToSRGB[int(v*linearSteps+0.5)]
}
