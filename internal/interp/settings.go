package interp

import (
	"fmt"
	"strings"

	"github.com/AnyUserName/rowscale/internal/imgerr"
)

// Settings pairs a kernel with a blur factor. Blur above 1 widens the kernel
// (softer), below 1 narrows it (sharper).
type Settings struct {
	Kernel Interpolator
	Blur   float64
}

// Blur bounds. Blur must satisfy MinBlur < Blur <= MaxBlur.
const (
	MinBlur = 0.5
	MaxBlur = 2.0
)

func mustQuadratic(r float64) Quadratic {
	q, err := NewQuadratic(r)
	if err != nil {
		panic(err)
	}
	return q
}

func mustCubic(b, c float64) Cubic {
	k, err := NewCubic(b, c)
	if err != nil {
		panic(err)
	}
	return k
}

func mustLanczos(lobes int) Lanczos {
	l, err := NewLanczos(lobes)
	if err != nil {
		panic(err)
	}
	return l
}

// Presets.
var (
	NearestNeighbor = Settings{Kernel: Point{}, Blur: 1}
	Average         = Settings{Kernel: Box{}, Blur: 1}
	Bilinear        = Settings{Kernel: Linear{}, Blur: 1}
	Hermite         = Settings{Kernel: mustCubic(0, 0), Blur: 1}
	QuadraticCurve  = Settings{Kernel: mustQuadratic(1), Blur: 1}
	Mitchell        = Settings{Kernel: mustCubic(1.0/3, 1.0/3), Blur: 1}
	CatmullRom      = Settings{Kernel: mustCubic(0, 0.5), Blur: 1}
	Bicubic         = Settings{Kernel: mustCubic(0, 1), Blur: 1}
	CubicSmoother   = Settings{Kernel: mustCubic(0, 0.625), Blur: 1.15}
	Lanczos3        = Settings{Kernel: mustLanczos(3), Blur: 1}
	Spline36Curve   = Settings{Kernel: Spline36{}, Blur: 1}
)

var byName = map[string]Settings{
	"point":           NearestNeighbor,
	"nearest":         NearestNeighbor,
	"nearestneighbor": NearestNeighbor,
	"box":             Average,
	"average":         Average,
	"linear":          Bilinear,
	"bilinear":        Bilinear,
	"hermite":         Hermite,
	"quadratic":       QuadraticCurve,
	"mitchell":        Mitchell,
	"catrom":          CatmullRom,
	"catmullrom":      CatmullRom,
	"cubic":           Bicubic,
	"bicubic":         Bicubic,
	"cubicsmoother":   CubicSmoother,
	"lanczos":         Lanczos3,
	"lanczos3":        Lanczos3,
	"spline36":        Spline36Curve,
}

// ByName looks up a preset by its case-insensitive name.
func ByName(name string) (Settings, error) {
	s, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Settings{}, imgerr.Invalid("unknown filter %q", name)
	}
	return s, nil
}

// IsZero reports whether no kernel has been chosen.
func (s Settings) IsZero() bool {
	return s.Kernel == nil
}

// IsPointSampler reports whether s selects single source pixels.
func (s Settings) IsPointSampler() bool {
	_, ok := s.Kernel.(Point)
	return ok
}

// Validate checks the kernel is present and the blur factor is in range.
func (s Settings) Validate() error {
	if s.Kernel == nil {
		return imgerr.Invalid("interpolation kernel missing")
	}
	if !(s.Blur > MinBlur && s.Blur <= MaxBlur) {
		return imgerr.Invalid("blur %v out of range (%g, %g]", s.Blur, MinBlur, MaxBlur)
	}
	return nil
}

func (s Settings) String() string {
	if s.Kernel == nil {
		return "none"
	}
	if s.Blur == 1 {
		return s.Kernel.String()
	}
	return fmt.Sprintf("%s blur=%g", s.Kernel, s.Blur)
}
