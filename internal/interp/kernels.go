// Package interp provides the resampling kernels and the separable kernel
// maps built from them.
//
// Every kernel is stateless: Weight is a pure function of distance, and a
// kernel value can be shared by any number of concurrent resamplers.
package interp

import (
	"fmt"
	"math"

	"github.com/AnyUserName/rowscale/internal/imgerr"
)

// Interpolator is a symmetric weighting function with finite support.
type Interpolator interface {
	// Support is the radius, in source pixels at 1:1 scale, beyond which
	// Weight is zero.
	Support() float64
	// Weight evaluates the kernel at a non-negative distance.
	Weight(d float64) float64
	// String is the stable identity of the kernel and its parameters.
	// It feeds cache keys and kernel-map sharing.
	String() string
}

// Point samples the nearest source pixel.
type Point struct{}

func (Point) Support() float64         { return 0.000001 }
func (Point) Weight(d float64) float64 { return 1 }
func (Point) String() string           { return "Point" }

// Box averages every source pixel under the output pixel.
type Box struct{}

func (Box) Support() float64 { return 0.5 }
func (Box) String() string   { return "Box" }

func (Box) Weight(d float64) float64 {
	if d <= 0.5 {
		return 1
	}
	return 0
}

// Linear is the triangle (tent) filter.
type Linear struct{}

func (Linear) Support() float64 { return 1 }
func (Linear) String() string   { return "Linear" }

func (Linear) Weight(d float64) float64 {
	if d < 1 {
		return 1 - d
	}
	return 0
}

// Gaussian is the normal distribution truncated at three sigma.
type Gaussian struct {
	sigma   float64
	support float64
	norm    float64
}

// NewGaussian returns a gaussian kernel with the given standard deviation.
func NewGaussian(sigma float64) (Gaussian, error) {
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return Gaussian{}, imgerr.Invalid("gaussian sigma %v must be positive", sigma)
	}
	return Gaussian{
		sigma:   sigma,
		support: sigma * 3,
		norm:    1 / math.Sqrt(2*math.Pi*sigma*sigma),
	}, nil
}

func (g Gaussian) Support() float64 { return g.support }
func (g Gaussian) String() string   { return fmt.Sprintf("Gaussian(%g)", g.sigma) }

func (g Gaussian) Weight(d float64) float64 {
	if d < g.support {
		return g.norm * math.Exp(-(d*d)/(2*g.sigma*g.sigma))
	}
	return 0
}

// Quadratic is a piecewise quadratic approximation of a cubic, parameterized
// by r in [0.5, 1.5]. r=1 approximates Catmull-Rom.
type Quadratic struct {
	r              float64
	r0, r1, r2, r3 float64
}

// NewQuadratic returns a quadratic kernel with sharpness r.
func NewQuadratic(r float64) (Quadratic, error) {
	if r < 0.5 || r > 1.5 || math.IsNaN(r) {
		return Quadratic{}, imgerr.Invalid("quadratic r %v out of range [0.5, 1.5]", r)
	}
	return Quadratic{
		r:  r,
		r0: -2 * r,
		r1: -2*r - 0.5,
		r2: 0.5 * (r + 1),
		r3: 0.75 * (r + 1),
	}, nil
}

func (q Quadratic) Support() float64 { return 1.5 }
func (q Quadratic) String() string   { return fmt.Sprintf("Quadratic(%g)", q.r) }

func (q Quadratic) Weight(d float64) float64 {
	switch {
	case d < 0.5:
		return d*d*q.r0 + q.r2
	case d < 1.5:
		return d*d*q.r + d*q.r1 + q.r3
	}
	return 0
}

// Cubic is the Mitchell-Netravali two-parameter cubic family.
type Cubic struct {
	b, c           float64
	support        float64
	p0, p2, p3     float64
	q0, q1, q2, q3 float64
}

// NewCubic returns a cubic kernel for the (B, C) pair.
func NewCubic(b, c float64) (Cubic, error) {
	if math.IsNaN(b) || math.IsNaN(c) || b < 0 || c < 0 {
		return Cubic{}, imgerr.Invalid("cubic B=%v C=%v must be non-negative", b, c)
	}
	k := Cubic{
		b: b,
		c: c,

		p0: (6 - 2*b) / 6,
		p2: (-18 + 12*b + 6*c) / 6,
		p3: (12 - 9*b - 6*c) / 6,

		q0: (8*b + 24*c) / 6,
		q1: (-12*b - 48*c) / 6,
		q2: (6*b + 30*c) / 6,
		q3: (-b - 6*c) / 6,
	}
	k.support = 2
	if b == 0 && c == 0 {
		k.support = 1
	}
	return k, nil
}

func (k Cubic) Support() float64 { return k.support }
func (k Cubic) String() string   { return fmt.Sprintf("Cubic(%g,%g)", k.b, k.c) }

func (k Cubic) Weight(d float64) float64 {
	switch {
	case d < 1:
		return k.p0 + d*d*(k.p2+d*k.p3)
	case k.support > 1 && d < 2:
		return k.q0 + d*(k.q1+d*(k.q2+d*k.q3))
	}
	return 0
}

// Lanczos is the windowed sinc with the given number of lobes.
type Lanczos struct {
	lobes float64
}

// NewLanczos returns a Lanczos kernel. Three lobes is the common choice.
func NewLanczos(lobes int) (Lanczos, error) {
	if lobes < 1 {
		return Lanczos{}, imgerr.Invalid("lanczos lobes %d must be at least 1", lobes)
	}
	return Lanczos{lobes: float64(lobes)}, nil
}

func (l Lanczos) Support() float64 { return l.lobes }
func (l Lanczos) String() string   { return fmt.Sprintf("Lanczos(%g)", l.lobes) }

func (l Lanczos) Weight(d float64) float64 {
	if d <= 0.000000005 {
		return 1
	}
	if d < l.lobes {
		pd := math.Pi * d
		return l.lobes * math.Sin(pd) * math.Sin(pd/l.lobes) / (pd * pd)
	}
	return 0
}

// Spline36 is the three-lobe cubic spline fitted to a windowed sinc.
type Spline36 struct{}

func (Spline36) Support() float64 { return 3 }
func (Spline36) String() string   { return "Spline36" }

func (Spline36) Weight(d float64) float64 {
	switch {
	case d < 1:
		return ((13.0/11.0*d-453.0/209.0)*d-3.0/209.0)*d + 1
	case d < 2:
		d--
		return ((-6.0/11.0*d+270.0/209.0)*d - 156.0/209.0) * d
	case d < 3:
		d -= 2
		return ((1.0/11.0*d-45.0/209.0)*d + 26.0/209.0) * d
	}
	return 0
}
