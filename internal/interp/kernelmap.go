package interp

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/mathutil"
)

// Map is a precomputed separable convolution for one axis: output pixel i
// reads Samples consecutive input pixels starting at Starts[i], weighted by
// Weights[i*Samples : (i+1)*Samples]. Weights of every pixel sum to 1 and
// taps never address pixels outside [0, InSize).
//
// Maps are immutable once built and may be shared between resamplers.
type Map struct {
	InSize  int
	Pixels  int
	Samples int
	Starts  []int
	Weights []float32
}

// Row returns the first tap and the weights of output pixel i.
func (m *Map) Row(i int) (int, []float32) {
	return m.Starts[i], m.Weights[i*m.Samples : (i+1)*m.Samples]
}

type mapKey struct {
	in, out      int
	kernel       string
	blur         float64
	offset, span float64
}

// mapCacheSize bounds the shared maps. A resize uses two per branch, so a
// batch of a few distinct geometries stays resident.
const mapCacheSize = 32

var mapCache, _ = lru.New[mapKey, *Map](mapCacheSize)

// NewMap builds the map resampling isize input pixels to osize output pixels.
// The output covers the whole input.
func NewMap(isize, osize int, s Settings) (*Map, error) {
	return NewWindowMap(isize, osize, s, 0, float64(isize))
}

// NewWindowMap builds a map whose output covers the input interval
// [offset, offset+span), in input pixel units. A window that does not start
// on a pixel boundary lets subsampled planes follow a crop that is not
// aligned to their grid.
func NewWindowMap(isize, osize int, s Settings, offset, span float64) (*Map, error) {
	if isize <= 0 || osize <= 0 {
		return nil, imgerr.Invalid("kernel map sizes %d -> %d must be positive", isize, osize)
	}
	if !(span > 0) {
		return nil, imgerr.Invalid("kernel map span %v must be positive", span)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	key := mapKey{isize, osize, s.Kernel.String(), s.Blur, offset, span}
	if m, ok := mapCache.Get(key); ok {
		return m, nil
	}
	m := buildMap(isize, osize, s, offset, span)
	if prev, ok, _ := mapCache.PeekOrAdd(key, m); ok {
		return prev, nil
	}
	return m, nil
}

func buildMap(isize, osize int, s Settings, offset, span float64) *Map {
	support := s.Kernel.Support()
	// Downscaling stretches the kernel over the decimation ratio.
	cscale := math.Min(float64(osize)/span, 1) / s.Blur
	support /= cscale
	if isize < 3 && support*2 > float64(isize) {
		support = float64(isize) / 2
	}

	ksize := int(math.Ceil(support * 2))
	samples := min(ksize, isize)
	m := &Map{
		InSize:  isize,
		Pixels:  osize,
		Samples: samples,
		Starts:  make([]int, osize),
		Weights: make([]float32, osize*samples),
	}

	if s.IsPointSampler() {
		offset += 0.5
	}
	step := span / float64(osize)
	center := offset + (span-float64(osize))/(float64(osize)*2)

	kernel := make([]float32, ksize)
	scratch := make([]float64, ksize)
	for i := 0; i < osize; i++ {
		start := int(math.Floor(center+support)) - ksize + 1
		fillWeights(kernel, scratch, s.Kernel, start, center, cscale)
		center += step

		if start < 0 || start+ksize > isize {
			start = foldEdges(start, isize, kernel)
		}
		m.Starts[i] = start
		copy(m.Weights[i*samples:(i+1)*samples], kernel[:samples])
	}
	return m
}

func fillWeights(kernel []float32, w []float64, k Interpolator, start int, center, scale float64) {
	var sum float64
	for i := range kernel {
		w[i] = k.Weight(math.Abs((float64(start+i) - center) * scale))
		sum += w[i]
	}
	if sum == 0 {
		// A kernel narrower than the tap spacing missed every tap.
		clear(w)
		sum = 1
		w[len(w)/2] = 1
	}
	for i := range kernel {
		kernel[i] = float32(w[i] / sum)
	}
}

// foldEdges moves the weight of taps that fall outside [0, isize) onto the
// nearest edge pixel and returns the adjusted first tap. After folding the
// live taps are kernel[:min(len(kernel), isize)].
func foldEdges(start, isize int, kernel []float32) int {
	n := len(kernel)
	last := n - 1
	if start+n > isize {
		ns := isize - n
		offs := start - ns
		var a float32
		for i := 0; i <= offs && i < n; i++ {
			a += kernel[last-i]
		}
		kernel[last] = a
		for i := last - 1; i >= 0; i-- {
			if i >= offs {
				kernel[i] = kernel[i-offs]
			} else {
				kernel[i] = 0
			}
		}
		start = ns
	}
	if start < 0 {
		offs := -start
		var a float32
		for i := 0; i <= offs && i < n; i++ {
			a += kernel[i]
		}
		kernel[0] = a
		for i := 1; i < n; i++ {
			if i+offs < n {
				kernel[i] = kernel[i+offs]
			} else {
				kernel[i] = 0
			}
		}
		start = 0
	}
	return start
}

// NewBlurMap builds a same-size gaussian map of the given radius (sigma),
// used by unsharp masking.
func NewBlurMap(size int, radius float64) (*Map, error) {
	if size <= 0 {
		return nil, imgerr.Invalid("blur map size %d must be positive", size)
	}
	if !(radius > 0) {
		return nil, imgerr.Invalid("gaussian sigma %v must be positive", radius)
	}
	key := mapKey{size, size, "blur", radius, 0, float64(size)}
	if m, ok := mapCache.Get(key); ok {
		return m, nil
	}

	k := mathutil.GaussianKernel(radius)
	half := len(k) / 2
	samples := min(len(k), size)
	m := &Map{
		InSize:  size,
		Pixels:  size,
		Samples: samples,
		Starts:  make([]int, size),
		Weights: make([]float32, size*samples),
	}
	kernel := make([]float32, len(k))
	for i := range size {
		copy(kernel, k)
		start := i - half
		if start < 0 || start+len(k) > size {
			start = foldEdges(start, size, kernel)
		}
		m.Starts[i] = start
		copy(m.Weights[i*samples:(i+1)*samples], kernel[:samples])
	}
	if prev, ok, _ := mapCache.PeekOrAdd(key, m); ok {
		return prev, nil
	}
	return m, nil
}
