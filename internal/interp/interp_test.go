package interp

import (
	"errors"
	"math"
	"testing"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/mathutil"
)

func allPresets() map[string]Settings {
	return map[string]Settings{
		"nearest":       NearestNeighbor,
		"average":       Average,
		"linear":        Bilinear,
		"hermite":       Hermite,
		"quadratic":     QuadraticCurve,
		"mitchell":      Mitchell,
		"catmullrom":    CatmullRom,
		"cubic":         Bicubic,
		"cubicsmoother": CubicSmoother,
		"lanczos":       Lanczos3,
		"spline36":      Spline36Curve,
	}
}

func TestKernelSupportBoundary(t *testing.T) {
	g, err := NewGaussian(0.75)
	if err != nil {
		t.Fatal(err)
	}
	kernels := []Interpolator{Linear{}, g, Hermite.Kernel, QuadraticCurve.Kernel,
		Mitchell.Kernel, CatmullRom.Kernel, Bicubic.Kernel, Lanczos3.Kernel, Spline36{}}
	for _, k := range kernels {
		if w := k.Weight(k.Support()); math.Abs(w) > 1e-9 {
			t.Errorf("%s: Weight(Support=%v) = %v, want 0", k, k.Support(), w)
		}
		if w := k.Weight(0); w <= 0 {
			t.Errorf("%s: Weight(0) = %v, want > 0", k, w)
		}
	}
	if (Box{}).Weight(0.5) != 1 || (Box{}).Weight(0.51) != 0 {
		t.Error("box boundary")
	}
	if (Point{}).Weight(0) != 1 {
		t.Error("point weight")
	}
}

func TestCubicReferenceValues(t *testing.T) {
	tests := []struct {
		name string
		k    Interpolator
		d    float64
		want float64
	}{
		{"hermite-0", Hermite.Kernel, 0, 1},
		{"hermite-0.5", Hermite.Kernel, 0.5, 0.5},
		{"hermite-1", Hermite.Kernel, 1, 0},
		{"hermite-1.5", Hermite.Kernel, 1.5, 0},
		{"mitchell-0", Mitchell.Kernel, 0, 8.0 / 9},
		{"mitchell-0.5", Mitchell.Kernel, 0.5, 0.5347222},
		{"mitchell-1", Mitchell.Kernel, 1, 1.0 / 18},
		{"mitchell-1.5", Mitchell.Kernel, 1.5, -0.0347222},
		{"catmullrom-1.5", CatmullRom.Kernel, 1.5, -0.0625},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.k.Weight(tt.d); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Weight(%v) = %v, want %v", tt.d, got, tt.want)
			}
		})
	}
	if Hermite.Kernel.Support() != 1 || Mitchell.Kernel.Support() != 2 {
		t.Error("cubic support must be 1 for B=C=0 and 2 otherwise")
	}
}

func TestLanczosAndSpline(t *testing.T) {
	l := Lanczos3.Kernel
	if l.Weight(0) != 1 || l.Weight(1e-10) != 1 {
		t.Error("lanczos center")
	}
	for _, d := range []float64{1, 2} {
		if w := l.Weight(d); math.Abs(w) > 1e-12 {
			t.Errorf("lanczos zero crossing at %v: %v", d, w)
		}
	}
	s := Spline36{}
	if s.Weight(0) != 1 {
		t.Errorf("spline36(0) = %v", s.Weight(0))
	}
	for _, d := range []float64{1, 2} {
		if w := s.Weight(d); math.Abs(w) > 1e-12 {
			t.Errorf("spline36(%v) = %v", d, w)
		}
	}
}

func TestConstructorsRejectBadParameters(t *testing.T) {
	if _, err := NewQuadratic(2); !errors.Is(err, imgerr.ErrInvalidConfiguration) {
		t.Errorf("quadratic r=2: %v", err)
	}
	if _, err := NewGaussian(0); !errors.Is(err, imgerr.ErrInvalidConfiguration) {
		t.Errorf("gaussian 0: %v", err)
	}
	if _, err := NewLanczos(0); !errors.Is(err, imgerr.ErrInvalidConfiguration) {
		t.Errorf("lanczos 0: %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		blur float64
		ok   bool
	}{
		{0.5, false},
		{0.51, true},
		{1, true},
		{2, true},
		{2.01, false},
		{math.NaN(), false},
	}
	for _, tt := range tests {
		err := Settings{Kernel: Linear{}, Blur: tt.blur}.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("blur %v: err=%v, want ok=%v", tt.blur, err, tt.ok)
		}
	}
	if err := (Settings{Blur: 1}).Validate(); err == nil {
		t.Error("missing kernel should fail")
	}
}

func TestByName(t *testing.T) {
	s, err := ByName(" CatRom ")
	if err != nil {
		t.Fatal(err)
	}
	if s != CatmullRom {
		t.Errorf("catrom resolved to %v", s)
	}
	if _, err := ByName("sinc"); !errors.Is(err, imgerr.ErrInvalidConfiguration) {
		t.Errorf("unknown filter: %v", err)
	}
}

func TestMapWeightsNormalized(t *testing.T) {
	sizes := [][2]int{{100, 37}, {37, 100}, {8, 8}, {2, 9}, {9, 1}, {1, 5}}
	for name, s := range allPresets() {
		for _, sz := range sizes {
			m, err := NewMap(sz[0], sz[1], s)
			if err != nil {
				t.Fatalf("%s %v: %v", name, sz, err)
			}
			if m.Pixels != sz[1] || m.Samples > sz[0] {
				t.Fatalf("%s %v: pixels=%d samples=%d", name, sz, m.Pixels, m.Samples)
			}
			for i := 0; i < m.Pixels; i++ {
				start, w := m.Row(i)
				if start < 0 || start+len(w) > sz[0] {
					t.Fatalf("%s %v: pixel %d taps [%d,%d) out of input", name, sz, i, start, start+len(w))
				}
				var sum float64
				for _, v := range w {
					sum += float64(v)
				}
				if math.Abs(sum-1) > 1e-4 {
					t.Errorf("%s %v: pixel %d weights sum to %v", name, sz, i, sum)
				}
			}
		}
	}
}

func TestMapIdentityIsPassThrough(t *testing.T) {
	m, err := NewMap(16, 16, Spline36Curve)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 16; i++ {
		start, w := m.Row(i)
		for j, v := range w {
			want := float32(0)
			if start+j == i {
				want = 1
			}
			if math.Abs(float64(v-want)) > 1e-5 {
				t.Fatalf("pixel %d tap %d: %v, want %v", i, start+j, v, want)
			}
		}
	}
}

func TestMapDownscaleWidensSupport(t *testing.T) {
	up, _ := NewMap(100, 100, Bilinear)
	down, _ := NewMap(100, 25, Bilinear)
	if down.Samples <= up.Samples {
		t.Errorf("downscale samples %d should exceed 1:1 samples %d", down.Samples, up.Samples)
	}
	soft, _ := NewMap(100, 25, Settings{Kernel: Linear{}, Blur: 1.5})
	if soft.Samples <= down.Samples {
		t.Errorf("blur 1.5 samples %d should exceed blur 1 samples %d", soft.Samples, down.Samples)
	}
}

func TestMapIsShared(t *testing.T) {
	a, _ := NewMap(300, 120, Lanczos3)
	b, _ := NewMap(300, 120, Lanczos3)
	if a != b {
		t.Error("identical maps should be shared")
	}
	c, _ := NewWindowMap(300, 120, Lanczos3, 0.25, 299.5)
	if c == a {
		t.Error("window map must not alias the full map")
	}
}

func TestMapCacheIsBounded(t *testing.T) {
	mapCache.Purge()
	defer mapCache.Purge()

	maps := make([]*Map, mapCacheSize+2)
	for out := 1; out <= mapCacheSize+1; out++ {
		m, err := NewMap(100, out, Bilinear)
		if err != nil {
			t.Fatal(err)
		}
		maps[out] = m
	}
	if n := mapCache.Len(); n != mapCacheSize {
		t.Errorf("cache holds %d maps, want %d", n, mapCacheSize)
	}
	if m, _ := NewMap(100, mapCacheSize+1, Bilinear); m != maps[mapCacheSize+1] {
		t.Error("newest map was not shared")
	}
	if m, _ := NewMap(100, 1, Bilinear); m == maps[1] {
		t.Error("oldest map survived past the cache size")
	}
}

func TestBlurMap(t *testing.T) {
	tests := []struct {
		size  int
		sigma float64
	}{
		{40, 1},
		{40, 2.5},
		{3, 2},
	}
	for _, tt := range tests {
		m, err := NewBlurMap(tt.size, tt.sigma)
		if err != nil {
			t.Fatal(err)
		}
		k := mathutil.GaussianKernel(tt.sigma)
		for i := range tt.size {
			start, w := m.Row(i)
			if start < 0 || start+m.Samples > tt.size {
				t.Fatalf("size %d sigma %v: pixel %d taps [%d,%d)", tt.size, tt.sigma, i, start, start+m.Samples)
			}
			var sum float64
			for _, v := range w {
				sum += float64(v)
			}
			if math.Abs(sum-1) > 1e-5 {
				t.Errorf("size %d sigma %v: pixel %d weights sum to %v", tt.size, tt.sigma, i, sum)
			}
		}
		if mid := tt.size / 2; len(k) <= tt.size && mid-len(k)/2 >= 0 && mid+len(k)/2 < tt.size {
			if _, w := m.Row(mid); w[len(k)/2] != k[len(k)/2] {
				t.Errorf("size %d sigma %v: center weight %v, want %v", tt.size, tt.sigma, w[len(k)/2], k[len(k)/2])
			}
		}
	}
	if _, err := NewBlurMap(10, 0); !errors.Is(err, imgerr.ErrInvalidConfiguration) {
		t.Errorf("zero sigma: %v", err)
	}
}

func TestMapRejectsBadInput(t *testing.T) {
	if _, err := NewMap(0, 10, Bilinear); !errors.Is(err, imgerr.ErrInvalidConfiguration) {
		t.Errorf("zero input: %v", err)
	}
	if _, err := NewMap(10, 10, Settings{Kernel: Linear{}, Blur: 3}); !errors.Is(err, imgerr.ErrInvalidConfiguration) {
		t.Errorf("bad blur: %v", err)
	}
}

func BenchmarkNewMapUncached(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buildMap(4000, 333, Lanczos3, 0, 4000)
	}
}
