package resize

import (
	"github.com/AnyUserName/rowscale/internal/hasher"
)

// CacheKey fingerprints everything that affects the output bytes of r for
// the given source file: identical inputs produce identical keys and any
// contributing difference changes the key.
func CacheKey(info ImageInfo, r Resolved) string {
	f := hasher.NewFingerprint()
	f.Int(info.Size).
		Int(info.ModTime.UTC().UnixNano()).
		Int(int64(r.Frame)).
		Int(int64(r.Crop.Min.X)).Int(int64(r.Crop.Min.Y)).
		Int(int64(r.Crop.Dx())).Int(int64(r.Crop.Dy())).
		Int(int64(r.Width)).Int(int64(r.Height)).
		Bool(r.Source.Rotated90).
		Int(int64(r.Matte.R)<<24 | int64(r.Matte.G)<<16 | int64(r.Matte.B)<<8 | int64(r.Matte.A)).
		Int(int64(r.Gamma)).
		Int(int64(r.HybridRatio)).
		String(r.Interpolation.Kernel.String()).
		Float(r.Interpolation.Blur).
		Int(int64(r.Unsharp.Amount)).
		Float(r.Unsharp.Radius).
		Int(int64(r.Unsharp.Threshold)).
		String(r.Format)

	switch r.Format {
	case "jpeg", "webp", "avif":
		f.Int(int64(r.Quality)).Int(int64(r.Subsample))
	}

	f.Int(int64(len(r.Metadata)))
	for _, m := range r.Metadata {
		f.String(m)
	}
	return f.Key()
}
