// Package manifest records what a batch build produced.
package manifest

// Manifest is the top-level output of a rowscale build.
type Manifest struct {
	Version     int              `json:"version"`
	GeneratedAt string           `json:"generated_at"`
	Profile     string           `json:"profile"`
	BasePath    string           `json:"base_path"`
	BuildInfo   *BuildInfo       `json:"build_info,omitempty"`
	Assets      map[string]Asset `json:"assets"`
	Stats       Stats            `json:"stats"`
}

// BuildInfo captures build-time parameters for diagnostics.
type BuildInfo struct {
	Workers  int      `json:"workers"`
	Encoders []string `json:"encoders,omitempty"`
	Options  []string `json:"options,omitempty"` // extra key=value resize options
}

// Asset describes a single source image and all its generated variants.
type Asset struct {
	Original    OriginalInfo `json:"original"`
	AspectRatio float64      `json:"aspect_ratio"`        // width / height
	AvgColor    *[3]uint8    `json:"avg_color,omitempty"` // [R,G,B], optional
	Variants    []Variant    `json:"variants"`
}

// OriginalInfo holds metadata about the source image.
type OriginalInfo struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
	HasAlpha bool   `json:"has_alpha"`
	Frames   int    `json:"frames,omitempty"`
}

// Variant is one encoded output of an asset at a specific size and format.
type Variant struct {
	Format string `json:"format"` // "avif", "webp", "jpeg", "png", "png8", "gif"
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"` // bytes on disk
	Hash   string `json:"hash"` // first 16 hex chars of xxhash64
	Path   string `json:"path"` // relative to base_path
	// CacheKey fingerprints the source and every setting that shaped the
	// bytes; a rebuild with the same key reuses the file.
	CacheKey string   `json:"cache_key"`
	Resize   *Summary `json:"resize,omitempty"`
}

// Summary is the resolved resize plan behind a variant.
type Summary struct {
	Crop        [4]int  `json:"crop"` // x, y, width, height
	Filter      string  `json:"filter"`
	Ratio       float64 `json:"ratio"`
	HybridRatio int     `json:"hybrid_ratio"`
	Sharpen     int     `json:"sharpen,omitempty"` // unsharp amount
	Quality     int     `json:"quality,omitempty"`
	Chain       string  `json:"chain,omitempty"`
}

// Stats aggregates build metrics.
type Stats struct {
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
	TotalAssets      int   `json:"total_assets"`
	TotalVariants    int   `json:"total_variants"`
	SkippedRegress   int   `json:"skipped_regress,omitempty"` // variants skipped (larger than original)
	Reused           int   `json:"reused,omitempty"`          // variants reused from a previous build
}

// SupportedManifestVersion is the current schema version.
const SupportedManifestVersion = 2
