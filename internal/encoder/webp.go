package encoder

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/resize"
)

// Atomic counter for unique temp file names across goroutines.
var tempCounter atomic.Int64

// lookup finds an external tool once.
type lookup struct {
	once sync.Once
	name string
	path string
}

func (l *lookup) find() string {
	l.once.Do(func() {
		if p, err := exec.LookPath(l.name); err == nil {
			l.path = p
		}
	})
	return l.path
}

// runTool writes img as a temporary PNG, runs the tool with args built
// from the source and destination paths, and returns the output file.
func runTool(ctx context.Context, tool, ext string, img image.Image, args func(src, dst string) []string) ([]byte, error) {
	id := tempCounter.Add(1)
	srcFile, err := os.CreateTemp("", fmt.Sprintf("rowscale_%s_src_%d_*.png", ext, id))
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	srcPath := srcFile.Name()
	defer os.Remove(srcPath)

	dstFile, err := os.CreateTemp("", fmt.Sprintf("rowscale_%s_dst_%d_*.%s", ext, id, ext))
	if err != nil {
		srcFile.Close()
		return nil, fmt.Errorf("create temp: %w", err)
	}
	dstPath := dstFile.Name()
	dstFile.Close()
	defer os.Remove(dstPath)

	if err := png.Encode(srcFile, img); err != nil {
		srcFile.Close()
		return nil, fmt.Errorf("encode temp png: %w", err)
	}
	if err := srcFile.Close(); err != nil {
		return nil, fmt.Errorf("write temp png: %w", err)
	}

	cmd := exec.CommandContext(ctx, tool, args(srcPath, dstPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, imgerr.Upstream(tool, fmt.Errorf("%w: %s", err, out))
	}
	return os.ReadFile(dstPath)
}

// WebPEncoder encodes images to WebP by shelling out to cwebp.
// Install: brew install webp / apt install webp
type WebPEncoder struct {
	tool lookup
}

func NewWebPEncoder() *WebPEncoder { return &WebPEncoder{tool: lookup{name: "cwebp"}} }

func (e *WebPEncoder) Format() string    { return "webp" }
func (e *WebPEncoder) Extension() string { return "webp" }
func (e *WebPEncoder) Available() bool   { return e.tool.find() != "" }

func (e *WebPEncoder) Encode(ctx context.Context, img image.Image, opts Options) ([]byte, error) {
	if !e.Available() {
		return nil, imgerr.Unsupported("cwebp not found in PATH; install with: brew install webp")
	}
	return runTool(ctx, e.tool.find(), "webp", img, func(src, dst string) []string {
		return []string{
			"-q", strconv.Itoa(quality(opts.Quality)),
			"-m", "6", // compression method (0=fast, 6=best)
			"-mt",
			"-quiet",
			src,
			"-o", dst,
		}
	})
}

// AVIFEncoder encodes images to AVIF by shelling out to avifenc.
// Install: brew install libavif / apt install libavif-bin
type AVIFEncoder struct {
	tool lookup
}

func NewAVIFEncoder() *AVIFEncoder { return &AVIFEncoder{tool: lookup{name: "avifenc"}} }

func (e *AVIFEncoder) Format() string    { return "avif" }
func (e *AVIFEncoder) Extension() string { return "avif" }
func (e *AVIFEncoder) Available() bool   { return e.tool.find() != "" }

func (e *AVIFEncoder) Encode(ctx context.Context, img image.Image, opts Options) ([]byte, error) {
	if !e.Available() {
		return nil, imgerr.Unsupported("avifenc not found in PATH; install with: brew install libavif")
	}
	// avifenc quantizers run 0 (best) to 63.
	q := strconv.Itoa(avifQuantizer(quality(opts.Quality)))
	return runTool(ctx, e.tool.find(), "avif", img, func(src, dst string) []string {
		args := []string{"--min", q, "--max", q, "--speed", "6", "-j", "all"}
		if yuv := avifYUV(opts.Subsample); yuv != "" {
			args = append(args, "--yuv", yuv)
		}
		return append(args, src, dst)
	})
}

func avifQuantizer(q int) int { return 63 - q*63/100 }

func avifYUV(s resize.Subsample) string {
	switch s {
	case resize.Subsample420, resize.Subsample422, resize.Subsample444:
		return strconv.Itoa(int(s))
	}
	return ""
}
