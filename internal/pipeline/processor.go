package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/AnyUserName/rowscale/internal/decoder"
	"github.com/AnyUserName/rowscale/internal/hasher"
	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/interp"
	"github.com/AnyUserName/rowscale/internal/manifest"
	"github.com/AnyUserName/rowscale/internal/pixel"
	"github.com/AnyUserName/rowscale/internal/resize"
)

var errNoVariants = errors.New("no variants produced")

// processResult holds the result of processing a single source image.
type processResult struct {
	key            string
	asset          manifest.Asset
	err            error
	skippedRegress int // variants skipped because larger than original
	reused         int // variants taken over from the previous build
}

// processImage decodes one source and renders every profile variant of it.
func (p *Pipeline) processImage(ctx context.Context, src Source) processResult {
	result := processResult{key: src.Key}

	img, err := decoder.Open(src.AbsPath)
	if err != nil {
		result.err = fmt.Errorf("open %s: %w", src.RelPath, err)
		return result
	}
	info := img.Info()
	g := info.Frames[0]
	width, height := g.Displayed()

	result.asset = manifest.Asset{
		Original: manifest.OriginalInfo{
			Width:    width,
			Height:   height,
			Format:   info.Format,
			Size:     info.Size,
			HasAlpha: g.HasAlpha,
			Frames:   img.FrameCount(),
		},
		AspectRatio: float64(width) / float64(height),
	}
	if avg, err := averageColor(ctx, img); err == nil {
		result.asset.AvgColor = &avg
	} else {
		p.log.WithField("key", src.Key).WithError(err).Warn("average color")
	}

	widths := p.cfg.Profile.EffectiveWidths(width)
	formats := p.registry.ResolveFormats(p.cfg.Profile.Formats, g.HasAlpha)

	keyDir := filepath.Dir(filepath.FromSlash(src.Key))
	if err := os.MkdirAll(filepath.Join(p.cfg.OutputDir, keyDir), 0o755); err != nil {
		result.err = fmt.Errorf("create output dir: %w", err)
		return result
	}

	for _, w := range widths {
		for _, format := range formats {
			s, err := p.cfg.Profile.Settings(w, format, p.cfg.Options)
			if err != nil {
				result.err = fmt.Errorf("%s: %w", src.RelPath, err)
				return result
			}
			plan, err := p.proc.Plan(img, s)
			if err != nil {
				result.err = fmt.Errorf("%s: %w", src.RelPath, err)
				return result
			}
			log := p.log.WithFields(logrus.Fields{
				"key":    src.Key,
				"width":  plan.Resolved.Width,
				"height": plan.Resolved.Height,
				"format": format,
			})

			if v, ok := p.reusable(plan.Key); ok {
				log.Debug("reused")
				result.asset.Variants = append(result.asset.Variants, v)
				result.reused++
				continue
			}

			res, err := p.proc.Render(ctx, img, plan)
			if err != nil {
				if ctx.Err() != nil {
					result.err = ctx.Err()
					return result
				}
				log.WithError(err).Warn("render failed")
				continue
			}

			if p.cfg.NoRegressSize && int64(len(res.Data)) >= src.Size {
				log.Debugf("skip: encoded %d >= original %d bytes", len(res.Data), src.Size)
				result.skippedRegress++
				continue
			}

			v, err := p.writeVariant(src, res)
			if err != nil {
				result.err = err
				return result
			}
			result.asset.Variants = append(result.asset.Variants, v)
		}
	}

	if len(result.asset.Variants) == 0 && result.skippedRegress == 0 {
		result.err = fmt.Errorf("%s: %w", src.RelPath, errNoVariants)
	}
	return result
}

// reusable finds a variant of the previous build with the same cache key
// whose file is still intact.
func (p *Pipeline) reusable(key string) (manifest.Variant, bool) {
	v, ok := p.previous[key]
	if !ok {
		return manifest.Variant{}, false
	}
	st, err := os.Stat(filepath.Join(p.cfg.OutputDir, filepath.FromSlash(v.Path)))
	if err != nil || st.Size() != v.Size {
		return manifest.Variant{}, false
	}
	return v, true
}

// writeVariant stores a rendered output under a content-addressed name:
// <key>.<w>.<h>.<hash8>.<ext>
func (p *Pipeline) writeVariant(src Source, res *Result) (manifest.Variant, error) {
	r := res.Resolved
	contentHash := hasher.ContentHash(res.Data, 16)
	fileName := fmt.Sprintf("%s.%d.%d.%s.%s",
		filepath.Base(src.Key), r.Width, r.Height, contentHash[:8], res.Extension)
	relPath := filepath.ToSlash(filepath.Join(filepath.Dir(filepath.FromSlash(src.Key)), fileName))

	if err := os.WriteFile(filepath.Join(p.cfg.OutputDir, filepath.FromSlash(relPath)), res.Data, 0o644); err != nil {
		return manifest.Variant{}, fmt.Errorf("write %s: %w", relPath, err)
	}
	return manifest.Variant{
		Format:   r.Format,
		Width:    r.Width,
		Height:   r.Height,
		Size:     int64(len(res.Data)),
		Hash:     contentHash,
		Path:     relPath,
		CacheKey: res.Key,
		Resize:   summarize(res),
	}, nil
}

func summarize(res *Result) *manifest.Summary {
	r := res.Resolved
	c := r.Crop
	return &manifest.Summary{
		Crop:        [4]int{c.Min.X, c.Min.Y, c.Dx(), c.Dy()},
		Filter:      r.Interpolation.String(),
		Ratio:       r.ScaleRatio,
		HybridRatio: r.HybridRatio,
		Sharpen:     r.Unsharp.Amount,
		Quality:     r.Quality,
		Chain:       (&Chain{Stages: res.Stages}).String(),
	}
}

// averageColor box-filters the first frame down to a single pixel.
func averageColor(ctx context.Context, img *decoder.Image) ([3]uint8, error) {
	var avg [3]uint8
	plan, err := resize.Resolve(resize.Settings{
		Width:         1,
		Height:        1,
		Mode:          resize.ModeStretch,
		Hybrid:        resize.HybridFavorSpeed,
		Interpolation: interp.Average,
		Format:        "png",
	}, img.Info())
	if err != nil {
		return avg, err
	}
	frame, err := img.Frame(0)
	if err != nil {
		return avg, err
	}
	chain, err := BuildChain(ctx, frame, plan, ChainOptions{})
	if err != nil {
		return avg, err
	}
	defer chain.Close()

	px, err := pixel.Drain(ctx, chain.Source)
	if err != nil {
		return avg, err
	}
	row := px.Row(0)
	switch px.Fmt {
	case pixel.Grey8:
		avg = [3]uint8{row[0], row[0], row[0]}
	case pixel.Bgr24, pixel.Bgra32:
		avg = [3]uint8{row[2], row[1], row[0]}
	default:
		return avg, imgerr.Unsupported("average of %s", px.Fmt)
	}
	return avg, nil
}

// optionList renders extra options as sorted key=value pairs.
func optionList(opts map[string]string) []string {
	var out []string
	for k, v := range opts {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
