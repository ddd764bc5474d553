package pipeline

import (
	"context"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/pixel"
	"github.com/AnyUserName/rowscale/internal/planar"
	"github.com/AnyUserName/rowscale/internal/resize"
	"github.com/AnyUserName/rowscale/internal/transform"
)

// ChainOptions tunes how BuildChain composes stages.
type ChainOptions struct {
	// NoPlanar forces the interleaved path even when the decoder can
	// deliver separate luma and chroma planes.
	NoPlanar bool
	// Planar configures the planar window.
	Planar planar.Options
	// NoDither maps indexed output to the nearest palette entry instead
	// of diffusing the error.
	NoDither bool
	Logger   logrus.FieldLogger
}

// Chain is the built pull chain for one frame.
type Chain struct {
	// Source is the terminal stage. Pull pixels from it, and only it.
	Source pixel.Source
	// Stages names the stages in pull order, for logs and reports.
	Stages []string
	// NativeFactor is the reduction the decoder applied before the chain.
	NativeFactor int
	// Cache is the planar window when the planar path was taken.
	Cache *planar.Cache
}

// Close releases every stage and the frame under them.
func (c *Chain) Close() error { return c.Source.Close() }

func (c *Chain) String() string { return strings.Join(c.Stages, " → ") }

// area is a rectangle in fractional pixels.
type area struct{ x, y, w, h float64 }

func areaOf(r image.Rectangle, scale float64) area {
	return area{
		x: float64(r.Min.X) / scale,
		y: float64(r.Min.Y) / scale,
		w: float64(r.Dx()) / scale,
		h: float64(r.Dy()) / scale,
	}
}

// outer is the smallest integer rectangle holding a, clipped to bounds.
func (a area) outer(bounds image.Rectangle) image.Rectangle {
	r := image.Rect(
		int(math.Floor(a.x)), int(math.Floor(a.y)),
		int(math.Ceil(a.x+a.w-1e-9)), int(math.Ceil(a.y+a.h-1e-9)),
	)
	return r.Intersect(bounds)
}

// window expresses a relative to origin in a space reduced by sx and sy.
func (a area) window(origin image.Point, sx, sy float64) transform.Window {
	return transform.Window{
		X: (a.x - float64(origin.X)) / sx,
		Y: (a.y - float64(origin.Y)) / sy,
		W: a.w / sx,
		H: a.h / sy,
	}
}

// fitWindow drops a window that covers exactly the whole of src.
func fitWindow(w transform.Window, src pixel.Source) transform.Window {
	if w == (transform.Window{W: float64(src.Width()), H: float64(src.Height())}) {
		return transform.Window{}
	}
	return w
}

// builder appends stages to one branch of a chain, tracking its head.
type builder struct {
	head   pixel.Source
	stages []string
}

func (b *builder) add(name string, next pixel.Source, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if next != b.head {
		b.head = next
		b.stages = append(b.stages, name)
	}
	return nil
}

// BuildChain composes the stages that turn frame into the output pixels of
// plan. The chain owns frame from here on: on success closing the chain
// closes it, and on failure it has already been closed. Stages that must
// read the whole frame before producing output observe ctx.
func BuildChain(ctx context.Context, frame pixel.Source, plan resize.Resolved, opts ChainOptions) (*Chain, error) {
	log := opts.Logger
	if log == nil {
		log = discardLogger()
	}
	fw, fh := frame.Width(), frame.Height()
	if w, h := plan.Source.Displayed(); fw != w || fh != h {
		frame.Close()
		return nil, imgerr.Invalid("frame is %dx%d, plan was resolved for %dx%d", fw, fh, w, h)
	}

	head, factor, err := transform.NativeScale(frame, plan.HybridRatio)
	if err != nil {
		frame.Close()
		return nil, fmt.Errorf("native scale: %w", err)
	}
	c := &Chain{NativeFactor: factor}
	if factor > 1 {
		c.Stages = append(c.Stages, fmt.Sprintf("native/%d", factor))
	}

	exact := areaOf(plan.Crop, float64(factor))
	hybrid := max(plan.HybridRatio/factor, 1)

	var b *builder
	if ps, ok := planarSource(head, opts); ok {
		b, err = buildPlanar(c, ps, exact, hybrid, plan, opts)
	} else {
		b = &builder{head: head}
		err = buildInterleaved(b, exact, hybrid, plan)
	}
	if err != nil {
		// A failed planar build has closed its branches already.
		if b != nil {
			b.head.Close()
		}
		return nil, err
	}
	if err := buildOutput(ctx, b, plan, opts); err != nil {
		b.head.Close()
		return nil, err
	}

	c.Source = b.head
	c.Stages = append(c.Stages, b.stages...)
	log.WithFields(logrus.Fields{
		"stage":  "chain",
		"width":  plan.Width,
		"height": plan.Height,
		"format": plan.Format,
	}).Debugf("chain %s", c)
	return c, nil
}

func planarSource(src pixel.Source, opts ChainOptions) (pixel.PlanarSource, bool) {
	if opts.NoPlanar {
		return nil, false
	}
	ps, ok := src.(pixel.PlanarSource)
	if !ok {
		return nil, false
	}
	if _, ok := ps.PlanarLayout(); !ok {
		return nil, false
	}
	return ps, true
}

func resampleOptions(plan resize.Resolved, w transform.Window) transform.ResampleOptions {
	return transform.ResampleOptions{
		Interpolation: plan.Interpolation,
		Linear:        plan.Gamma == resize.GammaLinear,
		Window:        w,
	}
}

// buildInterleaved is the path for sources delivering whole pixels: crop,
// reach the working format, reduce, resample and sharpen.
func buildInterleaved(b *builder, exact area, hybrid int, plan resize.Resolved) error {
	crop := exact.outer(pixel.Bounds(b.head))
	if crop != pixel.Bounds(b.head) {
		next, err := transform.NewCrop(b.head, crop)
		if err := b.add("crop", next, err); err != nil {
			return err
		}
	}
	if b.head.Format() == pixel.Cmyk32 {
		if err := b.add("colorconvert", transform.NewColorConvert(b.head), nil); err != nil {
			return err
		}
	}

	keepAlpha := resize.FormatHasAlpha(plan.Format)
	work := transform.WorkingFormat(b.head.Format(), keepAlpha)
	next, err := transform.NewFormatConvert(b.head, work, plan.Matte)
	if err := b.add("format:"+work.String(), next, err); err != nil {
		return err
	}

	next, err = transform.NewHybridScale(b.head, hybrid)
	if err := b.add(fmt.Sprintf("hybrid/%d", hybrid), next, err); err != nil {
		return err
	}

	win := fitWindow(exact.window(crop.Min, float64(hybrid), float64(hybrid)), b.head)
	next, err = transform.NewResample(b.head, plan.Width, plan.Height, resampleOptions(plan, win))
	if err := b.add("resample:"+plan.Interpolation.String(), next, err); err != nil {
		return err
	}

	u := plan.Unsharp
	if u.Enabled() {
		next, err = transform.NewSharpen(b.head, u.Amount, u.Radius, u.Threshold)
		if err := b.add("sharpen", next, err); err != nil {
			return err
		}
	}
	return nil
}

// buildPlanar runs luma and chroma through separate branches over one
// windowed planar cache and merges them back to BGR at output size. Luma
// is cropped exactly; chroma keeps the grid-aligned crop and lets its
// resampler window pick out the exact area.
func buildPlanar(c *Chain, src pixel.PlanarSource, exact area, hybrid int, plan resize.Resolved, opts ChainOptions) (*builder, error) {
	cache, err := planar.New(src, exact.outer(pixel.Bounds(src)), opts.Planar)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("planar: %w", err)
	}
	c.Cache = cache
	c.Stages = append(c.Stages, "planar")
	layout, aligned := cache.Layout(), cache.Crop()

	luma := &builder{head: cache.Luma()}
	chroma := &builder{head: cache.Chroma()}
	fail := func(err error) (*builder, error) {
		luma.head.Close()
		chroma.head.Close()
		return nil, err
	}

	crop := exact.outer(pixel.Bounds(src))
	if crop != aligned {
		next, err := transform.NewCrop(luma.head, crop.Sub(aligned.Min))
		if err := luma.add("crop", next, err); err != nil {
			return fail(err)
		}
	}
	next, err := transform.NewHybridScale(luma.head, hybrid)
	if err := luma.add(fmt.Sprintf("hybrid/%d", hybrid), next, err); err != nil {
		return fail(err)
	}
	win := fitWindow(exact.window(crop.Min, float64(hybrid), float64(hybrid)), luma.head)
	next, err = transform.NewResample(luma.head, plan.Width, plan.Height, resampleOptions(plan, win))
	if err := luma.add("resample:"+plan.Interpolation.String(), next, err); err != nil {
		return fail(err)
	}
	if u := plan.Unsharp; u.Enabled() {
		next, err = transform.NewSharpen(luma.head, u.Amount, u.Radius, u.Threshold)
		if err := luma.add("sharpen", next, err); err != nil {
			return fail(err)
		}
	}

	rx, ry := layout.RatioX, layout.RatioY
	ch := max(hybrid/max(rx, ry), 1)
	next, err = transform.NewHybridScale(chroma.head, ch)
	if err := chroma.add(fmt.Sprintf("hybrid/%d", ch), next, err); err != nil {
		return fail(err)
	}
	win = fitWindow(exact.window(aligned.Min, float64(rx*ch), float64(ry*ch)), chroma.head)
	next, err = transform.NewResample(chroma.head, plan.Width, plan.Height, resampleOptions(plan, win))
	if err := chroma.add("resample:"+plan.Interpolation.String(), next, err); err != nil {
		return fail(err)
	}

	merged, err := transform.NewYccMerge(luma.head, chroma.head)
	if err != nil {
		return fail(fmt.Errorf("yccmerge: %w", err))
	}
	b := &builder{head: merged}
	b.stages = append(b.stages, "luma["+strings.Join(luma.stages, " → ")+"]")
	b.stages = append(b.stages, "chroma["+strings.Join(chroma.stages, " → ")+"]", "yccmerge")
	return b, nil
}

// buildOutput adapts the resampled pixels to the target format.
func buildOutput(ctx context.Context, b *builder, plan resize.Resolved, opts ChainOptions) error {
	if !resize.IsIndexedFormat(plan.Format) {
		return nil
	}
	next, err := transform.NewIndexedConvert(ctx, b.head, transform.MaxPaletteColors, !opts.NoDither)
	if err != nil {
		return b.add("indexed", nil, err)
	}
	return b.add("indexed", next, nil)
}
