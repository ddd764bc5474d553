package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/AnyUserName/rowscale/internal/decoder"
	"github.com/AnyUserName/rowscale/internal/encoder"
	"github.com/AnyUserName/rowscale/internal/pixel"
	"github.com/AnyUserName/rowscale/internal/resize"
)

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Plan is a resolved request for one image, ready to render.
type Plan struct {
	Resolved resize.Resolved
	// Key is the cache key of the output.
	Key string
}

// Result is one rendered output.
type Result struct {
	Plan
	Data      []byte
	Extension string
	Stages    []string
}

// Processor renders single images through a chain and an encoder.
type Processor struct {
	registry *encoder.Registry
	chain    ChainOptions
	log      logrus.FieldLogger
}

// NewProcessor creates a processor. A nil logger discards output.
func NewProcessor(registry *encoder.Registry, opts ChainOptions) *Processor {
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	return &Processor{registry: registry, chain: opts, log: opts.Logger}
}

// Plan resolves s against img without touching pixels.
func (p *Processor) Plan(img *decoder.Image, s resize.Settings) (Plan, error) {
	info := img.Info()
	r, err := resize.Resolve(s, info)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Resolved: r, Key: resize.CacheKey(info, r)}, nil
}

// Process resolves s against img and renders it.
func (p *Processor) Process(ctx context.Context, img *decoder.Image, s resize.Settings) (*Result, error) {
	plan, err := p.Plan(img, s)
	if err != nil {
		return nil, err
	}
	return p.Render(ctx, img, plan)
}

// Render pulls the planned frame through its chain and encodes it.
func (p *Processor) Render(ctx context.Context, img *decoder.Image, plan Plan) (*Result, error) {
	r := plan.Resolved
	enc, err := p.registry.Lookup(r.Format)
	if err != nil {
		return nil, err
	}
	frame, err := img.Frame(r.Frame)
	if err != nil {
		return nil, err
	}
	chain, err := BuildChain(ctx, frame, r, p.chain)
	if err != nil {
		return nil, fmt.Errorf("build chain: %w", err)
	}
	defer chain.Close()

	out, err := pixel.ToImage(ctx, chain.Source)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	data, err := enc.Encode(ctx, out, encoder.OptionsFor(r, img.Meta.Records))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Format, err)
	}

	fields := logrus.Fields{
		"key":    plan.Key,
		"width":  r.Width,
		"height": r.Height,
		"format": r.Format,
		"bytes":  len(data),
	}
	if chain.Cache != nil {
		st := chain.Cache.Stats()
		fields["planar_rows"] = st.RowsDecoded
		fields["planar_window"] = st.WindowRows
	}
	p.log.WithFields(fields).Debug("rendered")

	return &Result{
		Plan:      plan,
		Data:      data,
		Extension: enc.Extension(),
		Stages:    chain.Stages,
	}, nil
}
