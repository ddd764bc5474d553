// Package pipeline composes decoders, transform chains and encoders: one
// image at a time through a Processor, or a whole directory through a
// Pipeline.
package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/AnyUserName/rowscale/internal/encoder"
	"github.com/AnyUserName/rowscale/internal/manifest"
	"github.com/AnyUserName/rowscale/internal/profile"
)

// Config holds all parameters for a build pipeline run.
type Config struct {
	InputDir  string
	OutputDir string
	Profile   profile.Profile
	Workers   int
	// Options are resize options layered over the profile's for every
	// variant.
	Options       map[string]string
	NoRegressSize bool // skip variants larger than original
	// Previous is an earlier manifest of OutputDir. Variants whose cache
	// key it already lists are reused when their file is intact.
	Previous *manifest.Manifest
	Chain    ChainOptions
	// Registry defaults to encoder.NewRegistry.
	Registry *encoder.Registry
	Logger   logrus.FieldLogger
}

// Pipeline orchestrates image processing.
type Pipeline struct {
	cfg      Config
	registry *encoder.Registry
	proc     *Processor
	previous map[string]manifest.Variant
	log      logrus.FieldLogger
}

// New creates a configured pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Registry == nil {
		cfg.Registry = encoder.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	cfg.Chain.Logger = cfg.Logger
	p := &Pipeline{
		cfg:      cfg,
		registry: cfg.Registry,
		proc:     NewProcessor(cfg.Registry, cfg.Chain),
		log:      cfg.Logger,
	}
	if cfg.Previous != nil {
		p.previous = cfg.Previous.ByCacheKey()
	}
	return p
}

// Run executes the full build pipeline and returns the manifest. A failed
// image is logged and left out; the build fails only when every image
// fails or ctx is canceled.
func (p *Pipeline) Run(ctx context.Context) (*manifest.Manifest, error) {
	p.log.WithField("stage", "build").Debug(p.registry.String())

	sources, err := ScanImages(p.cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images found in %s", p.cfg.InputDir)
	}
	p.log.WithField("stage", "build").Infof("found %d images", len(sources))

	results := make([]processResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			log := p.log.WithField("key", src.Key)
			log.Debug("processing")
			results[i] = p.processImage(gctx, src)
			if results[i].err == nil {
				log.WithField("variants", len(results[i].asset.Variants)).Debug("done")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := manifest.New(p.cfg.Profile.Name)
	var failed int
	for _, r := range results {
		if r.err != nil {
			failed++
			p.log.WithField("key", r.key).WithError(r.err).Error("image failed")
			continue
		}
		m.Assets[r.key] = r.asset
		m.Stats.SkippedRegress += r.skippedRegress
		m.Stats.Reused += r.reused
	}
	if failed > 0 {
		if failed == len(sources) {
			return nil, fmt.Errorf("all %d images failed to process", failed)
		}
		p.log.Warnf("%d of %d images had errors", failed, len(sources))
	}

	m.BuildInfo = &manifest.BuildInfo{
		Workers:  p.cfg.Workers,
		Encoders: p.registry.Available(),
		Options:  optionList(p.cfg.Options),
	}
	m.ComputeStats()
	return m, nil
}
