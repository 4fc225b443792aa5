package provider

import (
	"context"
	"time"

	"github.com/zjrosen/canvasflow/internal/catalog"
	"github.com/zjrosen/canvasflow/internal/log"
)

// Dispatcher routes model-addressed generation requests to the provider
// the catalog names for that model.
type Dispatcher struct {
	catalog  *catalog.Catalog
	registry *Registry
}

var _ Generator = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher over an immutable catalog and registry.
func NewDispatcher(cat *catalog.Catalog, reg *Registry) *Dispatcher {
	return &Dispatcher{catalog: cat, registry: reg}
}

// GenerateImageWithModel generates an image with the catalog model modelID.
func (d *Dispatcher) GenerateImageWithModel(ctx context.Context, modelID string, opts ImageOptions) (ImageResult, error) {
	return dispatch(ctx, d, modelID, catalog.ModalityImage,
		func(vendor string) ImageOptions { opts.Model = vendor; return opts },
		ImageGenerator.GenerateImage)
}

// GenerateVideoWithModel generates a video with the catalog model modelID.
func (d *Dispatcher) GenerateVideoWithModel(ctx context.Context, modelID string, opts VideoOptions) (VideoResult, error) {
	return dispatch(ctx, d, modelID, catalog.ModalityVideo,
		func(vendor string) VideoOptions { opts.Model = vendor; return opts },
		VideoGenerator.GenerateVideo)
}

// GenerateTextWithModel generates text with the catalog model modelID.
func (d *Dispatcher) GenerateTextWithModel(ctx context.Context, modelID string, opts TextOptions) (TextResult, error) {
	return dispatch(ctx, d, modelID, catalog.ModalityText,
		func(vendor string) TextOptions { opts.Model = vendor; return opts },
		TextGenerator.GenerateText)
}

// GenerateAudioWithModel generates audio with the catalog model modelID.
func (d *Dispatcher) GenerateAudioWithModel(ctx context.Context, modelID string, opts AudioOptions) (AudioResult, error) {
	return dispatch(ctx, d, modelID, catalog.ModalityAudio,
		func(vendor string) AudioOptions { opts.Model = vendor; return opts },
		AudioGenerator.GenerateAudio)
}

// resolve finds the catalog entry and provider for modelID and checks that
// both serve modality m.
func (d *Dispatcher) resolve(modelID string, m catalog.Modality) (catalog.ModelConfig, Provider, error) {
	cfg, ok := d.catalog.Lookup(modelID)
	if !ok {
		return catalog.ModelConfig{}, nil, &UnknownModelError{Model: modelID}
	}
	p, ok := d.registry.Get(cfg.Provider)
	if !ok {
		return cfg, nil, &UnknownProviderError{Provider: cfg.Provider, Model: modelID}
	}
	if cfg.Type != m || !p.Capabilities().Supports(m) {
		return cfg, p, &UnsupportedCapabilityError{Provider: cfg.Provider, Model: modelID, Capability: m}
	}
	return cfg, p, nil
}

func dispatch[G any, O any, R any](
	ctx context.Context,
	d *Dispatcher,
	modelID string,
	m catalog.Modality,
	withModel func(vendor string) O,
	call func(G, context.Context, O) (R, error),
) (R, error) {
	var zero R

	cfg, p, err := d.resolve(modelID, m)
	if err != nil {
		log.Warn(log.CatProvider, "dispatch rejected", "model", modelID, "modality", m, "error", err)
		return zero, err
	}

	gen, ok := p.(G)
	if !ok {
		return zero, &UnsupportedCapabilityError{Provider: cfg.Provider, Model: modelID, Capability: m}
	}

	vendor := cfg.VendorModel
	if vendor == "" {
		vendor = cfg.ID
	}

	start := time.Now()
	res, err := call(gen, ctx, withModel(vendor))
	elapsed := time.Since(start)
	if err != nil {
		log.ErrorErr(log.CatProvider, "generation failed", err,
			"provider", cfg.Provider, "model", modelID, "modality", m, "elapsed", elapsed)
		return zero, &ExecutionError{Provider: cfg.Provider, Model: modelID, Err: err}
	}

	log.Debug(log.CatProvider, "generation complete",
		"provider", cfg.Provider, "model", modelID, "modality", m, "elapsed", elapsed)
	return res, nil
}
