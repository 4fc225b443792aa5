// Package mock provides a deterministic in-process provider for tests and
// offline runs. Outputs are derived from a hash of the request, so equal
// requests always produce equal results.
package mock

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"lukechampine.com/blake3"

	"github.com/zjrosen/canvasflow/internal/catalog"
	"github.com/zjrosen/canvasflow/internal/provider"
)

// Name is the default provider name used by mock catalog entries.
const Name = "mock"

// BaseURL prefixes every generated asset URL.
const BaseURL = "https://mock.canvasflow.local"

// Call records one generation request.
type Call struct {
	Modality catalog.Modality
	Model    string
	Prompt   string
}

// Provider is a configurable stub provider. The Func fields override the
// default deterministic behavior when set.
type Provider struct {
	ImageFunc func(ctx context.Context, opts provider.ImageOptions) (provider.ImageResult, error)
	VideoFunc func(ctx context.Context, opts provider.VideoOptions) (provider.VideoResult, error)
	TextFunc  func(ctx context.Context, opts provider.TextOptions) (provider.TextResult, error)

	name string
	caps provider.Capabilities

	mu    sync.Mutex
	calls []Call
}

// Option configures a Provider.
type Option func(*Provider)

// WithName overrides the registry name.
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

// WithCapabilities overrides the capability flags.
func WithCapabilities(caps provider.Capabilities) Option {
	return func(p *Provider) { p.caps = caps }
}

// New creates a mock provider serving image, video and text.
func New(opts ...Option) *Provider {
	p := &Provider{
		name: Name,
		caps: provider.Capabilities{Image: true, Video: true, Text: true},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	_ provider.ImageGenerator = (*Provider)(nil)
	_ provider.VideoGenerator = (*Provider)(nil)
	_ provider.TextGenerator  = (*Provider)(nil)
)

func (p *Provider) Name() string                        { return p.name }
func (p *Provider) Capabilities() provider.Capabilities { return p.caps }

// GenerateImage returns a stable URL for the request.
func (p *Provider) GenerateImage(ctx context.Context, opts provider.ImageOptions) (provider.ImageResult, error) {
	p.record(catalog.ModalityImage, opts.Model, opts.Prompt)
	if err := ctx.Err(); err != nil {
		return provider.ImageResult{}, err
	}
	if p.ImageFunc != nil {
		return p.ImageFunc(ctx, opts)
	}
	return provider.ImageResult{
		URL:      fmt.Sprintf("%s/image/%s.png", BaseURL, digest(opts.Model, opts.Prompt, opts.AspectRatio)),
		MIMEType: "image/png",
	}, nil
}

// GenerateVideo returns a stable URL for the request.
func (p *Provider) GenerateVideo(ctx context.Context, opts provider.VideoOptions) (provider.VideoResult, error) {
	p.record(catalog.ModalityVideo, opts.Model, opts.Prompt)
	if err := ctx.Err(); err != nil {
		return provider.VideoResult{}, err
	}
	if p.VideoFunc != nil {
		return p.VideoFunc(ctx, opts)
	}
	return provider.VideoResult{
		URL:      fmt.Sprintf("%s/video/%s.mp4", BaseURL, digest(opts.Model, opts.Prompt, opts.AspectRatio, fmt.Sprint(opts.Duration))),
		Duration: opts.Duration,
	}, nil
}

// GenerateText echoes the prompt.
func (p *Provider) GenerateText(ctx context.Context, opts provider.TextOptions) (provider.TextResult, error) {
	p.record(catalog.ModalityText, opts.Model, opts.Prompt)
	if err := ctx.Err(); err != nil {
		return provider.TextResult{}, err
	}
	if p.TextFunc != nil {
		return p.TextFunc(ctx, opts)
	}
	return provider.TextResult{Text: "mock response: " + opts.Prompt}, nil
}

// Calls returns a copy of the recorded requests in call order.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// Reset clears recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	p.calls = nil
	p.mu.Unlock()
}

func (p *Provider) record(m catalog.Modality, model, prompt string) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Modality: m, Model: model, Prompt: prompt})
	p.mu.Unlock()
}

func digest(parts ...string) string {
	h := blake3.New(8, nil)
	for _, part := range parts {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
