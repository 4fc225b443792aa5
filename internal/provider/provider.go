package provider

import (
	"context"

	"github.com/zjrosen/canvasflow/internal/catalog"
)

// Capabilities flags the modalities a provider can generate.
type Capabilities struct {
	Image bool `json:"image"`
	Video bool `json:"video"`
	Text  bool `json:"text"`
	Audio bool `json:"audio"`
}

// Supports reports whether the flag for m is set.
func (c Capabilities) Supports(m catalog.Modality) bool {
	switch m {
	case catalog.ModalityImage:
		return c.Image
	case catalog.ModalityVideo:
		return c.Video
	case catalog.ModalityText:
		return c.Text
	case catalog.ModalityAudio:
		return c.Audio
	}
	return false
}

// Provider is a generation backend.
type Provider interface {
	// Name is the identifier catalog entries use to reference the provider.
	Name() string

	// Capabilities reports which modalities the provider serves.
	Capabilities() Capabilities
}

// ImageGenerator is implemented by providers that generate images.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, opts ImageOptions) (ImageResult, error)
}

// VideoGenerator is implemented by providers that generate videos.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, opts VideoOptions) (VideoResult, error)
}

// TextGenerator is implemented by providers that generate text.
type TextGenerator interface {
	GenerateText(ctx context.Context, opts TextOptions) (TextResult, error)
}

// AudioGenerator is implemented by providers that generate audio.
type AudioGenerator interface {
	GenerateAudio(ctx context.Context, opts AudioOptions) (AudioResult, error)
}

// ImageOptions are the inputs of an image generation.
// Model is the vendor model name and is filled in by the Dispatcher.
type ImageOptions struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

// VideoOptions are the inputs of a video generation. Duration is seconds.
type VideoOptions struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// TextOptions are the inputs of a text generation.
type TextOptions struct {
	Model        string  `json:"model"`
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"systemPrompt,omitempty"`
	MaxTokens    int     `json:"maxTokens,omitempty"`
	Temperature  float32 `json:"temperature,omitempty"`
}

// AudioOptions are the inputs of an audio generation.
type AudioOptions struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ImageResult is a generated image. URL may be a data URI when the vendor
// returns inline bytes, in which case Base64 holds the raw payload.
type ImageResult struct {
	URL      string `json:"url"`
	MIMEType string `json:"mimeType,omitempty"`
	Base64   string `json:"base64,omitempty"`
}

// VideoResult is a generated video. Duration is seconds.
type VideoResult struct {
	URL      string `json:"url"`
	Duration int    `json:"duration,omitempty"`
}

// TextResult is generated text.
type TextResult struct {
	Text string `json:"text"`
}

// AudioResult is generated audio.
type AudioResult struct {
	URL      string `json:"url"`
	MIMEType string `json:"mimeType,omitempty"`
}

// Generator is the model-addressed generation surface the workflow engine
// depends on. Dispatcher and CachingDispatcher implement it.
type Generator interface {
	GenerateImageWithModel(ctx context.Context, modelID string, opts ImageOptions) (ImageResult, error)
	GenerateVideoWithModel(ctx context.Context, modelID string, opts VideoOptions) (VideoResult, error)
	GenerateTextWithModel(ctx context.Context, modelID string, opts TextOptions) (TextResult, error)
	GenerateAudioWithModel(ctx context.Context, modelID string, opts AudioOptions) (AudioResult, error)
}
