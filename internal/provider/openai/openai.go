// Package openai serves image and text generation through the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/zjrosen/canvasflow/internal/provider"
)

// Name is the registry name catalog entries use.
const Name = "openai"

// Config configures the client. An empty BaseURL uses the public API.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Provider generates images with DALL-E / gpt-image and text with chat
// completions. Video and audio are not served.
type Provider struct {
	client *goopenai.Client
}

var (
	_ provider.ImageGenerator = (*Provider)(nil)
	_ provider.TextGenerator  = (*Provider)(nil)
)

// New creates a provider. The API key is required.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	return &Provider{client: goopenai.NewClientWithConfig(clientCfg)}, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{Image: true, Text: true}
}

// GenerateImage requests a single image. DALL-E models answer with a URL;
// gpt-image models only return base64, which becomes a data URI.
func (p *Provider) GenerateImage(ctx context.Context, opts provider.ImageOptions) (provider.ImageResult, error) {
	req := goopenai.ImageRequest{
		Prompt: opts.Prompt,
		Model:  opts.Model,
		N:      1,
		Size:   sizeFor(opts.Model, opts.AspectRatio),
	}
	if strings.HasPrefix(opts.Model, "dall-e") {
		req.ResponseFormat = goopenai.CreateImageResponseFormatURL
	}

	resp, err := p.client.CreateImage(ctx, req)
	if err != nil {
		return provider.ImageResult{}, fmt.Errorf("create image: %w", err)
	}
	if len(resp.Data) == 0 {
		return provider.ImageResult{}, errors.New("create image: empty response")
	}

	img := resp.Data[0]
	if img.URL != "" {
		return provider.ImageResult{URL: img.URL, MIMEType: "image/png"}, nil
	}
	if img.B64JSON != "" {
		return provider.ImageResult{
			URL:      "data:image/png;base64," + img.B64JSON,
			MIMEType: "image/png",
			Base64:   img.B64JSON,
		}, nil
	}
	return provider.ImageResult{}, errors.New("create image: response has neither url nor data")
}

// GenerateText runs a single-turn chat completion.
func (p *Provider) GenerateText(ctx context.Context, opts provider.TextOptions) (provider.TextResult, error) {
	var messages []goopenai.ChatCompletionMessage
	if opts.SystemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: opts.SystemPrompt,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: opts.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return provider.TextResult{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return provider.TextResult{}, errors.New("chat completion: no choices returned")
	}
	return provider.TextResult{Text: resp.Choices[0].Message.Content}, nil
}

// gpt-image models take 1536 wide or tall sizes, dall-e-3 takes 1792 and
// dall-e-2 only squares.
const (
	gptImageSizeLandscape = "1536x1024"
	gptImageSizePortrait  = "1024x1536"
)

func sizeFor(model, aspect string) string {
	landscape, portrait := gptImageSizeLandscape, gptImageSizePortrait
	switch {
	case strings.HasPrefix(model, "dall-e-2"):
		return goopenai.CreateImageSize1024x1024
	case strings.HasPrefix(model, "dall-e"):
		landscape, portrait = goopenai.CreateImageSize1792x1024, goopenai.CreateImageSize1024x1792
	}

	switch aspect {
	case "16:9", "3:2", "4:3":
		return landscape
	case "9:16", "2:3", "3:4":
		return portrait
	default:
		return goopenai.CreateImageSize1024x1024
	}
}
