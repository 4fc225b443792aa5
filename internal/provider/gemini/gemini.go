// Package gemini serves image (Imagen), video (Veo) and text (Gemini)
// generation through the Generative Language REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/zjrosen/canvasflow/internal/log"
	"github.com/zjrosen/canvasflow/internal/provider"
)

// Name is the registry name catalog entries use.
const Name = "gemini"

// DefaultBaseURL is the public Generative Language endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const (
	DefaultPollInterval    = 10 * time.Second
	DefaultMaxPollAttempts = 60
	DefaultPollTimeout     = 10 * time.Minute
)

// Config configures the client. Zero polling values use the defaults.
type Config struct {
	APIKey          string
	BaseURL         string
	HTTPClient      *http.Client
	PollInterval    time.Duration
	MaxPollAttempts int
	PollTimeout     time.Duration
}

// Provider talks to the Generative Language API.
type Provider struct {
	apiKey  string
	baseURL string
	http    *http.Client

	pollInterval    time.Duration
	maxPollAttempts int
	pollTimeout     time.Duration
}

var (
	_ provider.ImageGenerator = (*Provider)(nil)
	_ provider.VideoGenerator = (*Provider)(nil)
	_ provider.TextGenerator  = (*Provider)(nil)
)

// New creates a provider. The API key is required.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	p := &Provider{
		apiKey:          cfg.APIKey,
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		http:            cfg.HTTPClient,
		pollInterval:    cfg.PollInterval,
		maxPollAttempts: cfg.MaxPollAttempts,
		pollTimeout:     cfg.PollTimeout,
	}
	if p.baseURL == "" {
		p.baseURL = DefaultBaseURL
	}
	if p.http == nil {
		p.http = &http.Client{Timeout: 2 * time.Minute}
	}
	if p.pollInterval <= 0 {
		p.pollInterval = DefaultPollInterval
	}
	if p.maxPollAttempts <= 0 {
		p.maxPollAttempts = DefaultMaxPollAttempts
	}
	if p.pollTimeout <= 0 {
		p.pollTimeout = DefaultPollTimeout
	}
	return p, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{Image: true, Video: true, Text: true}
}

// ----- Imagen -----

type predictRequest struct {
	Instances  []instance     `json:"instances"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type instance struct {
	Prompt string     `json:"prompt"`
	Image  *imageData `json:"image,omitempty"`
}

type imageData struct {
	GCSURI string `json:"gcsUri,omitempty"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// GenerateImage calls Imagen :predict and returns the image as a data URI.
func (p *Provider) GenerateImage(ctx context.Context, opts provider.ImageOptions) (provider.ImageResult, error) {
	params := map[string]any{"sampleCount": 1}
	if opts.AspectRatio != "" {
		params["aspectRatio"] = opts.AspectRatio
	}

	var resp predictResponse
	err := p.post(ctx, "models/"+opts.Model+":predict", predictRequest{
		Instances:  []instance{{Prompt: opts.Prompt}},
		Parameters: params,
	}, &resp)
	if err != nil {
		return provider.ImageResult{}, err
	}
	if len(resp.Predictions) == 0 || resp.Predictions[0].BytesBase64Encoded == "" {
		return provider.ImageResult{}, errors.New("imagen returned no image (the prompt may have been filtered)")
	}

	pred := resp.Predictions[0]
	mime := pred.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return provider.ImageResult{
		URL:      "data:" + mime + ";base64," + pred.BytesBase64Encoded,
		MIMEType: mime,
		Base64:   pred.BytesBase64Encoded,
	}, nil
}

// ----- Veo -----

type operation struct {
	Name     string    `json:"name"`
	Done     bool      `json:"done"`
	Error    *apiError `json:"error,omitempty"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *apiError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s (%d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("code %d: %s", e.Code, e.Message)
}

var errPending = errors.New("operation pending")

// GenerateVideo starts a Veo long-running operation and polls it until it
// finishes or the polling budget runs out.
func (p *Provider) GenerateVideo(ctx context.Context, opts provider.VideoOptions) (provider.VideoResult, error) {
	params := map[string]any{}
	if opts.AspectRatio != "" {
		params["aspectRatio"] = opts.AspectRatio
	}
	if opts.Duration > 0 {
		params["durationSeconds"] = opts.Duration
	}
	inst := instance{Prompt: opts.Prompt}
	if strings.HasPrefix(opts.ImageURL, "gs://") {
		inst.Image = &imageData{GCSURI: opts.ImageURL}
	}

	var op operation
	if err := p.post(ctx, "models/"+opts.Model+":predictLongRunning", predictRequest{
		Instances:  []instance{inst},
		Parameters: params,
	}, &op); err != nil {
		return provider.VideoResult{}, err
	}
	if op.Name == "" {
		return provider.VideoResult{}, errors.New("veo returned no operation name")
	}
	log.Debug(log.CatProvider, "veo operation started", "operation", op.Name, "model", opts.Model)

	attempts := 0
	done, err := backoff.Retry(ctx, func() (operation, error) {
		attempts++
		var cur operation
		if err := p.get(ctx, op.Name, &cur); err != nil {
			return cur, backoff.Permanent(err)
		}
		if !cur.Done {
			return cur, errPending
		}
		return cur, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.pollInterval)),
		backoff.WithMaxTries(uint(p.maxPollAttempts)),
		backoff.WithMaxElapsedTime(p.pollTimeout),
	)
	if errors.Is(err, errPending) {
		return provider.VideoResult{}, fmt.Errorf("veo operation %s after %d polls: %w", op.Name, attempts, provider.ErrOperationTimeout)
	}
	if err != nil {
		return provider.VideoResult{}, err
	}
	if done.Error != nil {
		return provider.VideoResult{}, fmt.Errorf("veo operation failed: %w", done.Error)
	}

	samples := done.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 || samples[0].Video.URI == "" {
		return provider.VideoResult{}, errors.New("veo operation finished without a video")
	}
	return provider.VideoResult{URL: samples[0].Video.URI, Duration: opts.Duration}, nil
}

// ----- Gemini text -----

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateContentRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float32 `json:"temperature,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateText calls :generateContent with a single user turn.
func (p *Provider) GenerateText(ctx context.Context, opts provider.TextOptions) (provider.TextResult, error) {
	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: opts.Prompt}}}},
	}
	if opts.SystemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: opts.SystemPrompt}}}
	}
	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		req.GenerationConfig = &generationConfig{MaxOutputTokens: opts.MaxTokens, Temperature: opts.Temperature}
	}

	var resp generateContentResponse
	if err := p.post(ctx, "models/"+opts.Model+":generateContent", req, &resp); err != nil {
		return provider.TextResult{}, err
	}
	if len(resp.Candidates) == 0 {
		return provider.TextResult{}, errors.New("gemini returned no candidates")
	}

	var b strings.Builder
	for _, pt := range resp.Candidates[0].Content.Parts {
		b.WriteString(pt.Text)
	}
	return provider.TextResult{Text: b.String()}, nil
}

// ----- transport -----

func (p *Provider) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req, out)
}

func (p *Provider) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+path, nil)
	if err != nil {
		return err
	}
	return p.do(req, out)
}

func (p *Provider) do(req *http.Request, out any) error {
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var wrapped struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != nil {
			return wrapped.Error
		}
		return fmt.Errorf("gemini error: status %s", resp.Status)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
