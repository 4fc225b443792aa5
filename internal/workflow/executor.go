package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/canvasflow/internal/canvas"
	"github.com/zjrosen/canvasflow/internal/log"
	"github.com/zjrosen/canvasflow/internal/provider"
	"github.com/zjrosen/canvasflow/internal/tracing"
)

// Settings are the fallbacks used when a node leaves a field empty.
type Settings struct {
	ImageModel    string `mapstructure:"image_model" yaml:"image_model"`
	VideoModel    string `mapstructure:"video_model" yaml:"video_model"`
	AspectRatio   string `mapstructure:"aspect_ratio" yaml:"aspect_ratio"`
	Prompt        string `mapstructure:"prompt" yaml:"prompt"`
	VideoDuration int    `mapstructure:"video_duration" yaml:"video_duration"`
}

// DefaultSettings returns the built-in fallbacks.
func DefaultSettings() Settings {
	return Settings{
		ImageModel:    "gemini-imagen",
		VideoModel:    "veo-2",
		AspectRatio:   "1:1",
		Prompt:        "A beautiful landscape",
		VideoDuration: 5,
	}
}

// AudioUnavailableWarning is attached to every audio node.
const AudioUnavailableWarning = "audio generation is not available yet"

// Executor runs single nodes against a provider.Generator.
type Executor struct {
	gen      provider.Generator
	settings Settings
	tracer   trace.Tracer
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorTracer records a span per node.
func WithExecutorTracer(t trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewExecutor creates an executor. Empty settings fields take their
// DefaultSettings value.
func NewExecutor(gen provider.Generator, settings Settings, opts ...ExecutorOption) *Executor {
	def := DefaultSettings()
	if settings.ImageModel == "" {
		settings.ImageModel = def.ImageModel
	}
	if settings.VideoModel == "" {
		settings.VideoModel = def.VideoModel
	}
	if settings.AspectRatio == "" {
		settings.AspectRatio = def.AspectRatio
	}
	if settings.Prompt == "" {
		settings.Prompt = def.Prompt
	}
	if settings.VideoDuration <= 0 {
		settings.VideoDuration = def.VideoDuration
	}

	e := &Executor{
		gen:      gen,
		settings: settings,
		tracer:   noop.NewTracerProvider().Tracer("workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settings returns the effective fallbacks.
func (e *Executor) Settings() Settings {
	return e.settings
}

// ExecuteNode executes node with the resolved upstream input. It never
// fails: errors are captured in the returned Result. onProgress, if set,
// sees running before the node starts and complete or error after.
func (e *Executor) ExecuteNode(ctx context.Context, node canvas.Node, input string, onProgress ProgressFunc) Result {
	notify(onProgress, node.ID, ProgressRunning)

	ctx, span := e.tracer.Start(ctx, tracing.SpanNodePrefix+string(node.Type),
		trace.WithAttributes(
			attribute.String(tracing.AttrNodeID, string(node.ID)),
			attribute.String(tracing.AttrNodeType, string(node.Type)),
			attribute.String(tracing.AttrRunID, tracing.RunIDFromContext(ctx)),
		))
	defer span.End()

	start := time.Now()
	res := e.safeExecute(ctx, node, input)
	res.ExecutionTime = time.Since(start)
	res.NodeID = node.ID
	res.Type = node.Type

	if res.Model != "" {
		span.SetAttributes(attribute.String(tracing.AttrNodeModel, res.Model))
	}
	if res.Warning != "" {
		span.AddEvent(tracing.EventNodeWarning, trace.WithAttributes(attribute.String("warning", res.Warning)))
	}

	status := ProgressComplete
	if res.Err != nil {
		res.Error = res.Err.Error()
		status = ProgressError
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Error)
		log.Warn(log.CatWorkflow, "node failed",
			"run_id", tracing.RunIDFromContext(ctx), "node", node.ID, "type", node.Type, "error", res.Error)
	} else {
		log.Debug(log.CatWorkflow, "node complete",
			"run_id", tracing.RunIDFromContext(ctx), "node", node.ID, "type", node.Type, "elapsed", res.ExecutionTime)
	}

	notify(onProgress, node.ID, status)
	return res
}

// safeExecute turns a panic inside a provider into a node error.
func (e *Executor) safeExecute(ctx context.Context, node canvas.Node, input string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("node %s panicked: %v", node.ID, r)}
		}
	}()
	return e.execute(ctx, node, input)
}

func (e *Executor) execute(ctx context.Context, node canvas.Node, input string) Result {
	data := node.Data
	if data == nil {
		data, _ = canvas.DecodePayload(node.Type, nil)
	}

	switch d := data.(type) {
	case canvas.TextData:
		text := d.Text
		if text == "" {
			text = input
		}
		return Result{Output: TextOutput{Text: text}}

	case canvas.ImageData:
		prompt := e.prompt(input, d.Prompt)
		model := fallback(d.Model, e.settings.ImageModel)
		img, err := e.gen.GenerateImageWithModel(ctx, model, provider.ImageOptions{
			Prompt:      prompt,
			AspectRatio: fallback(d.AspectRatio, e.settings.AspectRatio),
		})
		if err != nil {
			return Result{Model: model, Err: err}
		}
		return Result{Model: model, Output: ImageOutput{URL: img.URL, Prompt: prompt}}

	case canvas.VideoData:
		prompt := e.prompt(input, d.Prompt)
		model := fallback(d.Model, e.settings.VideoModel)
		duration := ParseDuration(d.Duration, e.settings.VideoDuration)
		vid, err := e.gen.GenerateVideoWithModel(ctx, model, provider.VideoOptions{
			Prompt:      prompt,
			AspectRatio: fallback(d.AspectRatio, e.settings.AspectRatio),
			Duration:    duration,
		})
		if err != nil {
			return Result{Model: model, Err: err}
		}
		if vid.Duration > 0 {
			duration = vid.Duration
		}
		return Result{Model: model, Output: VideoOutput{URL: vid.URL, Prompt: prompt, Duration: duration}}

	case canvas.AudioData:
		return Result{
			Warning: AudioUnavailableWarning,
			Err:     fmt.Errorf("audio generation: %w", provider.ErrFeatureUnavailable),
		}

	case canvas.NoteData:
		return Result{Output: TextOutput{Text: d.Content}}

	case canvas.YouTubeData:
		return Result{Output: LinkOutput{URL: d.URL}}

	case canvas.ChatData:
		if d.Model == "" || input == "" {
			return Result{Output: TextOutput{Text: lastAssistantMessage(d.Messages)}}
		}
		txt, err := e.gen.GenerateTextWithModel(ctx, d.Model, provider.TextOptions{
			Prompt:       input,
			SystemPrompt: systemMessage(d.Messages),
		})
		if err != nil {
			return Result{Model: d.Model, Err: err}
		}
		return Result{Model: d.Model, Output: TextOutput{Text: txt.Text}}

	default:
		return Result{Warning: fmt.Sprintf("unrecognized node type %q was skipped", node.Type)}
	}
}

// prompt picks the upstream input, then the node's own prompt, then the
// configured placeholder.
func (e *Executor) prompt(input, own string) string {
	if input != "" {
		return input
	}
	if own != "" {
		return own
	}
	return e.settings.Prompt
}

// ParseDuration reads a canvas duration such as "5s" or "8". Unparseable
// or non-positive values yield def.
func ParseDuration(s string, def int) int {
	s = strings.TrimSpace(s)
	s = strings.TrimRightFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func fallback(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func lastAssistantMessage(msgs []canvas.ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "assistant" {
			return msgs[i].Content
		}
	}
	return ""
}

func systemMessage(msgs []canvas.ChatMessage) string {
	for _, m := range msgs {
		if m.Role == "system" {
			return m.Content
		}
	}
	return ""
}

func notify(fn ProgressFunc, id canvas.NodeID, status ProgressStatus) {
	if fn != nil {
		fn(id, status)
	}
}
