package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/canvasflow/internal/canvas"
	"github.com/zjrosen/canvasflow/internal/provider"
)

// === Mock Generator ===

type mockGenerator struct {
	mock.Mock
}

var _ provider.Generator = (*mockGenerator)(nil)

func (m *mockGenerator) GenerateImageWithModel(ctx context.Context, modelID string, opts provider.ImageOptions) (provider.ImageResult, error) {
	args := m.Called(ctx, modelID, opts)
	return args.Get(0).(provider.ImageResult), args.Error(1)
}

func (m *mockGenerator) GenerateVideoWithModel(ctx context.Context, modelID string, opts provider.VideoOptions) (provider.VideoResult, error) {
	args := m.Called(ctx, modelID, opts)
	return args.Get(0).(provider.VideoResult), args.Error(1)
}

func (m *mockGenerator) GenerateTextWithModel(ctx context.Context, modelID string, opts provider.TextOptions) (provider.TextResult, error) {
	args := m.Called(ctx, modelID, opts)
	return args.Get(0).(provider.TextResult), args.Error(1)
}

func (m *mockGenerator) GenerateAudioWithModel(ctx context.Context, modelID string, opts provider.AudioOptions) (provider.AudioResult, error) {
	args := m.Called(ctx, modelID, opts)
	return args.Get(0).(provider.AudioResult), args.Error(1)
}

type progressLog []string

func (p *progressLog) record(id canvas.NodeID, s ProgressStatus) {
	*p = append(*p, string(id)+":"+string(s))
}

func TestExecuteNode_TextRoundTrip(t *testing.T) {
	gen := &mockGenerator{}
	var events progressLog

	res := NewExecutor(gen, Settings{}).ExecuteNode(context.Background(), textNode("t", "hello"), "", events.record)

	require.Equal(t, TextOutput{Text: "hello"}, res.Output)
	require.Empty(t, res.Error)
	require.GreaterOrEqual(t, res.ExecutionTime.Nanoseconds(), int64(0))
	require.Equal(t, progressLog{"t:running", "t:complete"}, events)
	gen.AssertNotCalled(t, "GenerateImageWithModel", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteNode_TextFallsBackToInput(t *testing.T) {
	res := NewExecutor(&mockGenerator{}, Settings{}).ExecuteNode(context.Background(), textNode("t", ""), "from upstream", nil)
	require.Equal(t, TextOutput{Text: "from upstream"}, res.Output)
}

// An explicit "text": "" on the canvas is indistinguishable from an unset
// field and passes the upstream input through.
func TestExecuteNode_EmptyTextFromCanvasJSON(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		input string
		want  string
	}{
		{"explicit empty text takes input", `{"text":""}`, "from upstream", "from upstream"},
		{"missing text takes input", `{}`, "from upstream", "from upstream"},
		{"explicit empty text without input", `{"text":""}`, "", ""},
		{"own text beats input", `{"text":"mine"}`, "from upstream", "mine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := canvas.ParseGraph([]byte(`{"nodes":[{"id":"t","type":"text","data":` + tt.data + `}],"edges":[]}`))
			require.NoError(t, err)

			res := NewExecutor(&mockGenerator{}, Settings{}).ExecuteNode(context.Background(), g.Nodes[0], tt.input, nil)
			require.Equal(t, TextOutput{Text: tt.want}, res.Output)
		})
	}
}

func TestExecuteNode_ImagePromptPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		data       canvas.ImageData
		input      string
		wantPrompt string
	}{
		{"input wins", canvas.ImageData{Prompt: "own"}, "upstream", "upstream"},
		{"own prompt", canvas.ImageData{Prompt: "own"}, "", "own"},
		{"placeholder", canvas.ImageData{}, "", "A beautiful landscape"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{}
			gen.On("GenerateImageWithModel", mock.Anything, "gemini-imagen",
				provider.ImageOptions{Prompt: tt.wantPrompt, AspectRatio: "1:1"}).
				Return(provider.ImageResult{URL: "http://x/img.png", MIMEType: "image/png"}, nil).Once()

			node := canvas.Node{ID: "i", Type: canvas.TypeImage, Data: tt.data}
			res := NewExecutor(gen, Settings{}).ExecuteNode(context.Background(), node, tt.input, nil)

			require.Empty(t, res.Error)
			require.Equal(t, ImageOutput{URL: "http://x/img.png", Prompt: tt.wantPrompt}, res.Output)
			require.Equal(t, "gemini-imagen", res.Model)
			gen.AssertExpectations(t)
		})
	}
}

func TestExecuteNode_ImageUsesNodeModelAndAspect(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("GenerateImageWithModel", mock.Anything, "dall-e-3", provider.ImageOptions{Prompt: "p", AspectRatio: "16:9"}).
		Return(provider.ImageResult{URL: "u"}, nil)

	node := canvas.Node{ID: "i", Type: canvas.TypeImage, Data: canvas.ImageData{Model: "dall-e-3", AspectRatio: "16:9", Prompt: "p"}}
	res := NewExecutor(gen, Settings{}).ExecuteNode(context.Background(), node, "", nil)

	require.Empty(t, res.Error)
	gen.AssertExpectations(t)
}

func TestExecuteNode_ImageFailureIsCaptured(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("GenerateImageWithModel", mock.Anything, "nope", mock.Anything).
		Return(provider.ImageResult{}, &provider.UnknownModelError{Model: "nope"})
	var events progressLog

	node := canvas.Node{ID: "i", Type: canvas.TypeImage, Data: canvas.ImageData{Model: "nope"}}
	res := NewExecutor(gen, Settings{}).ExecuteNode(context.Background(), node, "", events.record)

	require.Equal(t, "unknown model: nope", res.Error)
	require.ErrorIs(t, res.Err, provider.ErrUnknownModel)
	require.Nil(t, res.Output)
	require.Equal(t, progressLog{"i:running", "i:error"}, events)
}

func TestExecuteNode_VideoDuration(t *testing.T) {
	tests := []struct {
		duration string
		want     int
	}{
		{"5s", 5},
		{"8s", 8},
		{"10", 10},
		{"", 5},
		{"soon", 5},
		{"0s", 5},
	}
	for _, tt := range tests {
		t.Run(tt.duration, func(t *testing.T) {
			gen := &mockGenerator{}
			gen.On("GenerateVideoWithModel", mock.Anything, "veo-2",
				provider.VideoOptions{Prompt: "waves", AspectRatio: "1:1", Duration: tt.want}).
				Return(provider.VideoResult{URL: "http://x/v.mp4"}, nil)

			node := canvas.Node{ID: "v", Type: canvas.TypeVideo, Data: canvas.VideoData{Prompt: "waves", Duration: tt.duration}}
			res := NewExecutor(gen, Settings{}).ExecuteNode(context.Background(), node, "", nil)

			require.Empty(t, res.Error)
			require.Equal(t, VideoOutput{URL: "http://x/v.mp4", Prompt: "waves", Duration: tt.want}, res.Output)
			gen.AssertExpectations(t)
		})
	}
}

func TestExecuteNode_AudioUnavailable(t *testing.T) {
	gen := &mockGenerator{}
	node := canvas.Node{ID: "a", Type: canvas.TypeAudio, Data: canvas.AudioData{Prompt: "song"}}

	res := NewExecutor(gen, Settings{}).ExecuteNode(context.Background(), node, "", nil)

	require.Equal(t, AudioUnavailableWarning, res.Warning)
	require.ErrorIs(t, res.Err, provider.ErrFeatureUnavailable)
	require.NotErrorIs(t, res.Err, provider.ErrProviderExecution)
	gen.AssertNotCalled(t, "GenerateAudioWithModel", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteNode_UnknownTypeWarns(t *testing.T) {
	var events progressLog
	node := canvas.Node{ID: "s", Type: "sticker", Data: canvas.UnknownData{}}

	res := NewExecutor(&mockGenerator{}, Settings{}).ExecuteNode(context.Background(), node, "", events.record)

	require.Contains(t, res.Warning, `"sticker"`)
	require.Empty(t, res.Error)
	require.Equal(t, progressLog{"s:running", "s:complete"}, events)
}

func TestExecuteNode_PassThroughNodes(t *testing.T) {
	ex := NewExecutor(&mockGenerator{}, Settings{})

	note := ex.ExecuteNode(context.Background(), canvas.Node{ID: "n", Type: canvas.TypeNote, Data: canvas.NoteData{Content: "remember"}}, "", nil)
	require.Equal(t, TextOutput{Text: "remember"}, note.Output)

	yt := ex.ExecuteNode(context.Background(), canvas.Node{ID: "y", Type: canvas.TypeYouTube, Data: canvas.YouTubeData{URL: "https://youtu.be/x"}}, "", nil)
	require.Equal(t, LinkOutput{URL: "https://youtu.be/x"}, yt.Output)

	chat := ex.ExecuteNode(context.Background(), canvas.Node{ID: "c", Type: canvas.TypeChat, Data: canvas.ChatData{
		Messages: []canvas.ChatMessage{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello!"}},
	}}, "upstream", nil)
	require.Equal(t, TextOutput{Text: "hello!"}, chat.Output)
}

func TestExecuteNode_ChatDispatchesWithModelAndInput(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("GenerateTextWithModel", mock.Anything, "gpt-4o", provider.TextOptions{Prompt: "a cat", SystemPrompt: "be brief"}).
		Return(provider.TextResult{Text: "A cat."}, nil)

	node := canvas.Node{ID: "c", Type: canvas.TypeChat, Data: canvas.ChatData{
		Model:    "gpt-4o",
		Messages: []canvas.ChatMessage{{Role: "system", Content: "be brief"}},
	}}
	res := NewExecutor(gen, Settings{}).ExecuteNode(context.Background(), node, "a cat", nil)

	require.Equal(t, TextOutput{Text: "A cat."}, res.Output)
	require.Equal(t, "gpt-4o", res.Model)
	gen.AssertExpectations(t)
}

func TestExecuteNode_NilPayloadUsesZeroVariant(t *testing.T) {
	res := NewExecutor(&mockGenerator{}, Settings{}).ExecuteNode(context.Background(), canvas.Node{ID: "t", Type: canvas.TypeText}, "in", nil)
	require.Equal(t, TextOutput{Text: "in"}, res.Output)
}

func TestExecuteNode_PanicIsCaptured(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("GenerateImageWithModel", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("sdk bug") }).
		Return(provider.ImageResult{}, errors.New("unreachable"))

	node := canvas.Node{ID: "i", Type: canvas.TypeImage, Data: canvas.ImageData{}}
	res := NewExecutor(gen, Settings{}).ExecuteNode(context.Background(), node, "", nil)

	require.Contains(t, res.Error, "sdk bug")
	require.Equal(t, canvas.NodeID("i"), res.NodeID)
}

func TestNewExecutor_Settings(t *testing.T) {
	ex := NewExecutor(&mockGenerator{}, Settings{ImageModel: "mock-image"})
	s := ex.Settings()
	require.Equal(t, "mock-image", s.ImageModel)
	require.Equal(t, "veo-2", s.VideoModel)
	require.Equal(t, 5, s.VideoDuration)
}
