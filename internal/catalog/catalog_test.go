package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/canvasflow/internal/canvas"
)

func TestLoadBuiltin(t *testing.T) {
	c, err := LoadBuiltin()
	require.NoError(t, err)

	m, ok := c.Lookup("gemini-imagen")
	require.True(t, ok)
	require.Equal(t, "gemini", m.Provider)
	require.Equal(t, ModalityImage, m.Type)
	require.NotEmpty(t, m.VendorModel)

	_, ok = c.Lookup("veo-2")
	require.True(t, ok)

	require.Equal(t, []string{"gemini", "mock", "openai"}, c.Providers())
	require.NotEmpty(t, c.ByType(ModalityText))
}

func TestNew_RejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		models  []ModelConfig
		wantErr string
	}{
		{"missing id", []ModelConfig{{Provider: "p", Type: ModalityImage}}, "missing an id"},
		{"missing provider", []ModelConfig{{ID: "a", Type: ModalityImage}}, "provider is required"},
		{"bad type", []ModelConfig{{ID: "a", Provider: "p", Type: "hologram"}}, "invalid type"},
		{"negative cost", []ModelConfig{{ID: "a", Provider: "p", Type: ModalityText, CreditCost: -1}}, "must not be negative"},
		{"duplicate", []ModelConfig{
			{ID: "a", Provider: "p", Type: ModalityText},
			{ID: "a", Provider: "q", Type: ModalityText},
		}, "duplicate model id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.models...)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMerge_OverridesInPlaceAndAppends(t *testing.T) {
	base := MustNew(
		ModelConfig{ID: "a", Provider: "p", Type: ModalityImage, CreditCost: 1},
		ModelConfig{ID: "b", Provider: "p", Type: ModalityText, CreditCost: 1},
	)
	merged, err := base.Merge([]ModelConfig{
		{ID: "a", Provider: "q", Type: ModalityImage, CreditCost: 9},
		{ID: "c", Provider: "q", Type: ModalityVideo, CreditCost: 3},
	})
	require.NoError(t, err)

	models := merged.Models()
	require.Len(t, models, 3)
	require.Equal(t, "a", models[0].ID)
	require.Equal(t, "q", models[0].Provider)
	require.Equal(t, "c", models[2].ID)

	// base is untouched
	a, _ := base.Lookup("a")
	require.Equal(t, "p", a.Provider)
}

func TestLoad_UserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models:
  - id: flux-pro
    name: Flux Pro
    provider: mock
    type: image
    credit_cost: 7
`), 0600))

	c, err := Load(path)
	require.NoError(t, err)
	m, ok := c.Lookup("flux-pro")
	require.True(t, ok)
	require.Equal(t, 7, m.CreditCost)

	_, ok = c.Lookup("gemini-imagen")
	require.True(t, ok, "builtin entries survive the merge")
}

func TestLoad_MissingUserFileFallsBack(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	_, ok := c.Lookup("gemini-imagen")
	require.True(t, ok)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("models:\n  - id: a\n    provider: p\n    type: text\n    credit: 3\n"))
	require.Error(t, err)
}

func TestEstimateCredits(t *testing.T) {
	c := MustNew(
		ModelConfig{ID: "img", Provider: "p", Type: ModalityImage, CreditCost: 4},
		ModelConfig{ID: "vid", Provider: "p", Type: ModalityVideo, CreditCost: 20},
	)
	nodes := []canvas.Node{
		{ID: "t", Type: canvas.TypeText, Data: canvas.TextData{Text: "x"}},
		{ID: "i", Type: canvas.TypeImage, Data: canvas.ImageData{Model: "img"}},
		{ID: "i2", Type: canvas.TypeImage, Data: canvas.ImageData{}},
		{ID: "v", Type: canvas.TypeVideo, Data: canvas.VideoData{Model: "unknown"}},
	}
	got := c.EstimateCredits(nodes, map[canvas.NodeType]string{canvas.TypeImage: "img"})
	require.Equal(t, 8, got)
}
