package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/canvasflow/internal/canvas"
	"github.com/zjrosen/canvasflow/internal/store"
	"github.com/zjrosen/canvasflow/internal/workflow"
)

func TestBuilder_StoryChainRoundTripsThroughCanvasJSON(t *testing.T) {
	b := NewBuilder().WithStoryChain()

	g, err := canvas.ParseGraph(b.JSON(t))
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)
	require.Equal(t, []canvas.Edge{{Source: "t1", Target: "i1"}, {Source: "i1", Target: "v1"}}, g.Edges)

	video, ok := g.Nodes[2].Data.(canvas.VideoData)
	require.True(t, ok)
	require.Equal(t, "mock-video", video.Model)
	require.Equal(t, "5s", video.Duration)
}

func TestBuilder_VideoOptions(t *testing.T) {
	g := NewBuilder().
		WithVideo("v", Model("mock-video"), Prompt("waves at night"), AspectRatio("9:16"), Duration("9s")).
		Build()

	video, ok := g.Nodes[0].Data.(canvas.VideoData)
	require.True(t, ok)
	require.Equal(t, canvas.VideoData{
		Model:       "mock-video",
		Prompt:      "waves at night",
		AspectRatio: "9:16",
		Duration:    "9s",
	}, video)
}

func TestBuilder_ImagePromptAndAspectRatio(t *testing.T) {
	g := NewBuilder().WithImage("i", Prompt("a lighthouse"), AspectRatio("16:9")).Build()

	img := g.Nodes[0].Data.(canvas.ImageData)
	require.Equal(t, "a lighthouse", img.Prompt)
	require.Equal(t, "16:9", img.AspectRatio)
}

func TestBuilder_OptionsIgnoreOtherPayloads(t *testing.T) {
	g := NewBuilder().
		WithImage("i", Model("m"), Duration("9s"), Status(canvas.StatusQueued)).
		Build()

	img := g.Nodes[0].Data.(canvas.ImageData)
	require.Equal(t, "m", img.Model)
	require.Equal(t, canvas.StatusQueued, g.Nodes[0].Status)
}

func TestBuilder_EmptyEdgesAreNotNil(t *testing.T) {
	g := NewBuilder().WithNote("n", "hello").Build()
	require.NotNil(t, g.Edges)
	require.Empty(t, g.Edges)
}

func TestPresets_Validate(t *testing.T) {
	tests := []struct {
		name  string
		graph canvas.Graph
		valid bool
	}{
		{"story chain", NewBuilder().WithStoryChain().Build(), true},
		{"fan in", NewBuilder().WithFanIn().Build(), true},
		{"cycle", NewBuilder().WithCycle().Build(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := workflow.Validate(tt.graph.Nodes, tt.graph.Edges)
			require.Equal(t, tt.valid, report.Valid, report.Errors)
		})
	}
}

func TestNewRunStore(t *testing.T) {
	db := NewRunStore(t)

	runs, err := db.RunRepository().List(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, runs)
}
