// Package testutil provides builders for canvas graphs and a throwaway
// run store for tests.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/canvasflow/internal/canvas"
)

// Builder accumulates nodes and edges in insertion order.
type Builder struct {
	nodes []canvas.Node
	edges []canvas.Edge
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithText adds a text node.
func (b *Builder) WithText(id, text string) *Builder {
	return b.add(id, canvas.TypeText, canvas.TextData{Text: text})
}

// WithImage adds an image generator with optional configuration.
func (b *Builder) WithImage(id string, opts ...NodeOption) *Builder {
	return b.add(id, canvas.TypeImage, canvas.ImageData{}, opts...)
}

// WithVideo adds a video generator with optional configuration.
func (b *Builder) WithVideo(id string, opts ...NodeOption) *Builder {
	return b.add(id, canvas.TypeVideo, canvas.VideoData{}, opts...)
}

// WithChat adds a chat node whose transcript is messages.
func (b *Builder) WithChat(id string, messages ...canvas.ChatMessage) *Builder {
	return b.add(id, canvas.TypeChat, canvas.ChatData{Messages: messages})
}

// WithNote adds a note, which never takes part in execution.
func (b *Builder) WithNote(id, content string) *Builder {
	return b.add(id, canvas.TypeNote, canvas.NoteData{Content: content})
}

// WithEdge connects source to target.
func (b *Builder) WithEdge(source, target string) *Builder {
	b.edges = append(b.edges, canvas.Edge{Source: canvas.NodeID(source), Target: canvas.NodeID(target)})
	return b
}

// Chain connects ids pairwise in order: a->b, b->c, ...
func (b *Builder) Chain(ids ...string) *Builder {
	for i := 1; i < len(ids); i++ {
		b.WithEdge(ids[i-1], ids[i])
	}
	return b
}

// Build returns the accumulated graph. Edges are never nil.
func (b *Builder) Build() canvas.Graph {
	edges := b.edges
	if edges == nil {
		edges = []canvas.Edge{}
	}
	return canvas.Graph{Nodes: b.nodes, Edges: edges}
}

// JSON returns the graph as the canvas would save it.
func (b *Builder) JSON(t testing.TB) []byte {
	t.Helper()
	data, err := json.Marshal(b.Build())
	require.NoError(t, err)
	return data
}

func (b *Builder) add(id string, typ canvas.NodeType, data canvas.Payload, opts ...NodeOption) *Builder {
	n := canvas.Node{ID: canvas.NodeID(id), Type: typ, Data: data}
	for _, opt := range opts {
		opt(&n)
	}
	b.nodes = append(b.nodes, n)
	return b
}
