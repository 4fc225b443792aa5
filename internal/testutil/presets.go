package testutil

// WithStoryChain adds text -> image -> video, all on the mock models.
// The expected credit spend is 3.
func (b *Builder) WithStoryChain() *Builder {
	return b.
		WithText("t1", "a red fox in the snow").
		WithImage("i1", Model("mock-image")).
		WithVideo("v1", Model("mock-video"), Duration("5s")).
		Chain("t1", "i1", "v1")
}

// WithCycle adds two text nodes that depend on each other.
func (b *Builder) WithCycle() *Builder {
	return b.
		WithText("a", "").
		WithText("b", "").
		WithEdge("a", "b").
		WithEdge("b", "a")
}

// WithFanIn adds two text nodes feeding one image.
func (b *Builder) WithFanIn() *Builder {
	return b.
		WithText("left", "a lighthouse").
		WithText("right", "at dusk").
		WithImage("img", Model("mock-image")).
		WithEdge("left", "img").
		WithEdge("right", "img")
}
