package testutil

import "github.com/zjrosen/canvasflow/internal/canvas"

// NodeOption configures a generator node.
type NodeOption func(*canvas.Node)

// Model sets the catalog model of an image or video node.
func Model(id string) NodeOption {
	return func(n *canvas.Node) {
		switch d := n.Data.(type) {
		case canvas.ImageData:
			d.Model = id
			n.Data = d
		case canvas.VideoData:
			d.Model = id
			n.Data = d
		}
	}
}

// Prompt sets the node's own prompt.
func Prompt(p string) NodeOption {
	return func(n *canvas.Node) {
		switch d := n.Data.(type) {
		case canvas.ImageData:
			d.Prompt = p
			n.Data = d
		case canvas.VideoData:
			d.Prompt = p
			n.Data = d
		}
	}
}

// AspectRatio sets the requested aspect ratio.
func AspectRatio(r string) NodeOption {
	return func(n *canvas.Node) {
		switch d := n.Data.(type) {
		case canvas.ImageData:
			d.AspectRatio = r
			n.Data = d
		case canvas.VideoData:
			d.AspectRatio = r
			n.Data = d
		}
	}
}

// Duration sets a video node's duration in canvas form, e.g. "8s".
func Duration(s string) NodeOption {
	return func(n *canvas.Node) {
		if d, ok := n.Data.(canvas.VideoData); ok {
			d.Duration = s
			n.Data = d
		}
	}
}

// Status sets the node's sequential queue status.
func Status(s canvas.Status) NodeOption {
	return func(n *canvas.Node) {
		n.Status = s
	}
}
