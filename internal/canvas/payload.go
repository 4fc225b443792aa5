package canvas

import (
	"encoding/json"
	"fmt"
)

// Payload is the type-specific data carried by a node.
// The set of implementations is closed to this package.
type Payload interface {
	payload()
}

// TextData is the payload of a text prompt node.
type TextData struct {
	Text string `json:"text,omitempty"`
}

// ImageData is the payload of an image generator node.
type ImageData struct {
	Prompt       string `json:"prompt,omitempty"`
	Model        string `json:"model,omitempty"`
	AspectRatio  string `json:"aspectRatio,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	IsGenerating bool   `json:"isGenerating,omitempty"`
}

// VideoData is the payload of a video generator node. Duration is kept in
// the canvas string form, e.g. "5s".
type VideoData struct {
	Prompt       string `json:"prompt,omitempty"`
	Model        string `json:"model,omitempty"`
	Duration     string `json:"duration,omitempty"`
	AspectRatio  string `json:"aspectRatio,omitempty"`
	VideoURL     string `json:"videoUrl,omitempty"`
	IsGenerating bool   `json:"isGenerating,omitempty"`
}

// AudioData is the payload of an audio node.
type AudioData struct {
	Prompt string `json:"prompt,omitempty"`
	Model  string `json:"model,omitempty"`
}

// NoteData is the payload of a free-form note.
type NoteData struct {
	Content string `json:"content,omitempty"`
}

// ChatMessage is one turn of a chat node transcript.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatData is the payload of a chat node.
type ChatData struct {
	Model    string        `json:"model,omitempty"`
	Messages []ChatMessage `json:"messages,omitempty"`
}

// YouTubeData is the payload of a YouTube embed.
type YouTubeData struct {
	URL string `json:"url,omitempty"`
}

// UnknownData holds the raw payload of a node whose type is not recognized.
type UnknownData struct {
	Raw json.RawMessage `json:"-"`
}

func (TextData) payload()    {}
func (ImageData) payload()   {}
func (VideoData) payload()   {}
func (AudioData) payload()   {}
func (NoteData) payload()    {}
func (ChatData) payload()    {}
func (YouTubeData) payload() {}
func (UnknownData) payload() {}

// MarshalJSON writes the raw payload back unchanged.
func (u UnknownData) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return []byte("null"), nil
	}
	return u.Raw, nil
}

// DecodePayload decodes raw into the payload variant for t.
// Unrecognized types decode into UnknownData and are not an error.
func DecodePayload(t NodeType, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch t {
	case TypeText:
		p = &TextData{}
	case TypeImage:
		p = &ImageData{}
	case TypeVideo:
		p = &VideoData{}
	case TypeAudio:
		p = &AudioData{}
	case TypeNote:
		p = &NoteData{}
	case TypeChat:
		p = &ChatData{}
	case TypeYouTube:
		p = &YouTubeData{}
	default:
		return UnknownData{Raw: raw}, nil
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", t, err)
		}
	}
	return deref(p), nil
}

func deref(p Payload) Payload {
	switch v := p.(type) {
	case *TextData:
		return *v
	case *ImageData:
		return *v
	case *VideoData:
		return *v
	case *AudioData:
		return *v
	case *NoteData:
		return *v
	case *ChatData:
		return *v
	case *YouTubeData:
		return *v
	}
	return p
}

// ModelOf returns the model id a node's payload requests, if any.
func ModelOf(p Payload) string {
	switch v := p.(type) {
	case ImageData:
		return v.Model
	case VideoData:
		return v.Model
	case AudioData:
		return v.Model
	case ChatData:
		return v.Model
	}
	return ""
}
