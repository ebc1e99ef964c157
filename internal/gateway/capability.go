package gateway

import "context"

// Capability is a real AI backend the gateway can delegate to.
type Capability interface {
	Chat(ctx context.Context, req ChatRequest) (Response, error)
	// ChatStream returns a channel the capability closes when the answer ends.
	// A chunk with Err set reports a failure mid-stream.
	ChatStream(ctx context.Context, req ChatRequest) (<-chan Chunk, error)
	Image(ctx context.Context, req ImageRequest) (Image, error)
}

// ChatRequest is a single-turn request to a chat model.
type ChatRequest struct {
	Model       string
	Prompt      string
	ImageURL    string // set for vision requests
	Temperature float64
	MaxTokens   int
	Tools       []Tool
}

// Tool is a function definition offered to the model.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"` // JSON schema
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Chunk is one piece of a streamed answer.
type Chunk struct {
	Text string
	Err  error
}

// ImageRequest asks for one generated image.
type ImageRequest struct {
	Prompt  string
	Model   string
	Size    string // e.g. "1024x1024"
	Quality string
}

// Image is a displayable image.
type Image struct {
	URL         string `json:"url"`
	Alt         string `json:"alt"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Placeholder bool   `json:"placeholder"`
}

// TextOptions tune text generation. Zero values leave provider defaults.
type TextOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// ImageOptions tune image generation.
type ImageOptions struct {
	Model   string `json:"model"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
}

// Fragment is one unit of a text stream handed to consumers.
type Fragment struct {
	Text string `json:"text"`
}
