// Package openai adapts an OpenAI-compatible chat API to the gateway Capability.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	oai "github.com/sashabaranov/go-openai"

	"github.com/okian/mu3/internal/gateway"
)

// ErrNoChoices is returned when the API answers without any choice.
var ErrNoChoices = errors.New("openai returned no choices")

// Config for the adapter.
type Config struct {
	APIKey string
	// BaseURL targets any OpenAI-compatible endpoint; empty uses api.openai.com.
	BaseURL string
	// StreamBuffer is the capacity of stream channels.
	StreamBuffer int
}

// Capability talks to the chat completions and image endpoints.
type Capability struct {
	client *oai.Client
	buffer int
}

var _ gateway.Capability = (*Capability)(nil)

// New builds a Capability from cfg.
func New(cfg Config) *Capability {
	config := oai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	buffer := cfg.StreamBuffer
	if buffer <= 0 {
		buffer = gateway.DefaultStreamBuffer
	}
	return &Capability{client: oai.NewClientWithConfig(config), buffer: buffer}
}

// Chat sends one user turn and returns the first choice.
func (c *Capability) Chat(ctx context.Context, req gateway.ChatRequest) (gateway.Response, error) {
	resp, err := c.client.CreateChatCompletion(ctx, buildRequest(req))
	if err != nil {
		return gateway.Response{}, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return gateway.Response{}, ErrNoChoices
	}

	msg := resp.Choices[0].Message
	out := gateway.TextResponse(msg.Content)
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, gateway.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// ChatStream streams content deltas until the API signals the end.
func (c *Capability) ChatStream(ctx context.Context, req gateway.ChatRequest) (<-chan gateway.Chunk, error) {
	r := buildRequest(req)
	r.Stream = true
	stream, err := c.client.CreateChatCompletionStream(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("openai stream failed: %w", err)
	}

	out := make(chan gateway.Chunk, c.buffer)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			var chunk gateway.Chunk
			switch {
			case err != nil:
				chunk.Err = fmt.Errorf("stream recv failed: %w", err)
			case len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "":
				continue
			default:
				chunk.Text = resp.Choices[0].Delta.Content
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.Err != nil {
				return
			}
		}
	}()
	return out, nil
}

// Image generates one image and returns its URL.
func (c *Capability) Image(ctx context.Context, req gateway.ImageRequest) (gateway.Image, error) {
	resp, err := c.client.CreateImage(ctx, oai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          req.Model,
		Size:           req.Size,
		Quality:        req.Quality,
		N:              1,
		ResponseFormat: oai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return gateway.Image{}, fmt.Errorf("openai image generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return gateway.Image{}, ErrNoChoices
	}
	return gateway.Image{URL: resp.Data[0].URL}, nil
}

func buildRequest(req gateway.ChatRequest) oai.ChatCompletionRequest {
	msg := oai.ChatCompletionMessage{Role: oai.ChatMessageRoleUser}
	if req.ImageURL != "" {
		msg.MultiContent = []oai.ChatMessagePart{
			{Type: oai.ChatMessagePartTypeText, Text: req.Prompt},
			{Type: oai.ChatMessagePartTypeImageURL, ImageURL: &oai.ChatMessageImageURL{URL: req.ImageURL}},
		}
	} else {
		msg.Content = req.Prompt
	}

	r := oai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    []oai.ChatCompletionMessage{msg},
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
	for _, t := range req.Tools {
		r.Tools = append(r.Tools, oai.Tool{
			Type: oai.ToolTypeFunction,
			Function: &oai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return r
}
