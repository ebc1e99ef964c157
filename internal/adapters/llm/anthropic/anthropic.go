// Package anthropic adapts the Claude Messages API to the gateway Capability.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/okian/mu3/internal/gateway"
)

const defaultMaxTokens = 1024

// modelAliases maps catalog ids to API model names.
var modelAliases = map[string]string{
	"claude-sonnet-4":   "claude-sonnet-4-0",
	"claude-opus-4":     "claude-opus-4-0",
	"claude-3-7-sonnet": "claude-3-7-sonnet-latest",
}

// ErrNoContent is returned when a message has no content blocks.
var ErrNoContent = errors.New("anthropic returned no content")

// Config for the adapter.
type Config struct {
	APIKey  string
	BaseURL string
	// MaxRetries is the SDK's own retry count; negative keeps the SDK default.
	MaxRetries   int
	StreamBuffer int
}

// Capability talks to the Messages API. Answers keep their content blocks.
type Capability struct {
	client anthropic.Client
	buffer int
}

var _ gateway.Capability = (*Capability)(nil)

// New builds a Capability from cfg.
func New(cfg Config) *Capability {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	buffer := cfg.StreamBuffer
	if buffer <= 0 {
		buffer = gateway.DefaultStreamBuffer
	}
	return &Capability{client: anthropic.NewClient(opts...), buffer: buffer}
}

// Chat sends one user turn.
func (c *Capability) Chat(ctx context.Context, req gateway.ChatRequest) (gateway.Response, error) {
	resp, err := c.client.Messages.New(ctx, buildParams(req))
	if err != nil {
		return gateway.Response{}, fmt.Errorf("anthropic messages failed: %w", err)
	}
	if len(resp.Content) == 0 {
		return gateway.Response{}, ErrNoContent
	}

	out := gateway.BlocksResponse()
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Blocks = append(out.Blocks, gateway.Block{Type: "text", Text: block.Text})
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, gateway.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(block.Input),
			})
		}
	}
	return out, nil
}

// ChatStream fetches the whole answer and replays it word by word.
func (c *Capability) ChatStream(ctx context.Context, req gateway.ChatRequest) (<-chan gateway.Chunk, error) {
	resp, err := c.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	text := gateway.Normalize(resp).Text

	out := make(chan gateway.Chunk, c.buffer)
	go func() {
		defer close(out)
		for _, word := range strings.SplitAfter(text, " ") {
			if word == "" {
				continue
			}
			select {
			case out <- gateway.Chunk{Text: word}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Image is not offered by the Messages API.
func (c *Capability) Image(context.Context, gateway.ImageRequest) (gateway.Image, error) {
	return gateway.Image{}, gateway.ErrUnsupported
}

func buildParams(req gateway.ChatRequest) anthropic.MessageNewParams {
	model := req.Model
	if alias, ok := modelAliases[model]; ok {
		model = alias
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	content := []anthropic.ContentBlockParamUnion{}
	if req.ImageURL != "" {
		content = append(content, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: req.ImageURL}))
	}
	content = append(content, anthropic.NewTextBlock(req.Prompt))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(content...)},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	for _, t := range req.Tools {
		schema := anthropic.ToolInputSchemaParam{Type: "object"}
		if props, ok := t.Parameters["properties"]; ok {
			schema.Properties = props
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		})
	}
	return params
}
