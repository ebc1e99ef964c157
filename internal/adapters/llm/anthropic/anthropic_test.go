package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/mu3/internal/adapters/llm/anthropic"
	"github.com/okian/mu3/internal/gateway"
)

type captured struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	Messages  []map[string]any `json:"messages"`
	Tools     []map[string]any `json:"tools"`
}

func newServer(t *testing.T, seen *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-0",
			"content": [
				{"type": "text", "text": "Hello from "},
				{"type": "tool_use", "id": "tu_1", "name": "lookup", "input": {"q": "x"}},
				{"type": "text", "text": "Claude"}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 4}
		}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCapabilityChat(t *testing.T) {
	var seen captured
	srv := newServer(t, &seen)
	c := anthropic.New(anthropic.Config{APIKey: "test", BaseURL: srv.URL, MaxRetries: 0})

	resp, err := c.Chat(context.Background(), gateway.ChatRequest{
		Model:  "claude-sonnet-4",
		Prompt: "hi",
		Tools:  []gateway.Tool{{Name: "lookup", Parameters: map[string]any{"properties": map[string]any{}}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-0", seen.Model)
	assert.Equal(t, 1024, seen.MaxTokens)
	assert.Len(t, seen.Tools, 1)
	assert.Equal(t, gateway.KindBlocks, resp.Kind)
	assert.Len(t, resp.Blocks, 2)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "lookup", resp.ToolCalls[0].Name)
	assert.Equal(t, "Hello from Claude", gateway.Normalize(resp).Text)
}

func TestCapabilityVision(t *testing.T) {
	var seen captured
	srv := newServer(t, &seen)
	c := anthropic.New(anthropic.Config{APIKey: "test", BaseURL: srv.URL, MaxRetries: 0})

	_, err := c.Chat(context.Background(), gateway.ChatRequest{Model: "claude-opus-4", Prompt: "what?", ImageURL: "https://example.com/a.png"})
	require.NoError(t, err)

	require.Len(t, seen.Messages, 1)
	content := seen.Messages[0]["content"].([]any)
	require.Len(t, content, 2)
	assert.Equal(t, "image", content[0].(map[string]any)["type"])
	assert.Equal(t, "text", content[1].(map[string]any)["type"])
}

func TestCapabilityChatStream(t *testing.T) {
	var seen captured
	srv := newServer(t, &seen)
	c := anthropic.New(anthropic.Config{APIKey: "test", BaseURL: srv.URL, MaxRetries: 0})

	ch, err := c.ChatStream(context.Background(), gateway.ChatRequest{Model: "claude-sonnet-4", Prompt: "hi"})
	require.NoError(t, err)

	var b strings.Builder
	n := 0
	for chunk := range ch {
		b.WriteString(chunk.Text)
		n++
	}
	assert.Equal(t, "Hello from Claude", b.String())
	assert.Equal(t, 3, n)
}

func TestCapabilityImageUnsupported(t *testing.T) {
	c := anthropic.New(anthropic.Config{APIKey: "test"})
	_, err := c.Image(context.Background(), gateway.ImageRequest{Prompt: "x"})
	assert.True(t, errors.Is(err, gateway.ErrUnsupported))
}

func TestCapabilityServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()
	c := anthropic.New(anthropic.Config{APIKey: "test", BaseURL: srv.URL, MaxRetries: 0})

	_, err := c.Chat(context.Background(), gateway.ChatRequest{Model: "claude-sonnet-4", Prompt: "hi"})
	assert.Error(t, err)

	_, err = c.ChatStream(context.Background(), gateway.ChatRequest{Model: "claude-sonnet-4", Prompt: "hi"})
	assert.Error(t, err)
}

func TestCapabilityZeroRetriesHitsServerOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"type":"error","error":{"type":"api_error","message":"down"}}`)
	}))
	defer srv.Close()
	c := anthropic.New(anthropic.Config{APIKey: "test", BaseURL: srv.URL, MaxRetries: 0})

	_, err := c.Chat(context.Background(), gateway.ChatRequest{Model: "claude-sonnet-4", Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}
