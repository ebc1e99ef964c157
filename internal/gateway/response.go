package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags the shape a capability answered with.
type Kind int

const (
	KindText    Kind = iota + 1 // plain string
	KindBlocks                  // message with typed content blocks
	KindGeneric                 // anything else
)

// Block is one content block of a message.
type Block struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Response is the raw answer of a capability.
type Response struct {
	Kind      Kind
	Text      string
	Blocks    []Block
	Value     any
	ToolCalls []ToolCall
}

// TextResponse wraps a plain string answer.
func TextResponse(s string) Response { return Response{Kind: KindText, Text: s} }

// BlocksResponse wraps a content-block answer.
func BlocksResponse(blocks ...Block) Response { return Response{Kind: KindBlocks, Blocks: blocks} }

// GenericResponse wraps an answer of unknown shape.
func GenericResponse(v any) Response { return Response{Kind: KindGeneric, Value: v} }

// Message is the assistant message of a normalized result.
type Message struct {
	Role    string  `json:"role"`
	Content []Block `json:"content"`
}

// Result is the normalized answer handed to orchestrators.
type Result struct {
	Text      string     `json:"text"`
	Message   Message    `json:"message"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	Success   bool       `json:"success"`
	// Fallback is set when the text is locally generated demo content.
	Fallback bool `json:"fallback"`
}

// Normalize converts r into a Result. Plain text is checked first, then
// content blocks, then any other value, which is coerced to a string.
func Normalize(r Response) Result {
	switch r.Kind {
	case KindText:
		return textResult(r.Text, r.ToolCalls)
	case KindBlocks:
		if text := blocksText(r.Blocks); text != "" {
			return Result{
				Text:      text,
				Message:   Message{Role: "assistant", Content: append([]Block(nil), r.Blocks...)},
				ToolCalls: r.ToolCalls,
				Success:   true,
			}
		}
		return textResult("", r.ToolCalls)
	default:
		return textResult(coerce(r.Value), r.ToolCalls)
	}
}

func textResult(text string, calls []ToolCall) Result {
	return Result{
		Text:      text,
		Message:   Message{Role: "assistant", Content: []Block{{Type: "text", Text: text}}},
		ToolCalls: calls,
		Success:   true,
	}
}

// blocksText joins the text blocks in order.
func blocksText(blocks []Block) string {
	var b strings.Builder
	for _, blk := range blocks {
		if blk.Type != "" && blk.Type != "text" {
			continue
		}
		b.WriteString(blk.Text)
	}
	return b.String()
}

func coerce(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case []byte:
		return string(t)
	case error:
		return t.Error()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
