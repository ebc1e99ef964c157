package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/okian/mu3/pkg/logger"
)

// GenerateText answers prompt with modelID, or with fallback text.
func (g *Gateway) GenerateText(ctx context.Context, prompt, modelID string, opts TextOptions) Result {
	return g.chat(ctx, "generate_text", ChatRequest{
		Model:       modelID,
		Prompt:      prompt,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}, prompt)
}

// AnalyzeImage asks a vision model about the image at imageURL.
// An empty modelID selects DefaultVisionModel.
func (g *Gateway) AnalyzeImage(ctx context.Context, prompt, imageURL, modelID string) Result {
	if modelID == "" {
		modelID = DefaultVisionModel
	}
	return g.chat(ctx, "analyze_image", ChatRequest{
		Model:    modelID,
		Prompt:   prompt,
		ImageURL: imageURL,
	}, VisionFallbackPrefix+prompt)
}

// CallFunction offers tools to the model and returns its answer with any tool calls.
// An empty modelID selects DefaultFunctionModel.
func (g *Gateway) CallFunction(ctx context.Context, prompt string, tools []Tool, modelID string) Result {
	if modelID == "" {
		modelID = DefaultFunctionModel
	}
	return g.chat(ctx, "call_function", ChatRequest{
		Model:  modelID,
		Prompt: prompt,
		Tools:  tools,
	}, FunctionFallbackPrefix+prompt)
}

func (g *Gateway) chat(ctx context.Context, op string, req ChatRequest, fallbackPrompt string) Result {
	start := time.Now()
	c, ok := g.capability(ctx)
	if !ok {
		g.observe(op, modeFallback, "unavailable", start)
		return Fallback(fallbackPrompt, req.Model)
	}

	var resp Response
	err := g.retry(ctx, op, func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.requestTimeout)
		defer cancel()
		r, err := c.Chat(callCtx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		g.logger.Warn(ctx, "AI call failed; using fallback",
			logger.String("op", op), logger.String("model", req.Model), logger.Error(err))
		g.observe(op, modeFallback, "error", start)
		return Fallback(fallbackPrompt, req.Model)
	}

	res := Normalize(resp)
	res.Text = g.clean(res.Text)
	for i := range res.Message.Content {
		res.Message.Content[i].Text = g.clean(res.Message.Content[i].Text)
	}
	if strings.TrimSpace(res.Text) == "" && len(res.ToolCalls) == 0 {
		g.logger.Warn(ctx, "AI call returned empty text; using fallback",
			logger.String("op", op), logger.String("model", req.Model), logger.Error(ErrEmptyResponse))
		g.observe(op, modeFallback, "empty", start)
		return Fallback(fallbackPrompt, req.Model)
	}
	if strings.TrimSpace(res.Text) == "" {
		res.Text = FunctionFallbackPrefix + toolNames(res.ToolCalls)
		res.Message.Content = []Block{{Type: "text", Text: res.Text}}
	}
	g.observe(op, modeReal, "ok", start)
	return res
}

// GenerateImage produces an image for prompt. Without a capability it returns a
// locally rendered preview; when the capability fails it returns an error placeholder.
func (g *Gateway) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) Image {
	const op = "generate_image"
	start := time.Now()
	c, ok := g.capability(ctx)
	if !ok {
		g.observe(op, modeFallback, "unavailable", start)
		return PlaceholderImage(prompt)
	}

	req := ImageRequest{Prompt: prompt, Model: opts.Model, Size: opts.Size, Quality: opts.Quality}
	var img Image
	err := g.retry(ctx, op, func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.requestTimeout)
		defer cancel()
		out, err := c.Image(callCtx, req)
		if err != nil {
			return err
		}
		img = out
		return nil
	})
	switch {
	case errors.Is(err, ErrUnsupported):
		g.observe(op, modeFallback, "unsupported", start)
		return PlaceholderImage(prompt)
	case err != nil:
		g.logger.Warn(ctx, "image generation failed", logger.String("model", opts.Model), logger.Error(err))
		g.observe(op, modeFallback, "error", start)
		return ErrorImage()
	case img.URL == "":
		g.logger.Warn(ctx, "image generation returned no url", logger.String("model", opts.Model))
		g.observe(op, modeFallback, "empty", start)
		return ErrorImage()
	}

	img.Alt = generatedAlt + prompt
	img.Placeholder = false
	if img.Width == 0 || img.Height == 0 {
		img.Width, img.Height = parseSize(opts.Size)
	}
	g.observe(op, modeReal, "ok", start)
	return img
}

func toolNames(calls []ToolCall) string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}
