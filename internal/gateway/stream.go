package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/okian/mu3/pkg/logger"
	"github.com/okian/mu3/pkg/metrics"
)

// GenerateTextStream streams an answer. The returned channel is closed when
// the answer ends or ctx is cancelled; it is consumed once.
//
// With a capability, chunks are forwarded in arrival order. The request
// timeout bounds opening the stream and each wait for the next chunk, not the
// whole answer. If the stream cannot be opened, or fails or stalls before its
// first chunk, the whole fallback text is sent as one fragment. Without a capability the fallback text is sent
// word by word with a short pause between words.
func (g *Gateway) GenerateTextStream(ctx context.Context, prompt, modelID string, opts TextOptions) <-chan Fragment {
	out := make(chan Fragment, g.streamBuffer)
	go func() {
		defer close(out)
		g.stream(ctx, out, ChatRequest{
			Model:       modelID,
			Prompt:      prompt,
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		})
	}()
	return out
}

func (g *Gateway) stream(ctx context.Context, out chan<- Fragment, req ChatRequest) {
	const op = "generate_text_stream"
	start := time.Now()
	c, ok := g.capability(ctx)
	if !ok {
		g.observe(op, modeFallback, "unavailable", start)
		g.emitWords(ctx, out, FallbackText(req.Prompt, req.Model))
		return
	}

	var (
		chunks <-chan Chunk
		cancel context.CancelFunc = func() {}
	)
	defer func() { cancel() }()

	err := g.retry(ctx, op, func() error {
		attemptCtx, attemptCancel := context.WithCancel(ctx)
		opening := time.AfterFunc(g.requestTimeout, attemptCancel)
		ch, err := c.ChatStream(attemptCtx, req)
		if !opening.Stop() && err == nil {
			err = context.DeadlineExceeded
		}
		if err != nil {
			attemptCancel()
			return err
		}
		chunks, cancel = ch, attemptCancel
		return nil
	})
	if err != nil {
		g.logger.Warn(ctx, "AI stream could not start; using fallback",
			logger.String("model", req.Model), logger.Error(err))
		g.observe(op, modeFallback, "error", start)
		g.emitWhole(ctx, out, FallbackText(req.Prompt, req.Model))
		return
	}

	idle := time.NewTimer(g.requestTimeout)
	defer idle.Stop()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			g.observe(op, modeReal, "cancelled", start)
			return
		case <-idle.C:
			cancel()
			if sent == 0 {
				g.logger.Warn(ctx, "AI stream sent nothing within the request timeout; using fallback",
					logger.String("model", req.Model), logger.Duration("timeout", g.requestTimeout))
				g.observe(op, modeFallback, "timeout", start)
				g.emitWhole(ctx, out, FallbackText(req.Prompt, req.Model))
				return
			}
			g.logger.Warn(ctx, "AI stream stalled",
				logger.String("model", req.Model), logger.Int("fragments", sent), logger.Duration("timeout", g.requestTimeout))
			g.observe(op, modeReal, "stalled", start)
			return
		case chunk, open := <-chunks:
			switch {
			case !open && sent == 0:
				g.observe(op, modeFallback, "empty", start)
				g.emitWhole(ctx, out, FallbackText(req.Prompt, req.Model))
				return
			case !open:
				g.observe(op, modeReal, "ok", start)
				return
			case chunk.Err != nil && sent == 0:
				g.logger.Warn(ctx, "AI stream failed before first chunk; using fallback",
					logger.String("model", req.Model), logger.Error(chunk.Err))
				g.observe(op, modeFallback, "error", start)
				g.emitWhole(ctx, out, FallbackText(req.Prompt, req.Model))
				return
			case chunk.Err != nil:
				g.logger.Warn(ctx, "AI stream ended early",
					logger.String("model", req.Model), logger.Int("fragments", sent), logger.Error(chunk.Err))
				g.observe(op, modeReal, "partial", start)
				return
			case chunk.Text == "":
				idle.Reset(g.requestTimeout)
				continue
			}
			if !send(ctx, out, Fragment{Text: g.clean(chunk.Text)}) {
				return
			}
			metrics.RecordStreamFragment(modeReal)
			sent++
			idle.Reset(g.requestTimeout)
		}
	}
}

func (g *Gateway) emitWhole(ctx context.Context, out chan<- Fragment, text string) {
	if send(ctx, out, Fragment{Text: text}) {
		metrics.RecordStreamFragment(modeFallback)
	}
}

// emitWords sends each space-separated word followed by a space.
func (g *Gateway) emitWords(ctx context.Context, out chan<- Fragment, text string) {
	words := strings.Split(text, " ")
	for i, w := range words {
		if i > 0 && !sleep(ctx, g.streamDelay) {
			return
		}
		if !send(ctx, out, Fragment{Text: w + " "}) {
			return
		}
		metrics.RecordStreamFragment(modeFallback)
	}
}

func send(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
