package arena

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/mu3/internal/domain/validation"
	"github.com/okian/mu3/internal/gateway"
	"github.com/okian/mu3/pkg/logger"
	"github.com/okian/mu3/pkg/metrics"
)

// GeneratedImage is one entry of the image history.
type GeneratedImage struct {
	ID          string    `json:"id"`
	Prompt      string    `json:"prompt"`
	URL         string    `json:"url"`
	Alt         string    `json:"alt"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Placeholder bool      `json:"placeholder"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Images generates pictures and keeps the most recent ones.
type Images struct {
	ai AI
	settings

	mu      sync.Mutex
	history []GeneratedImage
	current *GeneratedImage
	epoch   atomic.Uint64
}

// NewImages returns an image flow with an empty history.
func NewImages(ai AI, opts ...Option) *Images {
	return &Images{ai: ai, settings: newSettings("images", opts)}
}

// Generate validates prompt, renders it and puts the result at the head of the history.
func (m *Images) Generate(ctx context.Context, prompt string, opts gateway.ImageOptions) (GeneratedImage, error) {
	res := m.checker.ImageDescription(prompt)
	if !res.Valid {
		return GeneratedImage{}, invalid(res)
	}
	prompt = validation.Sanitize(prompt)
	opts = m.withDefaults(opts)
	epoch := m.epoch.Load()

	img := m.ai.GenerateImage(ctx, prompt, opts)
	kind := "real"
	if img.Placeholder {
		kind = "placeholder"
	}
	metrics.RecordImageGenerated(kind)

	out := GeneratedImage{
		ID:          m.newID(),
		Prompt:      prompt,
		URL:         img.URL,
		Alt:         img.Alt,
		Width:       img.Width,
		Height:      img.Height,
		Placeholder: img.Placeholder,
		CreatedAt:   m.now().UTC(),
	}

	m.mu.Lock()
	if m.epoch.Load() != epoch {
		m.mu.Unlock()
		metrics.RecordStaleDiscarded("image")
		m.logger.Debug(ctx, "image finished after clear; discarding", logger.String("id", out.ID))
		return GeneratedImage{}, ErrStale
	}
	m.history = append([]GeneratedImage{out}, m.history...)
	if len(m.history) > m.imageHistory {
		m.history = m.history[:m.imageHistory]
	}
	m.current = &out
	m.mu.Unlock()

	m.recorder.RecordImage(ctx, out)
	return out, nil
}

// History returns the retained images, newest first.
func (m *Images) History() []GeneratedImage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GeneratedImage, len(m.history))
	copy(out, m.history)
	return out
}

// Current returns the most recently generated image.
func (m *Images) Current() (GeneratedImage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return GeneratedImage{}, false
	}
	return *m.current, true
}

// Clear drops the history and discards generations in flight.
func (m *Images) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch.Add(1)
	m.history = nil
	m.current = nil
}

func (m *Images) withDefaults(o gateway.ImageOptions) gateway.ImageOptions {
	if o.Model == "" {
		o.Model = m.imageDefaults.Model
	}
	if o.Size == "" {
		o.Size = m.imageDefaults.Size
	}
	if o.Quality == "" {
		o.Quality = m.imageDefaults.Quality
	}
	return o
}
