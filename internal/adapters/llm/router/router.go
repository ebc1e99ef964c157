// Package router picks a backend Capability by the provider of the requested model.
package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/mu3/internal/domain/catalog"
	"github.com/okian/mu3/internal/gateway"
)

// ErrNoBackend is returned when no backend serves the model's provider.
var ErrNoBackend = errors.New("no backend for model")

// Capability routes calls to per-provider backends.
type Capability struct {
	catalog  *catalog.Catalog
	backends map[string]gateway.Capability
	fallback gateway.Capability
}

var _ gateway.Capability = (*Capability)(nil)

// Option configures the router.
type Option func(*Capability)

// WithBackend serves every model of provider (e.g. "Anthropic") with c.
func WithBackend(provider string, c gateway.Capability) Option {
	return func(r *Capability) {
		if c != nil {
			r.backends[provider] = c
		}
	}
}

// WithDefault serves models whose provider has no dedicated backend, and unknown models.
func WithDefault(c gateway.Capability) Option {
	return func(r *Capability) {
		r.fallback = c
	}
}

// New builds a router over cat.
func New(cat *catalog.Catalog, opts ...Option) *Capability {
	r := &Capability{catalog: cat, backends: make(map[string]gateway.Capability)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Empty reports whether no backend is configured at all.
func (r *Capability) Empty() bool {
	return r.fallback == nil && len(r.backends) == 0
}

func (r *Capability) backend(modelID string) (gateway.Capability, error) {
	if m, ok := r.catalog.ByID(modelID); ok {
		if c, ok := r.backends[m.Provider]; ok {
			return c, nil
		}
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoBackend, modelID)
}

func (r *Capability) Chat(ctx context.Context, req gateway.ChatRequest) (gateway.Response, error) {
	c, err := r.backend(req.Model)
	if err != nil {
		return gateway.Response{}, err
	}
	return c.Chat(ctx, req)
}

func (r *Capability) ChatStream(ctx context.Context, req gateway.ChatRequest) (<-chan gateway.Chunk, error) {
	c, err := r.backend(req.Model)
	if err != nil {
		return nil, err
	}
	return c.ChatStream(ctx, req)
}

func (r *Capability) Image(ctx context.Context, req gateway.ImageRequest) (gateway.Image, error) {
	c, err := r.backend(req.Model)
	if err != nil {
		return gateway.Image{}, err
	}
	return c.Image(ctx, req)
}
