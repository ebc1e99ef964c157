// Package gateway is the single entry point for AI calls.
//
// A Gateway waits a bounded time for a real Capability to be attached. Once
// the wait resolves the state never changes again: ready gateways delegate to
// the capability, unavailable ones answer with locally generated content.
// Public operations never return errors and never return empty text.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/okian/mu3/pkg/logger"
	"github.com/okian/mu3/pkg/metrics"
)

// Defaults.
const (
	DefaultReadinessTimeout = 10 * time.Second
	DefaultRequestTimeout   = 30 * time.Second
	DefaultStreamDelay      = 50 * time.Millisecond
	DefaultStreamBuffer     = 16
	DefaultRetryAttempts    = 3
	DefaultRetryDelay       = time.Second

	DefaultVisionModel   = "gpt-5-nano"
	DefaultFunctionModel = "gpt-5"
)

// Call modes reported in metrics.
const (
	modeReal     = "real"
	modeFallback = "fallback"
)

// Gateway mediates every AI call.
type Gateway struct {
	state atomic.Int32

	startOnce sync.Once
	ready     chan struct{} // closed by Attach
	resolved  chan struct{} // closed when state becomes terminal

	// mu guards cap and the move out of StateWaiting.
	mu  sync.RWMutex
	cap Capability

	readinessTimeout time.Duration
	requestTimeout   time.Duration
	streamDelay      time.Duration
	streamBuffer     int
	retryAttempts    int
	retryDelay       time.Duration

	policy *bluemonday.Policy
	logger logger.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithReadinessTimeout bounds the wait for a capability.
func WithReadinessTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.readinessTimeout = d
		}
	}
}

// WithRequestTimeout bounds each capability call. For streams it bounds
// opening the stream and every wait for the next chunk.
func WithRequestTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.requestTimeout = d
		}
	}
}

// WithStreamDelay sets the pause between fallback stream fragments.
func WithStreamDelay(d time.Duration) Option {
	return func(g *Gateway) {
		if d >= 0 {
			g.streamDelay = d
		}
	}
}

// WithStreamBuffer sets the capacity of stream channels.
func WithStreamBuffer(n int) Option {
	return func(g *Gateway) {
		if n >= 0 {
			g.streamBuffer = n
		}
	}
}

// WithRetry sets how many times a failing call is attempted and the pause between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(g *Gateway) {
		if attempts > 0 {
			g.retryAttempts = attempts
		}
		if delay >= 0 {
			g.retryDelay = delay
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a gateway in the uninitialized state.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		ready:            make(chan struct{}),
		resolved:         make(chan struct{}),
		readinessTimeout: DefaultReadinessTimeout,
		requestTimeout:   DefaultRequestTimeout,
		streamDelay:      DefaultStreamDelay,
		streamBuffer:     DefaultStreamBuffer,
		retryAttempts:    DefaultRetryAttempts,
		retryDelay:       DefaultRetryDelay,
		policy:           bluemonday.UGCPolicy(),
		logger:           logger.Get().Named("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	metrics.UpdateGatewayState(int(StateUninitialized), StateUninitialized.String())
	return g
}

// State reports the current lifecycle state.
func (g *Gateway) State() State { return State(g.state.Load()) }

func (g *Gateway) setState(s State) {
	g.state.Store(int32(s))
	metrics.UpdateGatewayState(int(s), s.String())
}

// Attach hands the gateway a real capability. It returns false when the
// capability was not accepted: nil, already attached, or the gateway
// already gave up waiting.
func (g *Gateway) Attach(c Capability) bool {
	if c == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cap != nil {
		return false
	}
	if g.State() == StateUnavailable {
		g.logger.Warn(context.Background(), "capability attached after readiness timeout; ignoring")
		return false
	}
	g.cap = c
	close(g.ready)
	return true
}

// Start begins the readiness wait (once) and blocks until the state is
// terminal or ctx is done. It returns the state observed on return.
func (g *Gateway) Start(ctx context.Context) State {
	g.startOnce.Do(func() {
		g.setState(StateWaiting)
		go g.awaitCapability()
	})
	select {
	case <-g.resolved:
	case <-ctx.Done():
	}
	return g.State()
}

func (g *Gateway) awaitCapability() {
	timer := time.NewTimer(g.readinessTimeout)
	defer timer.Stop()

	select {
	case <-g.ready:
	case <-timer.C:
	}

	// A capability attached while the timer fired still wins.
	g.mu.Lock()
	attached := g.cap != nil
	if attached {
		g.setState(StateReady)
	} else {
		g.setState(StateUnavailable)
	}
	g.mu.Unlock()

	if attached {
		g.logger.Info(context.Background(), "AI capability ready")
	} else {
		g.logger.Warn(context.Background(), "AI capability not available within timeout; using fallback content",
			logger.Duration("timeout", g.readinessTimeout))
	}
	close(g.resolved)
}

// WaitReady waits at most timeout for the readiness outcome and reports
// whether a capability is usable.
func (g *Gateway) WaitReady(ctx context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return g.Start(ctx) == StateReady
}

// capability starts the gateway if needed and returns the capability when ready.
func (g *Gateway) capability(ctx context.Context) (Capability, bool) {
	if g.Start(ctx) != StateReady {
		return nil, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cap, g.cap != nil
}

// retry runs fn up to retryAttempts times. Unsupported operations and
// cancelled contexts are not retried. Panics inside fn become errors.
func (g *Gateway) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= g.retryAttempts; attempt++ {
		if attempt > 1 {
			metrics.RecordGatewayRetry()
			g.logger.Debug(ctx, "retrying AI call", logger.String("op", op), logger.Int("attempt", attempt))
			if !sleep(ctx, g.retryDelay) {
				return ctx.Err()
			}
		}
		if err = safeCall(fn); err == nil {
			return nil
		}
		if errors.Is(err, ErrUnsupported) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capability panic: %v", r)
		}
	}()
	return fn()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// clean strips unsafe markup from provider text. Text without markup is returned unchanged.
func (g *Gateway) clean(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	return g.policy.Sanitize(s)
}

func (g *Gateway) observe(op, mode, outcome string, start time.Time) {
	metrics.RecordGatewayCall(op, mode, outcome, float64(time.Since(start).Milliseconds()))
}
