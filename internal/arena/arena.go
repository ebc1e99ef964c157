// Package arena holds the user-facing flows: model battles, chat, image
// generation and image analysis. Each flow owns its state behind a mutex
// and tags every request with an epoch; results that finish after a reset
// are dropped instead of overwriting newer state.
package arena

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/mu3/internal/domain/validation"
	"github.com/okian/mu3/internal/gateway"
	"github.com/okian/mu3/pkg/logger"
)

// ResponseErrorText replaces an empty model answer.
const ResponseErrorText = "حدث خطأ في الاستجابة"

// DemoSuffix marks model names attached to scripted answers.
const DemoSuffix = " (تجريبي)"

// Defaults.
const (
	DefaultTemperature     = 0.7
	DefaultMaxTokens       = 500
	DefaultStreamThreshold = 0.5
	DefaultMaxMessages     = 50
	DefaultImageHistory    = 5
	DefaultRevealDelay     = 500 * time.Millisecond
)

// AI is the gateway surface the flows call.
type AI interface {
	GenerateText(ctx context.Context, prompt, modelID string, opts gateway.TextOptions) gateway.Result
	GenerateTextStream(ctx context.Context, prompt, modelID string, opts gateway.TextOptions) <-chan gateway.Fragment
	GenerateImage(ctx context.Context, prompt string, opts gateway.ImageOptions) gateway.Image
	AnalyzeImage(ctx context.Context, prompt, imageURL, modelID string) gateway.Result
}

// Recorder receives finished results for persistence. Implementations must not block.
type Recorder interface {
	RecordBattle(ctx context.Context, r BattleResult)
	RecordExchange(ctx context.Context, e Exchange)
	RecordImage(ctx context.Context, img GeneratedImage)
}

type nopRecorder struct{}

func (nopRecorder) RecordBattle(context.Context, BattleResult) {}
func (nopRecorder) RecordExchange(context.Context, Exchange) {}
func (nopRecorder) RecordImage(context.Context, GeneratedImage) {}

// Shuffler permutes n elements through swap.
type Shuffler func(n int, swap func(i, j int))

type settings struct {
	checker         *validation.Checker
	recorder        Recorder
	logger          logger.Logger
	now             func() time.Time
	newID           func() string
	shuffle         Shuffler
	temperature     float64
	maxTokens       int
	streamThreshold float64
	maxMessages     int
	imageHistory    int
	imageDefaults   gateway.ImageOptions
	revealDelay     time.Duration
}

func newSettings(name string, opts []Option) settings {
	s := settings{
		checker:         validation.NewChecker(validation.LangArabic),
		recorder:        nopRecorder{},
		logger:          logger.Get().Named(name),
		now:             time.Now,
		newID:           uuid.NewString,
		shuffle:         rand.Shuffle,
		temperature:     DefaultTemperature,
		maxTokens:       DefaultMaxTokens,
		streamThreshold: DefaultStreamThreshold,
		maxMessages:     DefaultMaxMessages,
		imageHistory:    DefaultImageHistory,
		revealDelay:     DefaultRevealDelay,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures any of the flows. Options that do not apply to a flow are ignored by it.
type Option func(*settings)

// WithLanguage selects the language of validation messages.
func WithLanguage(lang string) Option {
	return func(s *settings) { s.checker = validation.NewChecker(lang) }
}

// WithRecorder sets where finished results are sent.
func WithRecorder(r Recorder) Option {
	return func(s *settings) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithShuffle sets how battle contenders are drawn.
func WithShuffle(fn Shuffler) Option {
	return func(s *settings) {
		if fn != nil {
			s.shuffle = fn
		}
	}
}

// WithGeneration sets the battle temperature and token limit, and the chat defaults.
func WithGeneration(temperature float64, maxTokens int) Option {
	return func(s *settings) {
		if temperature >= 0 {
			s.temperature = temperature
		}
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
	}
}

// WithStreamThreshold sets the temperature above which chat answers stream.
func WithStreamThreshold(t float64) Option {
	return func(s *settings) {
		if t >= 0 {
			s.streamThreshold = t
		}
	}
}

// WithMaxMessages caps the chat history.
func WithMaxMessages(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxMessages = n
		}
	}
}

// WithImageHistory caps the image history.
func WithImageHistory(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.imageHistory = n
		}
	}
}

// WithImageDefaults fills image options the caller leaves empty.
func WithImageDefaults(o gateway.ImageOptions) Option {
	return func(s *settings) { s.imageDefaults = o }
}

// WithRevealDelay sets the pause between a vote and the reveal of model names.
func WithRevealDelay(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.revealDelay = d
		}
	}
}

func (s *settings) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
