// Package errreg keeps a bounded, most-recent-first log of classified
// application errors and mirrors the newest entries to storage.
package errreg

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/mu3/internal/adapters/storage"
	"github.com/okian/mu3/pkg/logger"
	"github.com/okian/mu3/pkg/metrics"
)

// Category classifies where an error came from.
type Category string

// Categories.
const (
	CategoryNetwork     Category = "network"
	CategoryExternalAPI Category = "external_api"
	CategoryValidation  Category = "validation"
	CategorySystem      Category = "system"
	CategoryUserInput   Category = "user_input"
	CategoryUnknown     Category = "unknown"
)

// Severity ranks how bad an error is.
type Severity string

// Severities.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Defaults.
const (
	DefaultCapacity   = 100
	DefaultMirrorSize = 10
)

// Record is one logged error.
type Record struct {
	ID        string         `json:"id"`
	Category  Category       `json:"type"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	UserAgent string         `json:"userAgent,omitempty"`
	URL       string         `json:"url,omitempty"`
}

// Options tune a single Record call.
type Options struct {
	Details   map[string]any
	UserAgent string
	URL       string
	// Quiet suppresses the log line for this record.
	Quiet bool
	// Report forwards the record to the configured reporter.
	Report bool
	// Fallback runs after the record is stored. A panic inside it is logged and swallowed.
	Fallback func()
}

// Filter selects records. Empty fields match everything.
type Filter struct {
	Category Category
	Severity Severity
}

func (f Filter) match(r Record) bool {
	return (f.Category == "" || f.Category == r.Category) &&
		(f.Severity == "" || f.Severity == r.Severity)
}

// Reporter receives records recorded with Options.Report.
type Reporter func(ctx context.Context, r Record)

// Registry is the process error log. Construct one per application.
type Registry struct {
	mu      sync.RWMutex
	records []Record

	mirrorMu sync.Mutex

	capacity   int
	mirrorSize int
	store      storage.Store
	reporter   Reporter
	now        func() time.Time
	logger     logger.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithCapacity bounds the number of retained records.
func WithCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithMirrorSize sets how many of the newest records are written to storage.
func WithMirrorSize(n int) Option {
	return func(r *Registry) {
		if n >= 0 {
			r.mirrorSize = n
		}
	}
}

// WithStore enables mirroring to s under storage.KeyErrors.
func WithStore(s storage.Store) Option {
	return func(r *Registry) { r.store = s }
}

// WithReporter sets the sink for reported records.
func WithReporter(fn Reporter) Option {
	return func(r *Registry) { r.reporter = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		capacity:   DefaultCapacity,
		mirrorSize: DefaultMirrorSize,
		now:        time.Now,
		logger:     logger.Get().Named("errreg"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.reporter == nil {
		r.reporter = r.logReport
	}
	return r
}

// Record stores err with the given classification and returns the stored record.
// A nil err is recorded with an empty message.
func (r *Registry) Record(ctx context.Context, err error, cat Category, sev Severity, opts Options) Record {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return r.RecordMessage(ctx, msg, cat, sev, opts)
}

// RecordMessage is Record for callers that only have text.
func (r *Registry) RecordMessage(ctx context.Context, msg string, cat Category, sev Severity, opts Options) Record {
	if cat == "" {
		cat = CategoryUnknown
	}
	if sev == "" {
		sev = SeverityMedium
	}
	now := r.now()
	rec := Record{
		ID:        newID(now),
		Category:  cat,
		Severity:  sev,
		Message:   msg,
		Details:   opts.Details,
		Timestamp: now,
		UserAgent: opts.UserAgent,
		URL:       opts.URL,
	}

	r.mu.Lock()
	r.records = append([]Record{rec}, r.records...)
	if len(r.records) > r.capacity {
		r.records = r.records[:r.capacity]
	}
	n := len(r.records)
	r.mu.Unlock()

	metrics.RecordErrorRecorded(string(cat), string(sev))
	metrics.UpdateErrorsRetained(n)

	r.mirror(ctx)

	if !opts.Quiet {
		r.logger.Log(ctx, levelFor(sev), msg,
			logger.String("id", rec.ID),
			logger.String("category", string(cat)),
			logger.String("severity", string(sev)),
			logger.Any("details", rec.Details))
	}
	if opts.Report {
		r.reporter(ctx, rec)
	}
	if opts.Fallback != nil {
		r.runFallback(ctx, opts.Fallback)
	}
	return rec
}

// Network records a medium network error.
func (r *Registry) Network(ctx context.Context, msg string, details map[string]any) Record {
	return r.RecordMessage(ctx, msg, CategoryNetwork, SeverityMedium, Options{Details: details})
}

// ExternalAPI records a medium error from an AI provider.
func (r *Registry) ExternalAPI(ctx context.Context, msg string, details map[string]any) Record {
	return r.RecordMessage(ctx, msg, CategoryExternalAPI, SeverityMedium, Options{Details: details})
}

// Validation records a low input error.
func (r *Registry) Validation(ctx context.Context, msg string, details map[string]any) Record {
	return r.RecordMessage(ctx, msg, CategoryValidation, SeverityLow, Options{Details: details})
}

// System records a high internal error.
func (r *Registry) System(ctx context.Context, msg string, details map[string]any) Record {
	return r.RecordMessage(ctx, msg, CategorySystem, SeverityHigh, Options{Details: details})
}

// Critical records a critical internal error and reports it.
func (r *Registry) Critical(ctx context.Context, msg string, details map[string]any) Record {
	return r.RecordMessage(ctx, msg, CategorySystem, SeverityCritical, Options{Details: details, Report: true})
}

// Errors returns matching records, newest first.
func (r *Registry) Errors(f Filter) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if f.match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Stats counts records by CATEGORY_SEVERITY.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int)
	for _, rec := range r.records {
		out[statsKey(rec.Category, rec.Severity)]++
	}
	return out
}

// Len reports how many records are retained.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Clear drops every record and the storage mirror.
func (r *Registry) Clear(ctx context.Context) error {
	const op = "errreg.clear"
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
	metrics.UpdateErrorsRetained(0)

	if r.store == nil {
		return nil
	}
	r.mirrorMu.Lock()
	defer r.mirrorMu.Unlock()
	if err := r.store.Delete(ctx, storage.KeyErrors); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Guard runs fn. A returned error or a panic is recorded as a high system
// error under msg and the zero value is returned with ok false.
func Guard[T any](ctx context.Context, r *Registry, msg string, fn func(context.Context) (T, error)) (v T, ok bool) {
	if msg == "" {
		msg = DefaultGuardMessage
	}
	defer func() {
		if p := recover(); p != nil {
			r.System(ctx, msg, map[string]any{"error": fmt.Sprintf("%v: %v", ErrPanic, p)})
			var zero T
			v, ok = zero, false
		}
	}()
	v, err := fn(ctx)
	if err != nil {
		r.System(ctx, msg, map[string]any{"error": err.Error()})
		var zero T
		return zero, false
	}
	return v, true
}

// Recover records a panic in progress as a high system error. Use it
// directly with defer at the top of goroutines.
func (r *Registry) Recover(ctx context.Context, where string) {
	if p := recover(); p != nil {
		r.System(ctx, fmt.Sprintf("%v in %s: %v", ErrPanic, where, p), map[string]any{
			"stack": string(debug.Stack()),
		})
	}
}

func (r *Registry) mirror(ctx context.Context) {
	if r.store == nil || r.mirrorSize == 0 {
		return
	}
	r.mirrorMu.Lock()
	defer r.mirrorMu.Unlock()

	r.mu.RLock()
	n := min(r.mirrorSize, len(r.records))
	top := make([]Record, n)
	copy(top, r.records[:n])
	r.mu.RUnlock()

	if err := storage.SetJSON(ctx, r.store, storage.KeyErrors, top); err != nil {
		r.logger.Warn(ctx, "failed to mirror errors to storage", logger.Error(err))
	}
}

func (r *Registry) runFallback(ctx context.Context, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error(ctx, "error fallback action failed", logger.Any("panic", p))
		}
	}()
	fn()
}

func (r *Registry) logReport(ctx context.Context, rec Record) {
	r.logger.Error(ctx, "reported error",
		logger.String("id", rec.ID),
		logger.String("category", string(rec.Category)),
		logger.String("message", rec.Message))
}

func levelFor(s Severity) logger.Level {
	switch s {
	case SeverityLow:
		return logger.LevelInfo
	case SeverityMedium:
		return logger.LevelWarn
	default:
		return logger.LevelError
	}
}

func statsKey(c Category, s Severity) string {
	return strings.ToUpper(string(c)) + "_" + strings.ToUpper(string(s))
}

func newID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("err_%d_%s", t.UnixMilli(), suffix[:9])
}
