package worker

import (
	"github.com/okian/mu3/internal/domain/dedupe"
	"github.com/okian/mu3/internal/errreg"
	"github.com/okian/mu3/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDeduper drops jobs whose ID was already handled. Workers of a pool
// should share one deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(w *InMemoryWorker) { w.deduper = d }
}

// WithRegistry records failed jobs in the error registry.
func WithRegistry(r *errreg.Registry) Option {
	return func(w *InMemoryWorker) { w.registry = r }
}
