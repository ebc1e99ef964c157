// Package worker drains the history queue and hands each job to a Handler.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/mu3/internal/adapters/mq/queue"
	"github.com/okian/mu3/internal/domain/dedupe"
	"github.com/okian/mu3/internal/errreg"
	"github.com/okian/mu3/pkg/logger"
	"github.com/okian/mu3/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Handler processes one job.
type Handler interface {
	Handle(ctx context.Context, j queue.Job) error
}

// Source defines how workers receive jobs.
type Source interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its source is exhausted or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in progress.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	source   Source
	handler  Handler
	deduper  dedupe.Deduper
	registry *errreg.Registry
	name     string

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	processed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(source Source, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source:   source,
		handler:  handler,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop. It returns when ctx ends, the worker is shut
// down or the source channel is closed.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "job failed",
					logger.String("kind", string(j.Kind)),
					logger.String("id", j.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown signals the worker and waits for it to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Processed returns how many jobs finished without error.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed returns how many jobs returned an error or panicked.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if w.deduper != nil && j.ID != "" && w.deduper.SeenAndRecord(ctx, j.ID) {
		metrics.RecordJobDuplicate()
		w.logger.Debug(ctx, "duplicate job dropped", logger.String("id", j.ID))
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errreg.ErrPanic, r)
			w.logger.Error(ctx, "job panicked", logger.String("stack", string(debug.Stack())))
		}
		if err == nil {
			w.processed.Add(1)
			return
		}
		w.failed.Add(1)
		metrics.RecordWorkerError()
		if w.deduper != nil && j.ID != "" {
			w.deduper.Unrecord(ctx, j.ID)
		}
		if w.registry != nil {
			w.registry.Record(ctx, err, errreg.CategorySystem, errreg.SeverityMedium, errreg.Options{
				Details: map[string]any{"kind": string(j.Kind), "id": j.ID, "worker": w.name},
				Quiet:   true,
			})
		}
	}()

	return w.handler.Handle(ctx, j)
}

// Pool manages multiple workers over one source.
type Pool struct {
	workers []*InMemoryWorker
	source  Source
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one uses a
// multiple of the CPU count. opts apply to every worker; names are assigned
// by the pool.
func NewPool(workerCount int, source Source, handler Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		source:  source,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range workerCount {
		wopts := append(append([]Option(nil), opts...), WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(source, handler, wopts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Processed sums the successful jobs of all workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed sums the failed jobs of all workers.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Shutdown closes the source when it supports Close and lets the workers
// drain what is queued. Workers still busy when ctx or the pool timeout ends
// are signalled to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			w.stop()
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
