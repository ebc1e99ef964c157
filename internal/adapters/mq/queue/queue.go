// Package queue carries history jobs from the request path to the workers.
//
// Enqueue never blocks: when the queue is full or closed the job is
// rejected and the caller decides what to do.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/mu3/pkg/logger"
	"github.com/okian/mu3/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Kind names what a job records.
type Kind string

// Job kinds.
const (
	KindBattle Kind = "battle"
	KindChat   Kind = "chat"
	KindImage  Kind = "image"
)

// Job is one unit of background work. ID must be unique per logical result
// so workers can drop duplicates.
type Job struct {
	Kind       Kind
	ID         string
	Payload    any
	EnqueuedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It returns false if the job was not accepted.
	Enqueue(ctx context.Context, j Job) bool

	// Dequeue returns a channel of jobs that is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the number of queued jobs.
	Len(ctx context.Context) int

	// Close stops accepting jobs. Jobs already queued can still be dequeued.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	logger   logger.Logger

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity, logger: logger.Get().Named("queue")}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds j to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	return q.TryEnqueue(ctx, j) == nil
}

// TryEnqueue is Enqueue with the rejection reason.
func (q *InMemoryQueue) TryEnqueue(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}
	if j.EnqueuedAt.IsZero() {
		j.EnqueuedAt = time.Now()
	}

	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	default:
		metrics.RecordQueueEnqueueError("full")
		return ErrFull
	}
}

// Dequeue returns a channel that receives jobs as they become available.
// A job taken just as ctx ends goes back to the end of the queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			if ctx.Err() != nil {
				q.putBack(j)
				return
			}
			select {
			case out <- j:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.jobs))
			case <-ctx.Done():
				q.putBack(j)
				return
			}
		}
	}()
	return out
}

// putBack requeues a job whose consumer went away. It is dropped, and
// logged, only when the queue has been closed or filled in the meantime.
func (q *InMemoryQueue) putBack(j Job) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	reason := "closed"
	if !q.closed {
		select {
		case q.jobs <- j:
			metrics.UpdateQueueSize(len(q.jobs))
			return
		default:
			reason = "full"
		}
	}
	metrics.RecordQueueEnqueueError("dropped_" + reason)
	q.logger.Warn(context.Background(), "job dropped after its consumer stopped",
		logger.String("kind", string(j.Kind)), logger.String("id", j.ID), logger.String("reason", reason))
}

// Len returns the number of queued jobs.
func (q *InMemoryQueue) Len(context.Context) int {
	n := len(q.jobs)
	metrics.UpdateQueueSize(n)
	return n
}

// Close stops the queue. Calling it more than once is safe.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
