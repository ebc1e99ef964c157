package queue

import "github.com/okian/mu3/pkg/logger"

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of queued jobs.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithLogger sets the logger used to report dropped jobs.
func WithLogger(l logger.Logger) Option {
	return func(q *InMemoryQueue) {
		if l != nil {
			q.logger = l
		}
	}
}
