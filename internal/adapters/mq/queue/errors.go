package queue

import "errors"

// Sentinel errors reported by TryEnqueue.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)
