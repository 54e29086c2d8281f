package pool

import "errors"

var (
	// ErrSaturated is returned by Submit when the queue is at capacity.
	// It is an expected outcome under load, not a failure of the pool.
	ErrSaturated = errors.New("pool saturated")

	// ErrClosed is returned by Submit before Start or after Shutdown began.
	ErrClosed = errors.New("pool closed")

	// ErrShutdownTimeout is returned by Shutdown when tasks were still running
	// or queued after the grace period and had to be abandoned.
	ErrShutdownTimeout = errors.New("pool shutdown timed out")

	ErrInvalidWorkers   = errors.New("worker count must be at least 1")
	ErrInvalidQueueSize = errors.New("queue size must be at least 1")
)
