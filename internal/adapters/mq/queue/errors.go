package queue

import "errors"

// Enqueue failures. A cancelled context is returned as ctx.Err() instead.
var (
	// ErrFull means the queue is at capacity; callers should shed load.
	ErrFull = errors.New("submission queue full")
	// ErrClosed means the queue no longer accepts submissions.
	ErrClosed = errors.New("submission queue closed")
)
