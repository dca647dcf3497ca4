// Package queue buffers alignment submissions for the snapshot workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/fires/internal/domain/model"
	"github.com/okian/fires/pkg/metrics"
)

const (
	defaultQueueCapacity = 10000
	defaultComponent     = "queue"
)

// Submission is the payload flowing through the queue.
type Submission = model.AlignmentSubmission

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a submission without blocking. It returns ErrFull,
	// ErrClosed or the context's error when the submission was not queued.
	Enqueue(ctx context.Context, s Submission) error

	// Dequeue returns the channel submissions are delivered on. It is closed
	// when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Submission

	Len(ctx context.Context) int
	Cap() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel sized to its
// capacity.
type InMemoryQueue struct {
	submissions chan Submission
	capacity    int
	component   string
	mu          sync.RWMutex
	closed      bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:  defaultQueueCapacity,
		component: defaultComponent,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.submissions = make(chan Submission, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a submission to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s Submission) error {
	if err := ctx.Err(); err != nil {
		return q.reject("context_cancelled", err)
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return q.reject("closed", ErrClosed)
	}

	select {
	case q.submissions <- s:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.submissions))
		return nil
	default:
		return q.reject("capacity_exceeded", ErrFull)
	}
}

func (q *InMemoryQueue) reject(reason string, err error) error {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent(q.component, reason)
	return err
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Submission {
	return q.submissions
}

// Len returns the current number of queued submissions.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.submissions)
	metrics.UpdateQueueSize(size)
	return size
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close stops accepting submissions. Already queued submissions are still
// delivered to consumers.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.submissions)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
