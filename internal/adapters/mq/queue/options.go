// Package queue buffers alignment submissions for the snapshot workers.
package queue

// Option configures an InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the number of submissions waiting for a worker.
// Non-positive values keep the default.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithComponent sets the component label used when rejections are counted.
func WithComponent(name string) Option {
	return func(q *InMemoryQueue) {
		if name != "" {
			q.component = name
		}
	}
}
