// Package worker turns queued alignment submissions into stored zone snapshots.
package worker

import (
	"time"

	"github.com/okian/fires/pkg/logger"
)

// Option configures an InMemoryWorker. Options passed to NewPool apply to
// every worker in the pool.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in its log scope.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets the parent logger; each worker logs under its own name.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithProcessTimeout bounds the store calls made for one submission. Zero
// leaves them bounded only by the run context.
func WithProcessTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d >= 0 {
			w.processTimeout = d
		}
	}
}
