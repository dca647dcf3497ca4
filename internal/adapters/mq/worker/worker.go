// Package worker turns queued alignment submissions into stored zone snapshots.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/fires/internal/adapters/mq/queue"
	"github.com/okian/fires/internal/domain/model"
	"github.com/okian/fires/internal/domain/scoring"
	"github.com/okian/fires/pkg/logger"
	"github.com/okian/fires/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
	defaultProcessTimeout   = 10 * time.Second
)

// Store persists what a worker produces.
type Store interface {
	ConnectionCount(ctx context.Context, user string) (int, error)
	SaveRatings(ctx context.Context, sub model.AlignmentSubmission) error
	SaveSnapshot(ctx context.Context, snap model.Snapshot) error
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Submission
}

// Worker processes submissions until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing submissions.
type InMemoryWorker struct {
	queue  Queue
	scorer scoring.Scorer
	store  Store
	name   string

	processTimeout time.Duration

	processed *atomic.Int64
	failed    *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer scoring.Scorer, store Store, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:          q,
		scorer:         scorer,
		store:          store,
		name:           "worker",
		processTimeout: defaultProcessTimeout,
		processed:      &atomic.Int64{},
		failed:         &atomic.Int64{},
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	subs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case sub, ok := <-subs:
			if !ok {
				return
			}
			if err := w.process(ctx, sub); err != nil {
				w.failed.Add(1)
				w.logger.Error(ctx, "error processing submission", logger.Error(err))
				continue
			}
			w.processed.Add(1)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process scores one submission and stores the ratings and snapshot. A
// failed connection count scores without the bonus.
func (w *InMemoryWorker) process(ctx context.Context, sub queue.Submission) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()
	if w.processTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.processTimeout)
		defer cancel()
	}

	connections, err := w.store.ConnectionCount(ctx, sub.UserID)
	if err != nil {
		metrics.RecordErrorByComponent("worker", "connection_count")
		w.logger.Warn(ctx, "connection count unavailable; scoring without bonus",
			logger.String("user", sub.UserID),
			logger.Error(err),
		)
		connections = 0
	}

	snap, err := w.scorer.Score(ctx, scoring.Input{UserID: sub.UserID, Ratings: sub.Ratings, Connections: connections})
	if err != nil {
		metrics.RecordSnapshotError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		return fmt.Errorf("score submission %s: %w", sub.SubmissionID, err)
	}
	if !sub.SubmittedAt.IsZero() {
		snap.RecordedAt = sub.SubmittedAt.UTC()
	}

	if err := w.store.SaveRatings(ctx, sub); err != nil {
		metrics.RecordSnapshotError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		return fmt.Errorf("save ratings for %s: %w", sub.SubmissionID, err)
	}
	if err := w.store.SaveSnapshot(ctx, snap); err != nil {
		metrics.RecordSnapshotError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		return fmt.Errorf("save snapshot for %s: %w", sub.SubmissionID, err)
	}

	metrics.RecordSnapshotComputed()
	w.logger.Debug(ctx, "snapshot stored",
		logger.String("user", sub.UserID),
		logger.Int("score", snap.Score),
		logger.String("growth_edge", string(snap.GrowthEdge.Dimension)),
	)
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses a multiple of
// the CPU count. opts apply to every worker; names are assigned per worker.
func NewPool(workerCount int, q Queue, scorer scoring.Scorer, store Store, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	base := &InMemoryWorker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(base)
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  base.logger.Named("pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append(slices.Clone(opts), WithName("worker-"+strconv.Itoa(i)))
		w := NewInMemoryWorker(q, scorer, store, workerOpts...)
		w.processed, w.failed = &p.processed, &p.failed
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of submissions stored successfully.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns the number of submissions that could not be stored.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals every worker and waits briefly for each.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}
