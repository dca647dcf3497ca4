// Package service wires the progress engine to persistence and the async
// snapshot pipeline. It is the single entry point used by the HTTP and MCP
// adapters.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fires/internal/adapters/mq/queue"
	"github.com/okian/fires/internal/adapters/mq/worker"
	"github.com/okian/fires/internal/adapters/repository"
	"github.com/okian/fires/internal/domain/circle"
	"github.com/okian/fires/internal/domain/dedupe"
	"github.com/okian/fires/internal/domain/feed"
	"github.com/okian/fires/internal/domain/lifecycle"
	"github.com/okian/fires/internal/domain/markers"
	"github.com/okian/fires/internal/domain/model"
	"github.com/okian/fires/internal/domain/scoring"
	"github.com/okian/fires/pkg/logger"
	"github.com/okian/fires/pkg/metrics"
)

// Service implements the operations exposed by the API adapters.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	deduper    dedupe.Deduper
	scorer     *scoring.SnapshotScorer
	tracker    *markers.Tracker
	resolver   *circle.Resolver
	aggregator *feed.Aggregator
	queue      *queue.InMemoryQueue
	pool       *worker.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	feedLimit   int
	bonusPer    int
	bonusCap    int
	now         func() time.Time

	ownsStore bool
	started   bool
	cancel    context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Read and write operations work immediately;
// SubmitAlignment needs Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10_000,
		dedupeSize:  100_000,
		feedLimit:   feed.DefaultLimit,
		bonusPer:    2,
		bonusCap:    16,
		now:         time.Now,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemStore()
		s.ownsStore = true
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	s.scorer = scoring.NewSnapshotScorer(
		scoring.WithConnectionBonus(s.bonusPer, s.bonusCap),
		scoring.WithClock(s.now),
	)
	s.tracker = markers.NewTracker(markers.WithClock(s.now))
	s.resolver = circle.NewResolver(s.store, circle.WithLogger(s.logger.Named("circle")))
	s.aggregator = feed.NewAggregator(s.resolver, s.store,
		feed.WithLimit(s.feedLimit),
		feed.WithLogger(s.logger.Named("feed")),
	)
	return s
}

// Start creates the submission queue and starts the snapshot workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting progress engine service...")

	s.queue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithComponent("alignment_queue"),
	)
	s.pool = worker.NewPool(s.workerCount, s.queue, s.scorer, s.store,
		worker.WithLogger(s.logger.Named("snapshots")))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "progress engine service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the submission queue and stops the workers. A store supplied
// through WithStore stays open; the caller closes it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping progress engine service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.cancel()
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "closing store failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "progress engine service stopped")
}

// Receipt acknowledges an alignment submission.
type Receipt struct {
	SubmissionID string `json:"submission_id"`
	Duplicate    bool   `json:"duplicate"`
}

// SubmitAlignment queues ratings for scoring. Resubmitting the same
// submission id is acknowledged without being queued again.
func (s *Service) SubmitAlignment(ctx context.Context, sub model.AlignmentSubmission) (Receipt, error) {
	if strings.TrimSpace(sub.UserID) == "" {
		return Receipt{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return Receipt{}, ErrNotStarted
	}

	if sub.SubmissionID == "" {
		sub.SubmissionID = uuid.NewString()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = s.now().UTC()
	}

	key := "alignment:" + sub.SubmissionID
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordIdempotentReplay()
		return Receipt{SubmissionID: sub.SubmissionID, Duplicate: true}, nil
	}
	if err := q.Enqueue(ctx, sub); err != nil {
		s.deduper.Unrecord(ctx, key)
		return Receipt{}, err
	}
	s.logger.Debug(ctx, "alignment queued",
		logger.String("user", sub.UserID),
		logger.String("submission", sub.SubmissionID),
	)
	return Receipt{SubmissionID: sub.SubmissionID}, nil
}

// MarkerProgress is a marker with its completion percentage.
type MarkerProgress struct {
	model.Marker
	PercentComplete float64 `json:"percent_complete"`
}

// Progress is a user's current zone picture.
type Progress struct {
	model.Snapshot
	// Source is "live" when computed from stored ratings now, "snapshot"
	// when served from the last recorded snapshot.
	Source  string           `json:"source"`
	Markers []MarkerProgress `json:"markers"`
}

// Progress sources.
const (
	SourceLive     = "live"
	SourceSnapshot = "snapshot"
)

// Progress computes zones, score and highlights from the user's latest
// ratings, falling back to the last snapshot when the ratings cannot be read.
func (s *Service) Progress(ctx context.Context, user string) (Progress, error) {
	var p Progress

	ratings, err := s.store.Ratings(ctx, user)
	if err == nil {
		connections, cerr := s.store.ConnectionCount(ctx, user)
		if cerr != nil {
			s.logger.Warn(ctx, "connection count unavailable; scoring without bonus",
				logger.String("user", user), logger.Error(cerr))
			connections = 0
		}
		snap, serr := s.scorer.Score(ctx, scoring.Input{UserID: user, Ratings: ratings, Connections: connections})
		if serr != nil {
			return p, serr
		}
		p.Snapshot, p.Source = snap, SourceLive
	} else {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn(ctx, "ratings unavailable; serving last snapshot",
				logger.String("user", user), logger.Error(err))
		}
		snap, serr := s.store.LatestSnapshot(ctx, user)
		if serr != nil {
			return p, fmt.Errorf("load snapshot: %w", serr)
		}
		if snap == nil {
			return p, fmt.Errorf("progress for %s: %w", user, repository.ErrNotFound)
		}
		p.Snapshot, p.Source = *snap, SourceSnapshot
	}

	list, err := s.store.Markers(ctx, repository.MarkerFilter{OwnerID: user, ActiveOnly: true})
	if err != nil {
		s.logger.Warn(ctx, "markers unavailable", logger.String("user", user), logger.Error(err))
		list = nil
	}
	p.Markers = make([]MarkerProgress, 0, len(list))
	for _, m := range list {
		p.Markers = append(p.Markers, MarkerProgress{Marker: m, PercentComplete: markers.PercentComplete(m)})
	}
	return p, nil
}

// CreateMarker creates a marker together with its baseline update.
func (s *Service) CreateMarker(ctx context.Context, in markers.CreateInput) (model.Marker, error) {
	if strings.TrimSpace(in.OwnerID) == "" || strings.TrimSpace(in.Label) == "" {
		return model.Marker{}, fmt.Errorf("%w: owner and label are required", ErrInvalidInput)
	}
	m, err := s.tracker.Create(in)
	if err != nil {
		return model.Marker{}, err
	}
	if err := s.store.CreateMarker(ctx, m); err != nil {
		return model.Marker{}, fmt.Errorf("create marker: %w", err)
	}
	metrics.RecordMarkerCreated()
	return m, nil
}

// MarkerUpdateInput carries a new marker score. RequestID, when set, makes
// the call idempotent.
type MarkerUpdateInput struct {
	MarkerID  string
	Score     int
	Source    model.UpdateSource
	Note      string
	RequestID string
}

// RecordMarkerUpdate appends a score to a marker. The bool result reports
// whether the call was a replay of an earlier request id.
func (s *Service) RecordMarkerUpdate(ctx context.Context, in MarkerUpdateInput) (model.Marker, bool, error) {
	key := ""
	if in.RequestID != "" {
		key = "marker-update:" + in.RequestID
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordIdempotentReplay()
			m, err := s.store.Marker(ctx, in.MarkerID)
			return m, true, err
		}
	}

	m, err := s.recordMarkerUpdate(ctx, in)
	if err != nil && key != "" {
		s.deduper.Unrecord(ctx, key)
	}
	return m, false, err
}

func (s *Service) recordMarkerUpdate(ctx context.Context, in MarkerUpdateInput) (model.Marker, error) {
	m, err := s.store.Marker(ctx, in.MarkerID)
	if err != nil {
		return model.Marker{}, err
	}
	next, u, err := s.tracker.RecordUpdate(m, in.Score, in.Source, in.Note)
	if err != nil {
		return m, err
	}
	if err := s.store.AppendMarkerUpdate(ctx, m.ID, u); err != nil {
		return m, fmt.Errorf("append marker update: %w", err)
	}
	metrics.RecordMarkerUpdate(string(u.Source))
	return next, nil
}

// RetireMarker soft-retires a marker; its history is kept.
func (s *Service) RetireMarker(ctx context.Context, id string) (model.Marker, error) {
	m, err := s.store.Marker(ctx, id)
	if err != nil {
		return model.Marker{}, err
	}
	m = s.tracker.Retire(m)
	if err := s.store.SetMarkerActive(ctx, id, false); err != nil {
		return model.Marker{}, fmt.Errorf("retire marker: %w", err)
	}
	return m, nil
}

// Markers lists markers matching f.
func (s *Service) Markers(ctx context.Context, f repository.MarkerFilter) ([]model.Marker, error) {
	return s.store.Markers(ctx, f)
}

// Marker returns one marker with its full history.
func (s *Service) Marker(ctx context.Context, id string) (model.Marker, error) {
	return s.store.Marker(ctx, id)
}

// StartEngagement opens a new engagement. A client may have only one open
// engagement at a time.
func (s *Service) StartEngagement(ctx context.Context, clientID, coachID string) (model.Engagement, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(coachID) == "" {
		return model.Engagement{}, fmt.Errorf("%w: client and coach are required", ErrInvalidInput)
	}
	cur, err := s.store.EngagementForClient(ctx, clientID)
	switch {
	case err == nil && cur.Status != model.StatusCompleted:
		return cur, fmt.Errorf("%w: client %s already has engagement %s", repository.ErrConflict, clientID, cur.ID)
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return model.Engagement{}, err
	}

	e := lifecycle.Start(clientID, coachID, s.now())
	if err := s.store.SaveEngagement(ctx, e); err != nil {
		return model.Engagement{}, fmt.Errorf("save engagement: %w", err)
	}
	return e, nil
}

// Engagement returns one engagement.
func (s *Service) Engagement(ctx context.Context, id string) (model.Engagement, error) {
	return s.store.Engagement(ctx, id)
}

// AdvanceWeek moves an active engagement forward one week.
func (s *Service) AdvanceWeek(ctx context.Context, id string) (model.Engagement, error) {
	return s.transition(ctx, id, lifecycle.OpAdvance, lifecycle.AdvanceWeek)
}

// TogglePause pauses an active engagement or resumes a paused one.
func (s *Service) TogglePause(ctx context.Context, id string) (model.Engagement, error) {
	return s.transition(ctx, id, lifecycle.OpToggle, lifecycle.TogglePause)
}

// CompleteEngagement ends an engagement.
func (s *Service) CompleteEngagement(ctx context.Context, id string) (model.Engagement, error) {
	return s.transition(ctx, id, lifecycle.OpComplete, func(e model.Engagement) (model.Engagement, error) {
		return lifecycle.Complete(e, s.now())
	})
}

func (s *Service) transition(ctx context.Context, id, op string, apply func(model.Engagement) (model.Engagement, error)) (model.Engagement, error) {
	e, err := s.store.Engagement(ctx, id)
	if err != nil {
		return model.Engagement{}, err
	}
	next, err := apply(e)
	if err != nil {
		metrics.RecordLifecycleTransition(op, "rejected")
		return e, err
	}
	if err := s.store.SaveEngagement(ctx, next); err != nil {
		return e, fmt.Errorf("save engagement: %w", err)
	}
	metrics.RecordLifecycleTransition(op, "applied")
	s.logger.Info(ctx, "engagement transition",
		logger.String("engagement", id),
		logger.String("op", op),
		logger.Int("week", next.Week),
		logger.String("status", string(next.Status)),
	)
	return next, nil
}

// Circle resolves a user's circle.
func (s *Service) Circle(ctx context.Context, user string, mode circle.Mode) (circle.Circle, error) {
	return s.resolver.Resolve(ctx, user, mode)
}

// Feed builds a user's feed.
func (s *Service) Feed(ctx context.Context, user string, opts feed.Options) (feed.Feed, error) {
	return s.aggregator.Build(ctx, user, opts)
}

// FeedSession returns a session bound to no viewer, for callers that switch
// between users and must never see a previous viewer's results.
func (s *Service) FeedSession() *feed.Session {
	return feed.NewSession(s.aggregator)
}

// PutEdge records or replaces a visibility edge.
func (s *Service) PutEdge(ctx context.Context, e model.VisibilityEdge) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	return s.store.PutEdge(ctx, e)
}

// PutContent records a shareable content item.
func (s *Service) PutContent(ctx context.Context, c model.ShareableContent) error {
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown content kind %q", ErrInvalidInput, c.Kind)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	return s.store.PutContent(ctx, c)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.deduper.Size(),
		"feedLimit":   s.feedLimit,
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(context.Background())
		stats["processed"] = s.pool.Processed()
		stats["failed"] = s.pool.Failed()
	}
	return stats
}
