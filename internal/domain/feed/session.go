package feed

import (
	"context"
	"sync"

	"github.com/okian/fires/pkg/metrics"
)

// Session binds an aggregator to the current viewer. Switching viewers
// cancels builds started for the previous one and their results are
// reported as ErrStale instead of being returned.
type Session struct {
	agg *Aggregator

	mu     sync.Mutex
	user   string
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates a session with no viewer bound.
func NewSession(agg *Aggregator) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{agg: agg, ctx: ctx, cancel: cancel}
}

// Switch binds the session to user. A switch to the current viewer is a no-op.
func (s *Session) Switch(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user == s.user && s.gen > 0 {
		return
	}
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.user = user
	s.gen++
}

// Viewer returns the bound user.
func (s *Session) Viewer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Close cancels any in-flight build.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
}

// Build builds the feed for the bound viewer.
func (s *Session) Build(ctx context.Context, opts Options) (Feed, error) {
	s.mu.Lock()
	user, gen, genCtx := s.user, s.gen, s.ctx
	s.mu.Unlock()

	if gen == 0 {
		return Feed{}, ErrNoViewer
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(genCtx, cancel)
	defer stop()

	f, err := s.agg.Build(ctx, user, opts)

	s.mu.Lock()
	current := s.gen
	s.mu.Unlock()
	if current != gen {
		metrics.RecordFeedStaleDiscard()
		return Feed{}, ErrStale
	}
	return f, err
}
