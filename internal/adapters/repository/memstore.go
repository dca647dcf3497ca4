package repository

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/okian/fires/internal/domain/circle"
	"github.com/okian/fires/internal/domain/model"
)

type edgeKey struct{ from, to string }

// MemStore is an in-memory Store. Reads return copies so callers can never
// mutate stored history.
type MemStore struct {
	mu          sync.RWMutex
	ratings     map[string]model.AlignmentSubmission
	snapshots   map[string]model.Snapshot
	markers     map[string]model.Marker
	markerOrder []string
	engagements map[string]model.Engagement
	edges       map[edgeKey]model.VisibilityEdge
	content     map[string]model.ShareableContent
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		ratings:     make(map[string]model.AlignmentSubmission),
		snapshots:   make(map[string]model.Snapshot),
		markers:     make(map[string]model.Marker),
		engagements: make(map[string]model.Engagement),
		edges:       make(map[edgeKey]model.VisibilityEdge),
		content:     make(map[string]model.ShareableContent),
	}
}

func (s *MemStore) Ratings(ctx context.Context, user string) (model.Ratings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.ratings[user]
	if !ok {
		return model.Ratings{}, ErrNotFound
	}
	return sub.Ratings, nil
}

func (s *MemStore) SaveRatings(ctx context.Context, sub model.AlignmentSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.ratings[sub.UserID]; ok && prev.SubmittedAt.After(sub.SubmittedAt) {
		return nil
	}
	s.ratings[sub.UserID] = sub
	return nil
}

func (s *MemStore) LatestSnapshot(ctx context.Context, user string) (*model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[user]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *MemStore) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.snapshots[snap.UserID]; ok && prev.RecordedAt.After(snap.RecordedAt) {
		return nil
	}
	s.snapshots[snap.UserID] = snap
	return nil
}

func (s *MemStore) ConnectionCount(ctx context.Context, user string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for k, e := range s.edges {
		if e.Muted() || k.from == k.to {
			continue
		}
		switch user {
		case k.from:
			seen[k.to] = struct{}{}
		case k.to:
			seen[k.from] = struct{}{}
		}
	}
	return len(seen), nil
}

func (s *MemStore) Markers(ctx context.Context, f MarkerFilter) ([]model.Marker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Marker{}
	for _, id := range s.markerOrder {
		m := s.markers[id]
		if f.OwnerID != "" && m.OwnerID != f.OwnerID {
			continue
		}
		if f.EngagementID != "" && m.EngagementID != f.EngagementID {
			continue
		}
		if f.ActiveOnly && !m.Active {
			continue
		}
		out = append(out, cloneMarker(m))
	}
	return out, nil
}

func (s *MemStore) Marker(ctx context.Context, id string) (model.Marker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markers[id]
	if !ok {
		return model.Marker{}, ErrNotFound
	}
	return cloneMarker(m), nil
}

func (s *MemStore) CreateMarker(ctx context.Context, m model.Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.markers[m.ID]; exists {
		return ErrConflict
	}
	s.markers[m.ID] = cloneMarker(m)
	s.markerOrder = append(s.markerOrder, m.ID)
	return nil
}

func (s *MemStore) AppendMarkerUpdate(ctx context.Context, markerID string, u model.MarkerUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markers[markerID]
	if !ok || !m.Active {
		return ErrNotFound
	}
	m.Updates = append(slices.Clip(m.Updates), u)
	m.Current = u.Score
	s.markers[markerID] = m
	return nil
}

func (s *MemStore) SetMarkerActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markers[id]
	if !ok {
		return ErrNotFound
	}
	m.Active = active
	s.markers[id] = m
	return nil
}

func (s *MemStore) Engagement(ctx context.Context, id string) (model.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.engagements[id]
	if !ok {
		return model.Engagement{}, ErrNotFound
	}
	return e, nil
}

func (s *MemStore) EngagementForClient(ctx context.Context, clientID string) (model.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  model.Engagement
		found bool
	)
	for _, e := range s.engagements {
		if e.ClientID != clientID {
			continue
		}
		if !found || e.StartDate.After(best.StartDate) || (e.StartDate.Equal(best.StartDate) && e.ID > best.ID) {
			best, found = e, true
		}
	}
	if !found {
		return model.Engagement{}, ErrNotFound
	}
	return best, nil
}

func (s *MemStore) SaveEngagement(ctx context.Context, e model.Engagement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engagements[e.ID] = e
	return nil
}

func (s *MemStore) Edges(ctx context.Context, user string, dir circle.Direction) ([]model.VisibilityEdge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.VisibilityEdge
	for k, e := range s.edges {
		if (dir == circle.Outgoing && k.from == user) || (dir == circle.Incoming && k.to == user) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FromUser != out[j].FromUser {
			return out[i].FromUser < out[j].FromUser
		}
		return out[i].ToUser < out[j].ToUser
	})
	return out, nil
}

func (s *MemStore) PutEdge(ctx context.Context, e model.VisibilityEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[edgeKey{from: e.FromUser, to: e.ToUser}] = e
	return nil
}

func (s *MemStore) ShareableContent(ctx context.Context, kind model.ContentKind, authors []string) ([]model.ShareableContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(authors))
	for _, a := range authors {
		want[a] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ShareableContent
	for _, c := range s.content {
		if c.Kind != kind || !c.Visible() {
			continue
		}
		if _, ok := want[c.AuthorID]; !ok {
			continue
		}
		c.Dimensions = slices.Clone(c.Dimensions)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) PutContent(ctx context.Context, c model.ShareableContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Dimensions = slices.Clone(c.Dimensions)
	s.content[c.ID] = c
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemStore) Close() error { return nil }

func cloneMarker(m model.Marker) model.Marker {
	m.Updates = slices.Clone(m.Updates)
	return m
}
