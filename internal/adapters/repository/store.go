// Package repository persists engine records behind query interfaces.
package repository

import (
	"context"

	"github.com/okian/fires/internal/domain/circle"
	"github.com/okian/fires/internal/domain/model"
)

// AlignmentStore holds the latest self-reported ratings per user.
type AlignmentStore interface {
	// Ratings returns the most recent ratings for user, or ErrNotFound.
	Ratings(ctx context.Context, user string) (model.Ratings, error)
	SaveRatings(ctx context.Context, sub model.AlignmentSubmission) error
}

// SnapshotStore holds computed zone snapshots.
type SnapshotStore interface {
	// LatestSnapshot returns nil without error when user has none.
	LatestSnapshot(ctx context.Context, user string) (*model.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap model.Snapshot) error
}

// ConnectionCounter counts a user's unmuted connections.
type ConnectionCounter interface {
	ConnectionCount(ctx context.Context, user string) (int, error)
}

// MarkerFilter narrows a marker listing. Empty fields match everything.
type MarkerFilter struct {
	OwnerID      string
	EngagementID string
	ActiveOnly   bool
}

// MarkerStore persists markers with their append-only update history.
type MarkerStore interface {
	Markers(ctx context.Context, f MarkerFilter) ([]model.Marker, error)
	// Marker returns the marker with its full history, or ErrNotFound.
	Marker(ctx context.Context, id string) (model.Marker, error)
	// CreateMarker writes the marker and its initial update atomically.
	CreateMarker(ctx context.Context, m model.Marker) error
	// AppendMarkerUpdate appends u and moves the marker's current score
	// atomically. Returns ErrNotFound for an unknown or retired marker.
	AppendMarkerUpdate(ctx context.Context, markerID string, u model.MarkerUpdate) error
	SetMarkerActive(ctx context.Context, id string, active bool) error
}

// EngagementStore persists engagements. Phase is never stored.
type EngagementStore interface {
	Engagement(ctx context.Context, id string) (model.Engagement, error)
	// EngagementForClient returns the client's most recent engagement, or ErrNotFound.
	EngagementForClient(ctx context.Context, clientID string) (model.Engagement, error)
	SaveEngagement(ctx context.Context, e model.Engagement) error
}

// EdgeStore answers directional visibility queries.
type EdgeStore interface {
	circle.Adjacency
	// PutEdge inserts or replaces the edge between e.FromUser and e.ToUser.
	PutEdge(ctx context.Context, e model.VisibilityEdge) error
}

// ContentStore serves shareable content by kind and author.
type ContentStore interface {
	// ShareableContent returns records of kind by any of authors. Opt-in
	// kinds are limited to records flagged shareable.
	ShareableContent(ctx context.Context, kind model.ContentKind, authors []string) ([]model.ShareableContent, error)
	PutContent(ctx context.Context, c model.ShareableContent) error
}

// Store is the full persistence surface used by the service.
type Store interface {
	AlignmentStore
	SnapshotStore
	ConnectionCounter
	MarkerStore
	EngagementStore
	EdgeStore
	ContentStore
	Close() error
}
