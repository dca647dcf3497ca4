// Package markers tracks behavioral "more/less" markers against a
// baseline/target band with an append-only score history.
package markers

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/okian/fires/internal/domain/model"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithClock sets the time source used to stamp updates.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithIDGenerator sets the id source for markers and updates.
func WithIDGenerator(next func() string) Option {
	return func(t *Tracker) {
		if next != nil {
			t.newID = next
		}
	}
}

// Tracker creates markers and appends scores to them. It holds no marker
// state; every call returns a new value and persistence is the caller's job.
type Tracker struct {
	now   func() time.Time
	newID func() string
}

// NewTracker creates a tracker with configuration options.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CreateInput carries the fields for a new marker.
type CreateInput struct {
	OwnerID      string
	EngagementID string
	ConnectionID string
	Label        string
	Direction    model.Direction
	Baseline     int
	Target       int
}

// Clamp pins a marker score to [1,10].
func Clamp(score int) int {
	if score < model.MarkerMin {
		return model.MarkerMin
	}
	if score > model.MarkerMax {
		return model.MarkerMax
	}
	return score
}

// Create builds an active marker whose current score is its baseline, with
// the initial baseline update already appended.
func (t *Tracker) Create(in CreateInput) (model.Marker, error) {
	if !in.Direction.Valid() {
		return model.Marker{}, fmt.Errorf("%w: %q", ErrInvalidDirection, in.Direction)
	}

	now := t.now().UTC()
	baseline := Clamp(in.Baseline)
	m := model.Marker{
		ID:           t.newID(),
		OwnerID:      in.OwnerID,
		EngagementID: in.EngagementID,
		ConnectionID: in.ConnectionID,
		Label:        in.Label,
		Direction:    in.Direction,
		Baseline:     baseline,
		Target:       Clamp(in.Target),
		Current:      baseline,
		Active:       true,
		CreatedAt:    now,
	}
	m.Updates = []model.MarkerUpdate{{
		ID:         t.newID(),
		MarkerID:   m.ID,
		Score:      baseline,
		Source:     model.SourceBaseline,
		RecordedAt: now,
	}}
	return m, nil
}

// RecordUpdate appends a score to m and makes it current. The returned
// update is the appended entry. A retired marker is returned unchanged.
func (t *Tracker) RecordUpdate(m model.Marker, score int, source model.UpdateSource, note string) (model.Marker, model.MarkerUpdate, error) {
	if !m.Active {
		return m, model.MarkerUpdate{}, fmt.Errorf("%w: %s", ErrMarkerRetired, m.ID)
	}
	if source == "" {
		source = model.SourceClient
	}

	u := model.MarkerUpdate{
		ID:         t.newID(),
		MarkerID:   m.ID,
		Score:      Clamp(score),
		Source:     source,
		Note:       note,
		RecordedAt: t.now().UTC(),
	}

	// Copy so the caller's history slice is never shared with the result.
	updates := make([]model.MarkerUpdate, len(m.Updates), len(m.Updates)+1)
	copy(updates, m.Updates)
	m.Updates = append(updates, u)
	m.Current = u.Score
	return m, u, nil
}

// Retire soft-retires the marker. History is kept.
func (t *Tracker) Retire(m model.Marker) model.Marker {
	m.Active = false
	return m
}

// PercentComplete reports progress from baseline toward target in [0,100].
// A zero-width band counts as already at target.
func PercentComplete(m model.Marker) float64 {
	if m.Target == m.Baseline {
		return 100
	}
	pct := float64(m.Current-m.Baseline) / float64(m.Target-m.Baseline) * 100
	return math.Max(0, math.Min(100, pct))
}

// Recent returns at most n updates, newest first, for display. Stored
// history is untouched.
func Recent(m model.Marker, n int) []model.MarkerUpdate {
	if n <= 0 || len(m.Updates) == 0 {
		return nil
	}
	if n > len(m.Updates) {
		n = len(m.Updates)
	}
	out := make([]model.MarkerUpdate, 0, n)
	for i := len(m.Updates) - 1; i >= len(m.Updates)-n; i-- {
		out = append(out, m.Updates[i])
	}
	return out
}
