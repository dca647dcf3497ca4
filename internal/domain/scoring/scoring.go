// Package scoring turns alignment ratings and a connection count into a
// predictability score and a full zone snapshot.
package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/fires/internal/domain/model"
	"github.com/okian/fires/internal/domain/zones"
)

// Default scoring configuration constants.
const (
	defaultBonusPerConnection = 2
	defaultBonusCap           = 16
	minScore                  = 0
	maxScore                  = 100
)

// Predictability is the score with the default connection bonus of 2 points
// per connection, capped at 16.
func Predictability(r model.Ratings, connections int) int {
	return predictability(r, connections, defaultBonusPerConnection, defaultBonusCap)
}

func predictability(r model.Ratings, connections, perConnection, bonusCap int) int {
	var sum float64
	for _, rating := range r {
		sum += zones.ClampRating(rating)
	}
	avg := sum / float64(len(r))
	base := (avg - 1) / 3 * 100

	if connections < 0 {
		connections = 0
	}
	bonus := connections * perConnection
	if bonus > bonusCap {
		bonus = bonusCap
	}

	total := int(math.Round(base + float64(bonus)))
	if total < minScore {
		return minScore
	}
	if total > maxScore {
		return maxScore
	}
	return total
}

// Option applies a configuration option to the SnapshotScorer.
type Option func(*SnapshotScorer)

// WithConnectionBonus sets the points granted per connection and their cap.
func WithConnectionBonus(perConnection, bonusCap int) Option {
	return func(s *SnapshotScorer) {
		if perConnection >= 0 && bonusCap >= 0 {
			s.perConnection = perConnection
			s.bonusCap = bonusCap
		}
	}
}

// WithClock sets the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *SnapshotScorer) {
		if now != nil {
			s.now = now
		}
	}
}

// Input abstracts the fields needed to score a user.
type Input struct {
	UserID      string
	Ratings     model.Ratings
	Connections int
}

// Scorer computes a snapshot from an input.
type Scorer interface {
	// Score computes a snapshot, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (model.Snapshot, error)
}

// SnapshotScorer implements Scorer with the zone classifier and growth-edge selector.
type SnapshotScorer struct {
	perConnection int
	bonusCap      int
	now           func() time.Time
}

// NewSnapshotScorer creates a scorer with configuration options.
func NewSnapshotScorer(opts ...Option) *SnapshotScorer {
	s := &SnapshotScorer{
		perConnection: defaultBonusPerConnection,
		bonusCap:      defaultBonusCap,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predictability scores r with this scorer's connection bonus.
func (s *SnapshotScorer) Predictability(r model.Ratings, connections int) int {
	return predictability(r, connections, s.perConnection, s.bonusCap)
}

// Score computes the full snapshot for the given input.
func (s *SnapshotScorer) Score(ctx context.Context, in Input) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, fmt.Errorf("context cancelled: %w", err)
	}

	breakdown := zones.ClassifyBreakdown(in.Ratings)
	return model.Snapshot{
		UserID:      in.UserID,
		Ratings:     in.Ratings,
		Breakdown:   breakdown,
		Score:       s.Predictability(in.Ratings, in.Connections),
		GrowthEdge:  zones.GrowthEdge(breakdown),
		Strength:    zones.Strength(breakdown),
		Connections: in.Connections,
		RecordedAt:  s.now().UTC(),
	}, nil
}
