package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fires/internal/adapters/repository"
	"github.com/okian/fires/internal/domain/model"
	"github.com/okian/fires/internal/domain/scoring"
	"github.com/okian/fires/pkg/logger"
)

// Writer is the subset of the store a load needs.
type Writer interface {
	PutEdge(ctx context.Context, e model.VisibilityEdge) error
	PutContent(ctx context.Context, c model.ShareableContent) error
	SaveEngagement(ctx context.Context, e model.Engagement) error
	CreateMarker(ctx context.Context, m model.Marker) error
	ConnectionCount(ctx context.Context, user string) (int, error)
	SaveRatings(ctx context.Context, sub model.AlignmentSubmission) error
	SaveSnapshot(ctx context.Context, snap model.Snapshot) error
}

// Load writes ds into w. Edges go first so snapshots see the final
// connection counts. Markers that already exist are skipped, so re-running a
// load with the same seed is harmless.
func Load(ctx context.Context, w Writer, ds Dataset, cfg Config, log logger.Logger) (Stats, error) {
	start := time.Now()
	stats := Stats{Users: len(ds.Users)}
	workers := max(cfg.Workers, 1)

	log.Info(ctx, "loading seed dataset",
		logger.Int("users", len(ds.Users)),
		logger.Int("edges", len(ds.Edges)),
		logger.Int("content", len(ds.Content)),
		logger.Int("workers", workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, e := range ds.Edges {
		g.Go(func() error { return w.PutEdge(gctx, e) })
		stats.Edges++
		if e.Muted() {
			stats.MutedEdges++
		}
	}
	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("load edges: %w", err)
	}

	scorer := scoring.NewSnapshotScorer()
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, sub := range ds.Submissions {
		g.Go(func() error {
			n, err := w.ConnectionCount(gctx, sub.UserID)
			if err != nil {
				return err
			}
			snap, err := scorer.Score(gctx, scoring.Input{UserID: sub.UserID, Ratings: sub.Ratings, Connections: n})
			if err != nil {
				return err
			}
			snap.RecordedAt = sub.SubmittedAt
			if err := w.SaveRatings(gctx, sub); err != nil {
				return err
			}
			return w.SaveSnapshot(gctx, snap)
		})
	}
	for _, c := range ds.Content {
		g.Go(func() error { return w.PutContent(gctx, c) })
	}
	for _, e := range ds.Engagements {
		g.Go(func() error { return w.SaveEngagement(gctx, e) })
	}
	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("load records: %w", err)
	}
	stats.Submissions = len(ds.Submissions)
	stats.Content = len(ds.Content)
	stats.Engagements = len(ds.Engagements)

	for _, m := range ds.Markers {
		err := w.CreateMarker(ctx, m)
		switch {
		case errors.Is(err, repository.ErrConflict):
			stats.Duplicates++
		case err != nil:
			return stats, fmt.Errorf("load marker %s: %w", m.ID, err)
		default:
			stats.Markers++
		}
	}

	stats.Duration = time.Since(start)
	log.Info(ctx, "seed dataset loaded",
		logger.Int("edges", stats.Edges),
		logger.Int("mutedEdges", stats.MutedEdges),
		logger.Int("submissions", stats.Submissions),
		logger.Int("engagements", stats.Engagements),
		logger.Int("markers", stats.Markers),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}
