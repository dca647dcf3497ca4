// Package feed merges shareable content from a user's circle into a ranked,
// size-bounded feed.
package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okian/fires/internal/domain/circle"
	"github.com/okian/fires/internal/domain/dedupe"
	"github.com/okian/fires/internal/domain/model"
	"github.com/okian/fires/pkg/logger"
	"github.com/okian/fires/pkg/metrics"
)

const (
	// DefaultLimit is the maximum number of items in a feed.
	DefaultLimit = 50

	tracerName = "github.com/okian/fires/internal/domain/feed"
)

// Source fetches content of one kind written by any of authors.
type Source interface {
	ShareableContent(ctx context.Context, kind model.ContentKind, authors []string) ([]model.ShareableContent, error)
}

// CircleResolver resolves the circle a feed is built from.
type CircleResolver interface {
	Resolve(ctx context.Context, user string, mode circle.Mode) (circle.Circle, error)
}

// Options selects whose content a feed includes.
type Options struct {
	FilterByCircle bool `json:"circle"`
	IncludeOwn     bool `json:"own"`
}

// Feed is a built feed. Omitted lists kinds whose fetch failed.
type Feed struct {
	UserID  string              `json:"user_id"`
	Items   []model.FeedItem    `json:"items"`
	Omitted []model.ContentKind `json:"omitted,omitempty"`
	Partial bool                `json:"partial,omitempty"`
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithLogger sets a custom logger for the aggregator.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithLimit caps the number of items returned. Non-positive values keep the default.
func WithLimit(limit int) Option {
	return func(a *Aggregator) {
		if limit > 0 {
			a.limit = limit
		}
	}
}

// Aggregator builds feeds.
type Aggregator struct {
	circles CircleResolver
	source  Source
	limit   int
	logger  logger.Logger
	tracer  trace.Tracer
}

// NewAggregator creates an aggregator over the given circle resolver and content source.
func NewAggregator(circles CircleResolver, source Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		circles: circles,
		source:  source,
		limit:   DefaultLimit,
		logger:  logger.Nop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Limit returns the configured item cap.
func (a *Aggregator) Limit() int { return a.limit }

// Build assembles the feed for user. Kinds are fetched concurrently; a
// failing kind is omitted rather than failing the build.
func (a *Aggregator) Build(ctx context.Context, user string, opts Options) (Feed, error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "feed.build", trace.WithAttributes(
		attribute.String("user", user),
		attribute.Bool("circle", opts.FilterByCircle),
		attribute.Bool("own", opts.IncludeOwn),
	))
	defer span.End()

	out := Feed{UserID: user, Items: []model.FeedItem{}}

	var authors []string
	if opts.FilterByCircle {
		c, err := a.circles.Resolve(ctx, user, circle.ModeFeed)
		if err != nil {
			span.RecordError(err)
			return out, fmt.Errorf("build feed: %w", err)
		}
		out.Partial = c.Partial
		authors = c.IDs()
	}
	if opts.IncludeOwn {
		authors = append(authors, user)
	}
	if len(authors) == 0 {
		return out, nil
	}

	kinds := model.ContentKinds
	results := make([][]model.ShareableContent, len(kinds))
	errs := make([]error, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			results[i], errs[i] = a.source.ShareableContent(gctx, kind, authors)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return out, fmt.Errorf("build feed: %w", err)
	}

	allowed := make(map[string]struct{}, len(authors))
	for _, id := range authors {
		allowed[id] = struct{}{}
	}

	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	for i, kind := range kinds {
		if errs[i] != nil {
			out.Omitted = append(out.Omitted, kind)
			span.RecordError(errs[i])
			metrics.RecordFeedSourceFailure(string(kind))
			a.logger.Warn(ctx, "content fetch failed; omitting kind",
				logger.String("user", user),
				logger.String("kind", string(kind)),
				logger.Error(errs[i]),
			)
			continue
		}
		for _, rec := range results[i] {
			if _, ok := allowed[rec.AuthorID]; !ok || !rec.Visible() {
				continue
			}
			if seen.SeenAndRecord(ctx, rec.ID) {
				continue
			}
			out.Items = append(out.Items, toItem(rec, user))
		}
	}

	Sort(out.Items)
	if len(out.Items) > a.limit {
		out.Items = out.Items[:a.limit]
	}

	span.SetAttributes(attribute.Int("items", len(out.Items)), attribute.Int("omitted", len(out.Omitted)))
	metrics.RecordFeedBuild(float64(time.Since(start).Microseconds())/1000, len(out.Items))
	return out, nil
}

// Sort orders items newest first, breaking timestamp ties by id.
func Sort(items []model.FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.After(items[j].Timestamp)
		}
		return items[i].ID < items[j].ID
	})
}

func toItem(rec model.ShareableContent, viewer string) model.FeedItem {
	return model.FeedItem{
		ID:          rec.ID,
		Kind:        rec.Kind,
		AuthorID:    rec.AuthorID,
		RecipientID: rec.RecipientID,
		Body:        rec.Body,
		Dimensions:  rec.Dimensions,
		Timestamp:   rec.CreatedAt,
		IsOwn:       rec.AuthorID == viewer,
	}
}
