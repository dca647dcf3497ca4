package circle

import (
	"context"
	"fmt"

	"github.com/okian/fires/internal/domain/model"
	"github.com/okian/fires/pkg/logger"
	"github.com/okian/fires/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/okian/fires/internal/domain/circle"

// Adjacency answers directional edge queries for one user. It can be backed
// by a relational table today and an indexed adjacency store later.
type Adjacency interface {
	Edges(ctx context.Context, user string, dir Direction) ([]model.VisibilityEdge, error)
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithLogger sets a custom logger for the resolver.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver resolves circles through an Adjacency.
type Resolver struct {
	adj    Adjacency
	logger logger.Logger
	tracer trace.Tracer
}

// NewResolver creates a resolver over adj.
func NewResolver(adj Adjacency, opts ...Option) *Resolver {
	r := &Resolver{
		adj:    adj,
		logger: logger.Nop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve queries both edge directions concurrently and merges them. A
// failing direction is logged and the circle is built from the other one
// with Partial set. Only cancellation of ctx fails the call.
func (r *Resolver) Resolve(ctx context.Context, user string, mode Mode) (Circle, error) {
	ctx, span := r.tracer.Start(ctx, "circle.resolve", trace.WithAttributes(attribute.String("user", user)))
	defer span.End()

	dirs := [2]Direction{Outgoing, Incoming}
	var (
		results [2][]model.VisibilityEdge
		errs    [2]error
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, dir := range dirs {
		g.Go(func() error {
			results[i], errs[i] = r.adj.Edges(gctx, user, dir)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return Circle{UserID: user}, fmt.Errorf("resolve circle: %w", err)
	}

	partial := false
	edges := make([]model.VisibilityEdge, 0, len(results[0])+len(results[1]))
	for i, dir := range dirs {
		if errs[i] != nil {
			partial = true
			span.RecordError(errs[i])
			metrics.RecordCircleSourceFailure(dir.String())
			r.logger.Warn(ctx, "edge query failed; resolving from remaining direction",
				logger.String("user", user),
				logger.String("direction", dir.String()),
				logger.Error(errs[i]),
			)
			continue
		}
		edges = append(edges, results[i]...)
	}

	c := ResolveEdges(user, edges, mode)
	c.Partial = partial
	span.SetAttributes(attribute.Int("members", c.Len()), attribute.Bool("partial", partial))
	metrics.RecordCircleResolve(c.Len())
	return c, nil
}
