package circle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/fires/internal/domain/circle"
	"github.com/okian/fires/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

func edge(from, to string) model.VisibilityEdge {
	return model.VisibilityEdge{FromUser: from, ToUser: to}
}

func mutedEdge(from, to string) model.VisibilityEdge {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return model.VisibilityEdge{FromUser: from, ToUser: to, MutedAt: &at}
}

func TestResolveEdges(t *testing.T) {
	Convey("Given a visibility relation", t, func() {
		Convey("When A and B see each other", func() {
			edges := []model.VisibilityEdge{edge("A", "B"), edge("B", "A")}

			Convey("Then each is in the other's circle as mutual", func() {
				a := circle.ResolveEdges("A", edges, circle.ModeFeed)
				b := circle.ResolveEdges("B", edges, circle.ModeFeed)
				So(a.IDs(), ShouldResemble, []string{"B"})
				So(b.IDs(), ShouldResemble, []string{"A"})
				So(a.Members[0].Mutual, ShouldBeTrue)
			})
		})

		Convey("When only A sees B", func() {
			edges := []model.VisibilityEdge{edge("A", "B")}

			Convey("Then membership still holds both ways", func() {
				a := circle.ResolveEdges("A", edges, circle.ModeFeed)
				b := circle.ResolveEdges("B", edges, circle.ModeFeed)
				So(a.Contains("B"), ShouldBeTrue)
				So(b.Contains("A"), ShouldBeTrue)
			})

			Convey("And directionality is kept for display", func() {
				a := circle.ResolveEdges("A", edges, circle.ModeFeed)
				b := circle.ResolveEdges("B", edges, circle.ModeFeed)
				So(a.Members[0], ShouldResemble, circle.Member{UserID: "B", Outgoing: true})
				So(b.Members[0], ShouldResemble, circle.Member{UserID: "A", Incoming: true})
			})
		})

		Convey("When there is a self edge and unrelated edges", func() {
			edges := []model.VisibilityEdge{edge("A", "A"), edge("C", "D"), edge("D", "A")}

			Convey("Then only real counterparts are members", func() {
				So(circle.ResolveEdges("A", edges, circle.ModeFeed).IDs(), ShouldResemble, []string{"D"})
			})
		})

		Convey("When an edge is muted", func() {
			edges := []model.VisibilityEdge{mutedEdge("A", "B"), edge("A", "C")}

			Convey("Then the feed circle excludes it", func() {
				So(circle.ResolveEdges("A", edges, circle.ModeFeed).IDs(), ShouldResemble, []string{"C"})
			})

			Convey("And the display circle keeps it flagged", func() {
				c := circle.ResolveEdges("A", edges, circle.ModeDisplay)
				So(c.IDs(), ShouldResemble, []string{"B", "C"})
				So(c.Members[0].Muted, ShouldBeTrue)
				So(c.Members[1].Muted, ShouldBeFalse)
			})
		})

		Convey("When members are found in any order", func() {
			edges := []model.VisibilityEdge{edge("A", "z"), edge("m", "A"), edge("A", "b")}

			Convey("Then the circle is sorted by id", func() {
				So(circle.ResolveEdges("A", edges, circle.ModeFeed).IDs(), ShouldResemble, []string{"b", "m", "z"})
			})
		})
	})
}

type fakeAdjacency struct {
	mu      sync.Mutex
	edges   []model.VisibilityEdge
	fail    map[circle.Direction]error
	block   chan struct{}
	queried []circle.Direction
}

func (f *fakeAdjacency) Edges(ctx context.Context, user string, dir circle.Direction) ([]model.VisibilityEdge, error) {
	f.mu.Lock()
	f.queried = append(f.queried, dir)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.fail[dir]; err != nil {
		return nil, err
	}
	var out []model.VisibilityEdge
	for _, e := range f.edges {
		if (dir == circle.Outgoing && e.FromUser == user) || (dir == circle.Incoming && e.ToUser == user) {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestResolver_Resolve(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given a resolver over an adjacency store", t, func() {
		adj := &fakeAdjacency{edges: []model.VisibilityEdge{
			edge("A", "B"), edge("C", "A"), mutedEdge("D", "A"), edge("B", "C"),
		}}
		r := circle.NewResolver(adj)
		ctx := context.Background()

		Convey("When resolving a feed circle", func() {
			c, err := r.Resolve(ctx, "A", circle.ModeFeed)

			Convey("Then both directions are queried and merged", func() {
				So(err, ShouldBeNil)
				So(c.IDs(), ShouldResemble, []string{"B", "C"})
				So(c.Partial, ShouldBeFalse)
				So(adj.queried, ShouldHaveLength, 2)
			})
		})

		Convey("When the incoming query fails", func() {
			adj.fail = map[circle.Direction]error{circle.Incoming: errors.New("replica down")}
			c, err := r.Resolve(ctx, "A", circle.ModeFeed)

			Convey("Then the outgoing side still resolves", func() {
				So(err, ShouldBeNil)
				So(c.Partial, ShouldBeTrue)
				So(c.IDs(), ShouldResemble, []string{"B"})
			})
		})

		Convey("When both queries fail", func() {
			adj.fail = map[circle.Direction]error{
				circle.Incoming: errors.New("down"),
				circle.Outgoing: errors.New("down"),
			}
			c, err := r.Resolve(ctx, "A", circle.ModeFeed)

			Convey("Then an empty partial circle is returned", func() {
				So(err, ShouldBeNil)
				So(c.Partial, ShouldBeTrue)
				So(c.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the caller cancels while queries are in flight", func() {
			adj.block = make(chan struct{})
			cctx, cancel := context.WithCancel(ctx)
			go func() {
				time.Sleep(10 * time.Millisecond)
				cancel()
			}()
			_, err := r.Resolve(cctx, "A", circle.ModeFeed)

			Convey("Then the resolve fails with the cancellation", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}
