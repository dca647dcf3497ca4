package feed_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	"github.com/okian/fires/internal/domain/circle"
	"github.com/okian/fires/internal/domain/feed"
	"github.com/okian/fires/internal/domain/model"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeCircles struct {
	members map[string][]string
	err     error
}

func (f *fakeCircles) Resolve(_ context.Context, user string, _ circle.Mode) (circle.Circle, error) {
	if f.err != nil {
		return circle.Circle{}, f.err
	}
	c := circle.Circle{UserID: user}
	for _, id := range f.members[user] {
		c.Members = append(c.Members, circle.Member{UserID: id})
	}
	return c, nil
}

type fakeSource struct {
	mu      sync.Mutex
	records []model.ShareableContent
	fail    map[model.ContentKind]error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeSource) ShareableContent(ctx context.Context, kind model.ContentKind, authors []string) ([]model.ShareableContent, error) {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[kind]; err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(authors))
	for _, a := range authors {
		want[a] = true
	}
	var out []model.ShareableContent
	for _, r := range f.records {
		if r.Kind == kind && want[r.AuthorID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func rec(id string, kind model.ContentKind, author string, minutes int, shareable bool) model.ShareableContent {
	return model.ShareableContent{
		ID:        id,
		Kind:      kind,
		AuthorID:  author,
		Body:      "body " + id,
		Shareable: shareable,
		CreatedAt: base.Add(time.Duration(minutes) * time.Minute),
	}
}

func ids(items []model.FeedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestAggregator_Build(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given an aggregator over a circle and a content source", t, func() {
		circles := &fakeCircles{members: map[string][]string{"me": {"ann", "bob"}}}
		src := &fakeSource{records: []model.ShareableContent{
			rec("p1", model.KindPriority, "ann", 5, true),
			rec("p2", model.KindPriority, "bob", 6, false),
			rec("s1", model.KindShare, "bob", 7, false),
			rec("s2", model.KindShare, "me", 1, false),
			rec("r1", model.KindProof, "me", 2, true),
			rec("x1", model.KindPrediction, "zed", 9, true),
		}}
		agg := feed.NewAggregator(circles, src)
		ctx := context.Background()

		Convey("When building with circle and own content", func() {
			f, err := agg.Build(ctx, "me", feed.Options{FilterByCircle: true, IncludeOwn: true})

			Convey("Then opt-in kinds need the shareable flag and strangers are excluded", func() {
				So(err, ShouldBeNil)
				So(ids(f.Items), ShouldResemble, []string{"s1", "p1", "r1", "s2"})
			})

			Convey("And own items are tagged", func() {
				for _, it := range f.Items {
					So(it.IsOwn, ShouldEqual, it.AuthorID == "me")
				}
			})
		})

		Convey("When building own content only", func() {
			f, err := agg.Build(ctx, "me", feed.Options{FilterByCircle: false, IncludeOwn: true})

			Convey("Then only the caller's content is returned", func() {
				So(err, ShouldBeNil)
				So(ids(f.Items), ShouldResemble, []string{"r1", "s2"})
				for _, it := range f.Items {
					So(it.IsOwn, ShouldBeTrue)
				}
			})
		})

		Convey("When neither circle nor own content is requested", func() {
			f, err := agg.Build(ctx, "me", feed.Options{})

			Convey("Then the feed is empty", func() {
				So(err, ShouldBeNil)
				So(f.Items, ShouldBeEmpty)
			})
		})

		Convey("When the same id appears under two kinds", func() {
			dup := rec("p1", model.KindShare, "ann", 30, true)
			dup.Body = "later copy"
			src.records = append(src.records, dup)
			f, err := agg.Build(ctx, "me", feed.Options{FilterByCircle: true})

			Convey("Then it appears once and the earlier kind wins", func() {
				So(err, ShouldBeNil)
				count := 0
				for _, it := range f.Items {
					if it.ID == "p1" {
						count++
						So(it.Kind, ShouldEqual, model.KindPriority)
					}
				}
				So(count, ShouldEqual, 1)
			})
		})

		Convey("When timestamps tie", func() {
			src.records = []model.ShareableContent{
				rec("b", model.KindShare, "ann", 3, false),
				rec("a", model.KindShare, "bob", 3, false),
			}
			f, _ := agg.Build(ctx, "me", feed.Options{FilterByCircle: true})

			Convey("Then ids break the tie", func() {
				So(ids(f.Items), ShouldResemble, []string{"a", "b"})
			})
		})

		Convey("When there is more content than the limit", func() {
			src.records = nil
			for i := 0; i < 70; i++ {
				src.records = append(src.records, rec(fmt.Sprintf("s%02d", i), model.KindShare, "ann", i, false))
			}
			f, err := agg.Build(ctx, "me", feed.Options{FilterByCircle: true})

			Convey("Then the newest fifty are kept in order", func() {
				So(err, ShouldBeNil)
				So(f.Items, ShouldHaveLength, feed.DefaultLimit)
				So(f.Items[0].ID, ShouldEqual, "s69")
				for i := 1; i < len(f.Items); i++ {
					So(f.Items[i-1].Timestamp.Before(f.Items[i].Timestamp), ShouldBeFalse)
				}
			})

			Convey("And a custom limit is honoured", func() {
				small := feed.NewAggregator(circles, src, feed.WithLimit(5))
				f, _ := small.Build(ctx, "me", feed.Options{FilterByCircle: true})
				So(f.Items, ShouldHaveLength, 5)
				So(small.Limit(), ShouldEqual, 5)
			})
		})

		Convey("When one kind fails to load", func() {
			src.fail = map[model.ContentKind]error{model.KindProof: errors.New("timeout")}
			f, err := agg.Build(ctx, "me", feed.Options{FilterByCircle: true, IncludeOwn: true})

			Convey("Then the other kinds still arrive and the failure is reported", func() {
				So(err, ShouldBeNil)
				So(ids(f.Items), ShouldResemble, []string{"s1", "p1", "s2"})
				So(f.Omitted, ShouldResemble, []model.ContentKind{model.KindProof})
			})
		})

		Convey("When the circle cannot be resolved", func() {
			circles.err = context.Canceled
			_, err := agg.Build(ctx, "me", feed.Options{FilterByCircle: true})

			Convey("Then the build fails", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When the caller cancels", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := agg.Build(cctx, "me", feed.Options{IncludeOwn: true})

			Convey("Then the build fails with the cancellation", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given a feed session", t, func() {
		src := &fakeSource{records: []model.ShareableContent{
			rec("a1", model.KindShare, "alice", 1, false),
			rec("b1", model.KindShare, "bob", 2, false),
		}}
		agg := feed.NewAggregator(&fakeCircles{}, src)
		s := feed.NewSession(agg)
		defer s.Close()
		ctx := context.Background()

		Convey("When no viewer is bound", func() {
			_, err := s.Build(ctx, feed.Options{IncludeOwn: true})

			Convey("Then the build is refused", func() {
				So(errors.Is(err, feed.ErrNoViewer), ShouldBeTrue)
			})
		})

		Convey("When a viewer is bound", func() {
			s.Switch("alice")
			f, err := s.Build(ctx, feed.Options{IncludeOwn: true})

			Convey("Then the feed is theirs", func() {
				So(err, ShouldBeNil)
				So(ids(f.Items), ShouldResemble, []string{"a1"})
				So(s.Viewer(), ShouldEqual, "alice")
			})
		})

		Convey("When the viewer switches during a build", func() {
			src.block = make(chan struct{})
			src.started = make(chan struct{}, 1)
			s.Switch("alice")

			done := make(chan error, 1)
			go func() {
				_, err := s.Build(ctx, feed.Options{IncludeOwn: true})
				done <- err
			}()
			<-src.started
			s.Switch("bob")
			err := <-done
			close(src.block)

			Convey("Then the stale build is discarded", func() {
				So(errors.Is(err, feed.ErrStale), ShouldBeTrue)
			})

			Convey("And the next build belongs to the new viewer", func() {
				f, err := s.Build(ctx, feed.Options{IncludeOwn: true})
				So(err, ShouldBeNil)
				So(ids(f.Items), ShouldResemble, []string{"b1"})
			})
		})
	})
}
