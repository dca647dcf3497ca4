package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/fires/internal/adapters/mq/queue"
	"github.com/okian/fires/internal/adapters/repository"
	service "github.com/okian/fires/internal/app"
	"github.com/okian/fires/internal/domain/circle"
	"github.com/okian/fires/internal/domain/feed"
	"github.com/okian/fires/internal/domain/lifecycle"
	"github.com/okian/fires/internal/domain/markers"
	"github.com/okian/fires/internal/domain/model"
	"github.com/okian/fires/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithClock(func() time.Time { return fixedNow }),
		service.WithWorkerCount(2),
		service.WithQueueSize(64),
	}
	return service.New(append(base, opts...)...)
}

// waitForProgress polls until the async pipeline has stored a snapshot.
func waitForProgress(svc *service.Service, user string) (service.Progress, error) {
	deadline := time.Now().Add(5 * time.Second)
	for {
		p, err := svc.Progress(context.Background(), user)
		if err == nil || time.Now().After(deadline) {
			return p, err
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["feedLimit"], ShouldEqual, feed.DefaultLimit)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithFeedLimit(10),
			service.WithConnectionBonus(3, 9),
		)

		Convey("Then the options should be applied", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 50_000)
			So(stats["feedLimit"], ShouldEqual, 10)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newTestService()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["queueLength"], ShouldEqual, 0)
			})

			Convey("And starting again should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("When stopping the service", func() {
				svc.Stop()

				Convey("Then it should be marked as stopped", func() {
					So(svc.GetStats()["started"], ShouldEqual, false)
				})

				Convey("And stopping twice should not panic", func() {
					So(func() { svc.Stop() }, ShouldNotPanic)
				})
			})
			svc.Stop()
		})
	})
}

func TestService_SubmitAlignment(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := newTestService()
		ctx := context.Background()
		sub := model.AlignmentSubmission{SubmissionID: "s-1", UserID: "ana", Ratings: model.Ratings{4, 3, 2, 4, 1}}

		Convey("When submitting before Start", func() {
			_, err := svc.SubmitAlignment(ctx, sub)

			Convey("Then it should be rejected as not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When the service is started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("And the user id is missing", func() {
				_, err := svc.SubmitAlignment(ctx, model.AlignmentSubmission{Ratings: sub.Ratings})
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})

			Convey("And a submission is accepted", func() {
				r, err := svc.SubmitAlignment(ctx, sub)
				So(err, ShouldBeNil)
				So(r.SubmissionID, ShouldEqual, "s-1")
				So(r.Duplicate, ShouldBeFalse)

				Convey("Then the same id is acknowledged as a duplicate", func() {
					again, err := svc.SubmitAlignment(ctx, sub)
					So(err, ShouldBeNil)
					So(again.Duplicate, ShouldBeTrue)
				})

				Convey("Then progress eventually reflects the ratings", func() {
					p, err := waitForProgress(svc, "ana")
					So(err, ShouldBeNil)
					So(p.Score, ShouldEqual, 60)
					So(p.Source, ShouldEqual, service.SourceLive)
					So(p.GrowthEdge.Dimension, ShouldEqual, model.Strengths)
				})
			})

			Convey("And no submission id is given", func() {
				r, err := svc.SubmitAlignment(ctx, model.AlignmentSubmission{UserID: "ben", Ratings: sub.Ratings})

				Convey("Then one is assigned", func() {
					So(err, ShouldBeNil)
					So(r.SubmissionID, ShouldNotBeEmpty)
				})
			})
		})
	})

	Convey("Given a service that was started and stopped", t, func() {
		svc := newTestService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		svc.Stop()

		Convey("When submitting after Stop", func() {
			_, err := svc.SubmitAlignment(ctx, model.AlignmentSubmission{UserID: "ana"})

			Convey("Then the service reports it is not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_Progress(t *testing.T) {
	Convey("Given a service backed by a seeded store", t, func() {
		store := repository.NewMemStore()
		svc := newTestService(service.WithStore(store))
		ctx := context.Background()

		Convey("When the user has no data", func() {
			_, err := svc.Progress(ctx, "nobody")

			Convey("Then it should report not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the user has ratings, connections and a marker", func() {
			So(store.SaveRatings(ctx, model.AlignmentSubmission{UserID: "ana", Ratings: model.Ratings{4, 3, 2, 4, 1}, SubmittedAt: fixedNow}), ShouldBeNil)
			for _, friend := range []string{"ben", "cy", "dee"} {
				So(svc.PutEdge(ctx, model.VisibilityEdge{FromUser: "ana", ToUser: friend}), ShouldBeNil)
			}
			_, err := svc.CreateMarker(ctx, markers.CreateInput{OwnerID: "ana", Label: "Speak up", Direction: model.More, Baseline: 2, Target: 6})
			So(err, ShouldBeNil)

			p, err := svc.Progress(ctx, "ana")

			Convey("Then the score includes the connection bonus", func() {
				So(err, ShouldBeNil)
				So(p.Score, ShouldEqual, 66)
				So(p.Connections, ShouldEqual, 3)
			})

			Convey("Then active markers are listed with percent complete", func() {
				So(p.Markers, ShouldHaveLength, 1)
				So(p.Markers[0].PercentComplete, ShouldEqual, 0)
			})
		})

		Convey("When only a snapshot is stored", func() {
			So(store.SaveSnapshot(ctx, model.Snapshot{UserID: "eve", Score: 42, RecordedAt: fixedNow}), ShouldBeNil)
			p, err := svc.Progress(ctx, "eve")

			Convey("Then the snapshot is served", func() {
				So(err, ShouldBeNil)
				So(p.Score, ShouldEqual, 42)
				So(p.Source, ShouldEqual, service.SourceSnapshot)
			})
		})
	})
}

func TestService_Markers(t *testing.T) {
	Convey("Given a service with a marker", t, func() {
		svc := newTestService()
		ctx := context.Background()
		m, err := svc.CreateMarker(ctx, markers.CreateInput{OwnerID: "ana", Label: "Interrupt less", Direction: model.Less, Baseline: 8, Target: 4})
		So(err, ShouldBeNil)
		So(m.Current, ShouldEqual, 8)
		So(m.Updates, ShouldHaveLength, 1)

		Convey("When a marker is created without a label", func() {
			_, err := svc.CreateMarker(ctx, markers.CreateInput{OwnerID: "ana", Direction: model.More})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When an update is recorded with a request id", func() {
			in := service.MarkerUpdateInput{MarkerID: m.ID, Score: 6, Source: model.SourceCoach, RequestID: "req-1"}
			got, replayed, err := svc.RecordMarkerUpdate(ctx, in)

			Convey("Then the current score moves", func() {
				So(err, ShouldBeNil)
				So(replayed, ShouldBeFalse)
				So(got.Current, ShouldEqual, 6)
				So(markers.PercentComplete(got), ShouldEqual, 50)
			})

			Convey("Then replaying the request id does not append again", func() {
				again, replayed, err := svc.RecordMarkerUpdate(ctx, in)
				So(err, ShouldBeNil)
				So(replayed, ShouldBeTrue)
				So(again.Updates, ShouldHaveLength, 2)
			})
		})

		Convey("When an update targets an unknown marker", func() {
			in := service.MarkerUpdateInput{MarkerID: "missing", Score: 5, RequestID: "req-2"}
			_, _, err := svc.RecordMarkerUpdate(ctx, in)

			Convey("Then it should report not found and release the request id", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, replayed, _ := svc.RecordMarkerUpdate(ctx, in)
				So(replayed, ShouldBeFalse)
			})
		})

		Convey("When the marker is retired", func() {
			retired, err := svc.RetireMarker(ctx, m.ID)
			So(err, ShouldBeNil)
			So(retired.Active, ShouldBeFalse)

			Convey("Then it no longer appears among active markers", func() {
				list, err := svc.Markers(ctx, repository.MarkerFilter{OwnerID: "ana", ActiveOnly: true})
				So(err, ShouldBeNil)
				So(list, ShouldBeEmpty)
			})

			Convey("Then further updates are rejected", func() {
				_, _, err := svc.RecordMarkerUpdate(ctx, service.MarkerUpdateInput{MarkerID: m.ID, Score: 3})
				So(err, ShouldNotBeNil)
			})

			Convey("Then its history is kept", func() {
				got, err := svc.Marker(ctx, m.ID)
				So(err, ShouldBeNil)
				So(got.Updates, ShouldHaveLength, 1)
			})
		})
	})
}

func TestService_Engagement(t *testing.T) {
	Convey("Given a started engagement", t, func() {
		svc := newTestService()
		ctx := context.Background()
		e, err := svc.StartEngagement(ctx, "ana", "coach-1")
		So(err, ShouldBeNil)
		So(e.Week, ShouldEqual, model.FirstWeek)
		So(e.Status, ShouldEqual, model.StatusActive)

		Convey("When starting a second engagement for the same client", func() {
			_, err := svc.StartEngagement(ctx, "ana", "coach-2")
			So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
		})

		Convey("When advancing a week", func() {
			next, err := svc.AdvanceWeek(ctx, e.ID)
			So(err, ShouldBeNil)
			So(next.Week, ShouldEqual, 2)

			Convey("Then the stored engagement reflects it", func() {
				got, err := svc.Engagement(ctx, e.ID)
				So(err, ShouldBeNil)
				So(got.Week, ShouldEqual, 2)
			})
		})

		Convey("When paused", func() {
			paused, err := svc.TogglePause(ctx, e.ID)
			So(err, ShouldBeNil)
			So(paused.Status, ShouldEqual, model.StatusPaused)

			Convey("Then advancing is rejected and nothing is stored", func() {
				_, err := svc.AdvanceWeek(ctx, e.ID)
				So(errors.Is(err, lifecycle.ErrInvalidTransition), ShouldBeTrue)
				got, _ := svc.Engagement(ctx, e.ID)
				So(got.Week, ShouldEqual, model.FirstWeek)
			})

			Convey("Then toggling again resumes it", func() {
				resumed, err := svc.TogglePause(ctx, e.ID)
				So(err, ShouldBeNil)
				So(resumed.Status, ShouldEqual, model.StatusActive)
			})
		})

		Convey("When completed", func() {
			done, err := svc.CompleteEngagement(ctx, e.ID)
			So(err, ShouldBeNil)
			So(done.Status, ShouldEqual, model.StatusCompleted)
			So(done.EndDate, ShouldNotBeNil)

			Convey("Then a new engagement may start", func() {
				_, err := svc.StartEngagement(ctx, "ana", "coach-2")
				So(err, ShouldBeNil)
			})

			Convey("Then completing again is rejected", func() {
				_, err := svc.CompleteEngagement(ctx, e.ID)
				So(errors.Is(err, lifecycle.ErrInvalidTransition), ShouldBeTrue)
			})
		})

		Convey("When the engagement is unknown", func() {
			_, err := svc.AdvanceWeek(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_CircleAndFeed(t *testing.T) {
	Convey("Given users connected by visibility edges", t, func() {
		svc := newTestService()
		ctx := context.Background()
		So(svc.PutEdge(ctx, model.VisibilityEdge{FromUser: "ana", ToUser: "ben"}), ShouldBeNil)
		So(svc.PutEdge(ctx, model.VisibilityEdge{FromUser: "cy", ToUser: "ana"}), ShouldBeNil)
		So(svc.PutContent(ctx, model.ShareableContent{ID: "c1", Kind: model.KindShare, AuthorID: "ben", Body: "shipped it", CreatedAt: fixedNow}), ShouldBeNil)
		So(svc.PutContent(ctx, model.ShareableContent{ID: "c2", Kind: model.KindProof, AuthorID: "cy", Body: "private", CreatedAt: fixedNow.Add(time.Minute)}), ShouldBeNil)
		So(svc.PutContent(ctx, model.ShareableContent{ID: "c3", Kind: model.KindPriority, AuthorID: "ana", Body: "mine", Shareable: true, CreatedAt: fixedNow.Add(-time.Minute)}), ShouldBeNil)

		Convey("When resolving the circle", func() {
			c, err := svc.Circle(ctx, "ana", circle.ModeDisplay)
			So(err, ShouldBeNil)

			Convey("Then both directions count", func() {
				So(c.IDs(), ShouldResemble, []string{"ben", "cy"})
			})
		})

		Convey("When building the circle feed with own content", func() {
			f, err := svc.Feed(ctx, "ana", feed.Options{FilterByCircle: true, IncludeOwn: true})
			So(err, ShouldBeNil)

			Convey("Then only visible items appear, newest first", func() {
				So(f.Items, ShouldHaveLength, 2)
				So(f.Items[0].ID, ShouldEqual, "c1")
				So(f.Items[1].ID, ShouldEqual, "c3")
				So(f.Items[1].IsOwn, ShouldBeTrue)
			})
		})

		Convey("When content has an unknown kind", func() {
			err := svc.PutContent(ctx, model.ShareableContent{Kind: "gossip", AuthorID: "ana"})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When switching a feed session between viewers", func() {
			session := svc.FeedSession()
			defer session.Close()
			session.Switch("ben")
			f, err := session.Build(ctx, feed.Options{IncludeOwn: true})

			Convey("Then the feed belongs to the current viewer", func() {
				So(err, ShouldBeNil)
				So(f.UserID, ShouldEqual, "ben")
				So(f.Items, ShouldHaveLength, 1)
			})
		})
	})
}

// blockingStore holds every ratings write until release is closed.
type blockingStore struct {
	*repository.MemStore
	release chan struct{}
}

func (b *blockingStore) SaveRatings(ctx context.Context, sub model.AlignmentSubmission) error {
	<-b.release
	return b.MemStore.SaveRatings(ctx, sub)
}

func TestService_QueueFull(t *testing.T) {
	Convey("Given a started service whose only worker is stuck on a write", t, func() {
		store := &blockingStore{MemStore: repository.NewMemStore(), release: make(chan struct{})}
		svc := newTestService(service.WithStore(store), service.WithQueueSize(1), service.WithWorkerCount(1))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		defer close(store.release)

		Convey("When more submissions arrive than the queue and worker can hold", func() {
			var full []string
			for i := 0; i < 10; i++ {
				id := fmt.Sprintf("s-%d", i)
				_, err := svc.SubmitAlignment(ctx, model.AlignmentSubmission{SubmissionID: id, UserID: "ana", Ratings: model.Ratings{3, 3, 3, 3, 3}})
				if errors.Is(err, queue.ErrFull) {
					full = append(full, id)
				}
			}

			Convey("Then the overflow is rejected as full", func() {
				So(len(full), ShouldBeGreaterThanOrEqualTo, 8)
			})

			Convey("Then a rejected id is not remembered as seen", func() {
				r, err := svc.SubmitAlignment(ctx, model.AlignmentSubmission{SubmissionID: full[0], UserID: "ana"})
				So(r.Duplicate, ShouldBeFalse)
				So(errors.Is(err, queue.ErrFull), ShouldBeTrue)
			})
		})
	})
}
