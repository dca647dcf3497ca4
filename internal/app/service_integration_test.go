package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/fires/internal/adapters/repository"
	service "github.com/okian/fires/internal/app"
	"github.com/okian/fires/internal/domain/markers"
	"github.com/okian/fires/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_Integration_SQLite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	Convey("Given a service backed by a sqlite store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store, err := repository.Open(ctx, repository.DriverSQLite, filepath.Join(t.TempDir(), "fires.db"))
		So(err, ShouldBeNil)
		defer store.Close()

		svc := service.New(service.WithStore(store), service.WithWorkerCount(4), service.WithQueueSize(1000))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When many users submit concurrently", func() {
			const users = 20
			var wg sync.WaitGroup
			errs := make([]error, users)
			for i := 0; i < users; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = svc.SubmitAlignment(ctx, model.AlignmentSubmission{
						UserID:  fmt.Sprintf("user-%02d", i),
						Ratings: model.Ratings{4, 4, 4, 4, float64(1 + i%4)},
					})
				}(i)
			}
			wg.Wait()

			Convey("Then every submission is accepted", func() {
				for _, err := range errs {
					So(err, ShouldBeNil)
				}
			})

			Convey("Then every user gets a persisted snapshot", func() {
				for i := 0; i < users; i++ {
					p, err := waitForProgress(svc, fmt.Sprintf("user-%02d", i))
					So(err, ShouldBeNil)
					So(p.Ratings[4], ShouldEqual, float64(1+i%4))
				}
			})
		})

		Convey("When a marker's lifecycle runs against sqlite", func() {
			m, err := svc.CreateMarker(ctx, markers.CreateInput{OwnerID: "ana", Label: "Ask for help", Direction: model.More, Baseline: 3, Target: 7})
			So(err, ShouldBeNil)
			for _, score := range []int{4, 5, 7} {
				_, _, err := svc.RecordMarkerUpdate(ctx, service.MarkerUpdateInput{MarkerID: m.ID, Score: score, Source: model.SourceClient})
				So(err, ShouldBeNil)
			}

			Convey("Then the history is kept in insertion order", func() {
				got, err := svc.Marker(ctx, m.ID)
				So(err, ShouldBeNil)
				So(got.Current, ShouldEqual, 7)
				So(got.Updates, ShouldHaveLength, 4)
				So(got.Updates[0].Source, ShouldEqual, model.SourceBaseline)
				So(got.Updates[3].Score, ShouldEqual, 7)
				So(markers.PercentComplete(got), ShouldEqual, 100)
			})
		})

		Convey("When an engagement runs to its final week", func() {
			e, err := svc.StartEngagement(ctx, "ben", "coach-1")
			So(err, ShouldBeNil)
			for week := model.FirstWeek; week < model.FinalWeek; week++ {
				e, err = svc.AdvanceWeek(ctx, e.ID)
				So(err, ShouldBeNil)
			}

			Convey("Then it sits in the communicate phase and cannot advance further", func() {
				So(e.Week, ShouldEqual, model.FinalWeek)
				So(e.Phase(), ShouldEqual, model.PhaseCommunicate)
				_, err := svc.AdvanceWeek(ctx, e.ID)
				So(err, ShouldNotBeNil)
			})
		})
	})
}
