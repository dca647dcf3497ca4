package lifecycle_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/fires/internal/domain/lifecycle"
	"github.com/okian/fires/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPhaseForWeek(t *testing.T) {
	Convey("Given every week of the engagement", t, func() {
		for w := 1; w <= 12; w++ {
			var want model.Phase
			switch {
			case w <= 4:
				want = model.PhaseName
			case w <= 8:
				want = model.PhaseValidate
			default:
				want = model.PhaseCommunicate
			}
			So(lifecycle.PhaseForWeek(w), ShouldEqual, want)
		}
		So(lifecycle.WeekInPhase(1), ShouldEqual, 1)
		So(lifecycle.WeekInPhase(6), ShouldEqual, 2)
		So(lifecycle.WeekInPhase(12), ShouldEqual, 4)
	})
}

func TestAdvanceWeek(t *testing.T) {
	Convey("Given a fresh engagement", t, func() {
		start := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
		e := lifecycle.Start("client-1", "coach-1", start)

		So(e.Week, ShouldEqual, 1)
		So(e.Status, ShouldEqual, model.StatusActive)
		So(e.Phase(), ShouldEqual, model.PhaseName)
		So(e.EndDate, ShouldBeNil)

		Convey("When advancing eleven times", func() {
			var err error
			for i := 0; i < 11; i++ {
				e, err = lifecycle.AdvanceWeek(e)
				So(err, ShouldBeNil)
			}

			Convey("Then it reaches week 12 in the communicate phase", func() {
				So(e.Week, ShouldEqual, 12)
				So(e.Phase(), ShouldEqual, model.PhaseCommunicate)
				So(lifecycle.CanAdvance(e), ShouldBeFalse)
			})

			Convey("And a twelfth advance is rejected without change", func() {
				next, err := lifecycle.AdvanceWeek(e)
				So(errors.Is(err, lifecycle.ErrFinalWeek), ShouldBeTrue)
				So(errors.Is(err, lifecycle.ErrInvalidTransition), ShouldBeTrue)
				So(next, ShouldResemble, e)
			})

			Convey("And completing instead ends the engagement", func() {
				end := start.AddDate(0, 3, 0)
				done, err := lifecycle.Complete(e, end)
				So(err, ShouldBeNil)
				So(done.Status, ShouldEqual, model.StatusCompleted)
				So(done.EndDate, ShouldNotBeNil)
				So(*done.EndDate, ShouldEqual, end)
				So(done.Week, ShouldEqual, 12)
			})
		})

		Convey("When advancing four times", func() {
			for i := 0; i < 4; i++ {
				e, _ = lifecycle.AdvanceWeek(e)
			}

			Convey("Then the phase moves to validate", func() {
				So(e.Week, ShouldEqual, 5)
				So(e.Phase(), ShouldEqual, model.PhaseValidate)
			})
		})

		Convey("When the engagement is paused", func() {
			paused, err := lifecycle.TogglePause(e)
			So(err, ShouldBeNil)
			So(paused.Status, ShouldEqual, model.StatusPaused)

			Convey("Then advancing is rejected", func() {
				next, err := lifecycle.AdvanceWeek(paused)
				So(errors.Is(err, lifecycle.ErrInvalidTransition), ShouldBeTrue)
				So(errors.Is(err, lifecycle.ErrFinalWeek), ShouldBeFalse)
				So(next, ShouldResemble, paused)
			})

			Convey("And toggling again resumes it", func() {
				resumed, err := lifecycle.TogglePause(paused)
				So(err, ShouldBeNil)
				So(resumed.Status, ShouldEqual, model.StatusActive)
			})

			Convey("And it can be completed directly", func() {
				done, err := lifecycle.Complete(paused, start)
				So(err, ShouldBeNil)
				So(done.Status, ShouldEqual, model.StatusCompleted)
			})
		})
	})
}

func TestCompletedIsTerminal(t *testing.T) {
	Convey("Given a completed engagement", t, func() {
		now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		e, err := lifecycle.Complete(lifecycle.Start("c", "k", now), now)
		So(err, ShouldBeNil)

		Convey("Then every further operation is rejected and state is kept", func() {
			next, err := lifecycle.AdvanceWeek(e)
			So(errors.Is(err, lifecycle.ErrInvalidTransition), ShouldBeTrue)
			So(next, ShouldResemble, e)

			next, err = lifecycle.TogglePause(e)
			So(errors.Is(err, lifecycle.ErrInvalidTransition), ShouldBeTrue)
			So(next, ShouldResemble, e)

			next, err = lifecycle.Complete(e, now.Add(time.Hour))
			So(errors.Is(err, lifecycle.ErrInvalidTransition), ShouldBeTrue)
			So(*next.EndDate, ShouldEqual, now)
		})

		Convey("And the error names the operation and state", func() {
			_, err := lifecycle.TogglePause(e)
			var te *lifecycle.TransitionError
			So(errors.As(err, &te), ShouldBeTrue)
			So(te.Op, ShouldEqual, lifecycle.OpToggle)
			So(te.From, ShouldEqual, "completed")
		})
	})
}
