// Package lifecycle is the state machine of a twelve-week, three-phase
// coaching engagement.
//
//	active ──togglePause──▶ paused ──togglePause──▶ active
//	active|paused ──complete──▶ completed (terminal)
//	active ──advanceWeek──▶ active (week+1, up to 12)
//
// Every function takes an engagement by value and returns the next state.
// A rejected operation returns the input unchanged together with an error
// wrapping ErrInvalidTransition.
package lifecycle

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/fires/internal/domain/model"
)

// Operation names used in errors and metrics.
const (
	OpAdvance  = "advance_week"
	OpToggle   = "toggle_pause"
	OpComplete = "complete"
)

// PhaseForWeek maps a week to its phase: 1-4 name, 5-8 validate, 9+ communicate.
func PhaseForWeek(week int) model.Phase { return model.PhaseOf(week) }

// Start opens a new engagement in week 1.
func Start(clientID, coachID string, now time.Time) model.Engagement {
	return model.Engagement{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		CoachID:   coachID,
		Week:      model.FirstWeek,
		Status:    model.StatusActive,
		StartDate: now.UTC(),
	}
}

// AdvanceWeek moves an active engagement to the next week. In the final
// week it returns ErrFinalWeek; the caller must Complete instead.
func AdvanceWeek(e model.Engagement) (model.Engagement, error) {
	if e.Status != model.StatusActive {
		return e, reject(OpAdvance, e, ErrInvalidTransition)
	}
	next := e.Week + 1
	if next > model.FinalWeek {
		return e, reject(OpAdvance, e, ErrFinalWeek)
	}
	if next < model.FirstWeek {
		next = model.FirstWeek
	}
	e.Week = next
	return e, nil
}

// TogglePause flips active and paused.
func TogglePause(e model.Engagement) (model.Engagement, error) {
	switch e.Status {
	case model.StatusActive:
		e.Status = model.StatusPaused
	case model.StatusPaused:
		e.Status = model.StatusActive
	default:
		return e, reject(OpToggle, e, ErrInvalidTransition)
	}
	return e, nil
}

// Complete ends an active or paused engagement and stamps its end date.
func Complete(e model.Engagement, now time.Time) (model.Engagement, error) {
	if e.Status != model.StatusActive && e.Status != model.StatusPaused {
		return e, reject(OpComplete, e, ErrInvalidTransition)
	}
	end := now.UTC()
	e.Status = model.StatusCompleted
	e.EndDate = &end
	return e, nil
}

// CanAdvance reports whether AdvanceWeek would succeed.
func CanAdvance(e model.Engagement) bool {
	return e.Status == model.StatusActive && e.Week < model.FinalWeek
}

// WeekInPhase returns the 1-based position of the week inside its phase.
func WeekInPhase(week int) int {
	if week < model.FirstWeek {
		return 1
	}
	if week > model.FinalWeek {
		week = model.FinalWeek
	}
	return (week-1)%model.WeeksPerPhase + 1
}

func reject(op string, e model.Engagement, reason error) error {
	return &TransitionError{Op: op, From: string(e.Status), Reason: reason}
}
