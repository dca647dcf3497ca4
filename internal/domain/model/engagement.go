package model

import "time"

// Phase is one of the three four-week blocks of an engagement.
type Phase string

// Engagement phases.
const (
	PhaseName        Phase = "name"
	PhaseValidate    Phase = "validate"
	PhaseCommunicate Phase = "communicate"
)

// Status is the lifecycle state of an engagement.
type Status string

// Engagement statuses. Completed is terminal.
const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Engagement bounds.
const (
	FirstWeek     = 1
	FinalWeek     = 12
	WeeksPerPhase = 4
)

// Engagement is a twelve-week coaching relationship. The phase is derived
// from Week on every read and is never stored.
type Engagement struct {
	ID        string     `json:"id"`
	ClientID  string     `json:"client_id"`
	CoachID   string     `json:"coach_id"`
	Week      int        `json:"week"`
	Status    Status     `json:"status"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// PhaseOf maps a week to its phase. Anything past week 8 is communicate.
func PhaseOf(week int) Phase {
	switch {
	case week <= WeeksPerPhase:
		return PhaseName
	case week <= 2*WeeksPerPhase:
		return PhaseValidate
	default:
		return PhaseCommunicate
	}
}

// Phase returns the phase for the engagement's current week.
func (e Engagement) Phase() Phase { return PhaseOf(e.Week) }
