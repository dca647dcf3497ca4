package lifecycle

import (
	"errors"
	"fmt"
)

// Sentinel kinds for lifecycle errors.
var (
	// ErrInvalidTransition is returned when an operation is not allowed from
	// the engagement's current status.
	ErrInvalidTransition = errors.New("invalid engagement transition")
	// ErrFinalWeek is returned by AdvanceWeek in week 12; the engagement
	// must be completed instead.
	ErrFinalWeek = fmt.Errorf("%w: final week reached, complete the engagement", ErrInvalidTransition)
)

// TransitionError describes a rejected operation.
type TransitionError struct {
	Op     string
	From   string
	Reason error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s from %s: %v", e.Op, e.From, e.Reason)
}

func (e *TransitionError) Unwrap() error { return e.Reason }
