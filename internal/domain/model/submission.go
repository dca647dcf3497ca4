package model

import "time"

// AlignmentSubmission is a set of self-reported ratings waiting to be scored.
type AlignmentSubmission struct {
	SubmissionID string    // unique id for idempotency
	UserID       string    // user the ratings belong to
	Ratings      Ratings   // canonical order
	SubmittedAt  time.Time // submission timestamp
}
