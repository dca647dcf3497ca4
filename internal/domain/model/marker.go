package model

import "time"

// Direction is the desired movement of a marker score.
type Direction string

// Marker directions.
const (
	More Direction = "more"
	Less Direction = "less"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool { return d == More || d == Less }

// UpdateSource tags who or what produced a marker score.
type UpdateSource string

// Known update sources.
const (
	SourceBaseline UpdateSource = "baseline"
	SourceCoach    UpdateSource = "coach"
	SourceClient   UpdateSource = "client"
	SourceSession  UpdateSource = "session"
)

// Marker score bounds.
const (
	MarkerMin = 1
	MarkerMax = 10
)

// Marker is a tracked behavioral change goal. Updates only ever grow.
type Marker struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"owner_id"`
	EngagementID string         `json:"engagement_id,omitempty"`
	ConnectionID string         `json:"connection_id,omitempty"`
	Label        string         `json:"label"`
	Direction    Direction      `json:"direction"`
	Baseline     int            `json:"baseline"`
	Target       int            `json:"target"`
	Current      int            `json:"current"`
	Active       bool           `json:"active"`
	CreatedAt    time.Time      `json:"created_at"`
	Updates      []MarkerUpdate `json:"updates"`
}

// MarkerUpdate is a single appended score.
type MarkerUpdate struct {
	ID         string       `json:"id"`
	MarkerID   string       `json:"marker_id"`
	Score      int          `json:"score"`
	Source     UpdateSource `json:"source"`
	Note       string       `json:"note,omitempty"`
	RecordedAt time.Time    `json:"recorded_at"`
}
