// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Dimension is one of the five FIRES competencies.
type Dimension string

// FIRES dimensions.
const (
	Feelings   Dimension = "feelings"
	Influence  Dimension = "influence"
	Resilience Dimension = "resilience"
	Ethics     Dimension = "ethics"
	Strengths  Dimension = "strengths"
)

// DimensionCount is the fixed size of the FIRES set.
const DimensionCount = 5

// Dimensions is the canonical order. Every per-dimension walk in the engine
// iterates this slice, never a map.
var Dimensions = [DimensionCount]Dimension{Feelings, Influence, Resilience, Ethics, Strengths}

// Index returns the canonical position of d, or -1 when d is not a FIRES dimension.
func (d Dimension) Index() int {
	for i, dim := range Dimensions {
		if dim == d {
			return i
		}
	}
	return -1
}

// Valid reports whether d is one of the FIRES dimensions.
func (d Dimension) Valid() bool { return d.Index() >= 0 }

// ParseDimension normalises s and returns the matching dimension.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown dimension %q", s)
	}
	return d, nil
}

// Zone is the ordinal strength classification of a dimension.
type Zone int

// Zones in ascending order.
const (
	Exploring   Zone = 1
	Discovering Zone = 2
	Performing  Zone = 3
	Owning      Zone = 4
)

var zoneNames = map[Zone]string{
	Exploring:   "exploring",
	Discovering: "discovering",
	Performing:  "performing",
	Owning:      "owning",
}

func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return fmt.Sprintf("zone(%d)", int(z))
}

// MarshalJSON encodes the zone by name.
func (z Zone) MarshalJSON() ([]byte, error) {
	return json.Marshal(z.String())
}

// UnmarshalJSON accepts the zone name.
func (z *Zone) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for zone, name := range zoneNames {
		if name == s {
			*z = zone
			return nil
		}
	}
	return fmt.Errorf("unknown zone %q", s)
}

// Ratings holds one alignment rating per dimension, in canonical order.
// Ratings are nominally integers in [1,4]; consumers clamp.
type Ratings [DimensionCount]float64

// Get returns the rating for d.
func (r Ratings) Get(d Dimension) float64 {
	if i := d.Index(); i >= 0 {
		return r[i]
	}
	return 0
}

// ZoneBreakdown maps every dimension to exactly one zone, indexed by
// canonical order.
type ZoneBreakdown [DimensionCount]Zone

// Get returns the zone of d.
func (b ZoneBreakdown) Get(d Dimension) Zone {
	if i := d.Index(); i >= 0 {
		return b[i]
	}
	return 0
}

// DimensionZone pairs a dimension with its zone.
type DimensionZone struct {
	Dimension Dimension `json:"dimension"`
	Zone      Zone      `json:"zone"`
}

// Entries returns the breakdown as ordered pairs.
func (b ZoneBreakdown) Entries() []DimensionZone {
	out := make([]DimensionZone, DimensionCount)
	for i, d := range Dimensions {
		out[i] = DimensionZone{Dimension: d, Zone: b[i]}
	}
	return out
}

// MarshalJSON encodes the breakdown as an object keyed by dimension.
func (b ZoneBreakdown) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, d := range Dimensions {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%q:%q", d, b[i].String())
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

// UnmarshalJSON decodes an object keyed by dimension. All dimensions must be present.
func (b *ZoneBreakdown) UnmarshalJSON(data []byte) error {
	raw := map[Dimension]Zone{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i, d := range Dimensions {
		z, ok := raw[d]
		if !ok {
			return fmt.Errorf("breakdown missing dimension %q", d)
		}
		b[i] = z
	}
	return nil
}

// Snapshot is a recorded zone/score computation for a user.
type Snapshot struct {
	UserID      string        `json:"user_id"`
	Ratings     Ratings       `json:"ratings"`
	Breakdown   ZoneBreakdown `json:"breakdown"`
	Score       int           `json:"score"`
	GrowthEdge  DimensionZone `json:"growth_edge"`
	Strength    DimensionZone `json:"strength"`
	Connections int           `json:"connections"`
	RecordedAt  time.Time     `json:"recorded_at"`
}
