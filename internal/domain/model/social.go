package model

import "time"

// VisibilityEdge is a directed "from can see to" relation between users.
// A muted edge stays in place but is ignored for feed visibility.
type VisibilityEdge struct {
	FromUser  string     `json:"from_user"`
	ToUser    string     `json:"to_user"`
	MutedAt   *time.Time `json:"muted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Muted reports whether the edge has been muted.
func (e VisibilityEdge) Muted() bool { return e.MutedAt != nil }

// ContentKind names a class of shareable record.
type ContentKind string

// Content kinds, in the fixed order the feed processes them.
const (
	KindPriority   ContentKind = "priority"
	KindProof      ContentKind = "proof"
	KindShare      ContentKind = "share"
	KindPrediction ContentKind = "prediction"
)

// ContentKinds is the processing order used for de-duplication.
var ContentKinds = []ContentKind{KindPriority, KindProof, KindShare, KindPrediction}

// AlwaysVisible reports whether records of this kind need no opt-in flag.
func (k ContentKind) AlwaysVisible() bool { return k == KindShare }

// Valid reports whether k is a known kind.
func (k ContentKind) Valid() bool {
	for _, kind := range ContentKinds {
		if kind == k {
			return true
		}
	}
	return false
}

// ShareableContent is a raw content record owned by one user.
type ShareableContent struct {
	ID          string      `json:"id"`
	Kind        ContentKind `json:"kind"`
	AuthorID    string      `json:"author_id"`
	RecipientID string      `json:"recipient_id,omitempty"`
	Body        string      `json:"body"`
	Dimensions  []Dimension `json:"dimensions,omitempty"`
	Shareable   bool        `json:"shareable"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Visible reports whether the record may appear in someone's feed.
func (c ShareableContent) Visible() bool {
	return c.Shareable || c.Kind.AlwaysVisible()
}

// FeedItem is the presentation projection of a ShareableContent record.
type FeedItem struct {
	ID          string      `json:"id"`
	Kind        ContentKind `json:"kind"`
	AuthorID    string      `json:"author_id"`
	RecipientID string      `json:"recipient_id,omitempty"`
	Body        string      `json:"body"`
	Dimensions  []Dimension `json:"dimensions,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	IsOwn       bool        `json:"is_own"`
}
