// Package circle resolves the set of users visible to a given user from a
// directed visibility relation.
package circle

import (
	"sort"

	"github.com/okian/fires/internal/domain/model"
)

// Direction selects which side of the relation an adjacency query follows.
type Direction int

// Edge directions relative to the queried user.
const (
	// Outgoing edges have the user as FromUser.
	Outgoing Direction = iota
	// Incoming edges have the user as ToUser.
	Incoming
)

func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

// Mode controls how muted edges are treated.
type Mode int

// Resolution modes.
const (
	// ModeFeed ignores muted edges entirely; used for content visibility.
	ModeFeed Mode = iota
	// ModeDisplay keeps muted edges and flags the members they produce.
	ModeDisplay
)

// Member is one user in a circle, with the directionality kept for display.
type Member struct {
	UserID   string `json:"user_id"`
	Outgoing bool   `json:"outgoing"`
	Incoming bool   `json:"incoming"`
	Mutual   bool   `json:"mutual"`
	Muted    bool   `json:"muted"`
}

// Circle is the resolved set of members for a user, sorted by user id.
type Circle struct {
	UserID  string   `json:"user_id"`
	Members []Member `json:"members"`
	// Partial is set when one of the adjacency queries failed and the
	// circle was built from the other direction only.
	Partial bool `json:"partial,omitempty"`
}

// IDs returns the member user ids.
func (c Circle) IDs() []string {
	ids := make([]string, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.UserID
	}
	return ids
}

// Contains reports whether id is a member.
func (c Circle) Contains(id string) bool {
	i := sort.Search(len(c.Members), func(i int) bool { return c.Members[i].UserID >= id })
	return i < len(c.Members) && c.Members[i].UserID == id
}

// Len returns the number of members.
func (c Circle) Len() int { return len(c.Members) }

type link struct {
	out, in           bool
	outMuted, inMuted bool
}

// ResolveEdges builds the circle of user from an edge list that may hold
// edges in both directions and edges unrelated to user. One directional
// edge is enough for membership; self-edges are dropped.
func ResolveEdges(user string, edges []model.VisibilityEdge, mode Mode) Circle {
	links := make(map[string]*link)
	get := func(id string) *link {
		l, ok := links[id]
		if !ok {
			l = &link{}
			links[id] = l
		}
		return l
	}

	for _, e := range edges {
		if mode == ModeFeed && e.Muted() {
			continue
		}
		switch {
		case e.FromUser == user && e.ToUser != user:
			l := get(e.ToUser)
			l.out = true
			l.outMuted = e.Muted()
		case e.ToUser == user && e.FromUser != user:
			l := get(e.FromUser)
			l.in = true
			l.inMuted = e.Muted()
		}
	}

	members := make([]Member, 0, len(links))
	for id, l := range links {
		members = append(members, Member{
			UserID:   id,
			Outgoing: l.out,
			Incoming: l.in,
			Mutual:   l.out && l.in,
			Muted:    (!l.out || l.outMuted) && (!l.in || l.inMuted),
		})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })

	return Circle{UserID: user, Members: members}
}
