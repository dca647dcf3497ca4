package seed

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/fires/internal/domain/lifecycle"
	"github.com/okian/fires/internal/domain/markers"
	"github.com/okian/fires/internal/domain/model"
)

// Dataset is everything a seed run writes.
type Dataset struct {
	Users       []string                    `json:"users"`
	Coaches     []string                    `json:"coaches"`
	Edges       []model.VisibilityEdge      `json:"edges"`
	Submissions []model.AlignmentSubmission `json:"submissions"`
	Content     []model.ShareableContent    `json:"content"`
	Engagements []model.Engagement          `json:"engagements"`
	Markers     []model.Marker              `json:"markers"`
}

// coachEvery makes every n-th user a coach.
const coachEvery = 4

var (
	markerLabels = []struct {
		label string
		dir   model.Direction
	}{
		{"Name the feeling before reacting", model.More},
		{"Interrupt in meetings", model.Less},
		{"Ask for help early", model.More},
		{"Say yes to low-value requests", model.Less},
		{"Share credit publicly", model.More},
	}
	contentBodies = map[model.ContentKind][]string{
		model.KindPriority:   {"Protect deep work mornings", "Prepare for the board review", "Repair the team retro"},
		model.KindProof:      {"Held the line on scope", "Gave direct feedback kindly", "Delegated the launch plan"},
		model.KindShare:      {"Small win: calmer standup", "Tried the pause technique", "Noticed my energy dip at 3pm"},
		model.KindPrediction: {"I'll avoid the hard conversation", "I'll over-commit next sprint", "I'll stay calm under pressure"},
	}
)

// Generate builds a dataset from cfg. The same config always yields the same
// dataset, ids included.
func Generate(cfg Config) Dataset {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	ids := idSource(rng)

	var ds Dataset
	for i := 0; i < cfg.Users; i++ {
		id := fmt.Sprintf("user-%03d", i)
		if i%coachEvery == 0 {
			ds.Coaches = append(ds.Coaches, id)
			continue
		}
		ds.Users = append(ds.Users, id)
	}
	if len(ds.Users) == 0 {
		return ds
	}

	ds.Edges = generateEdges(rng, cfg, ds.Users)
	for i, u := range ds.Users {
		ds.Submissions = append(ds.Submissions, model.AlignmentSubmission{
			SubmissionID: fmt.Sprintf("seed-%d-%s", cfg.Seed, u),
			UserID:       u,
			Ratings:      generateRatings(rng),
			SubmittedAt:  cfg.Now.Add(-time.Duration(i) * time.Minute),
		})
		ds.Content = append(ds.Content, generateContent(rng, cfg, u, ids)...)
	}

	tracker := markers.NewTracker(
		markers.WithClock(func() time.Time { return cfg.Now }),
		markers.WithIDGenerator(ids),
	)
	for i, client := range ds.Users {
		if len(ds.Coaches) == 0 {
			break
		}
		coach := ds.Coaches[i%len(ds.Coaches)]
		e := lifecycle.Start(client, coach, cfg.Now.AddDate(0, 0, -7*rng.IntN(model.FinalWeek)))
		e.ID = ids()
		for w := rng.IntN(model.FinalWeek); w > 0; w-- {
			if next, err := lifecycle.AdvanceWeek(e); err == nil {
				e = next
			}
		}
		ds.Engagements = append(ds.Engagements, e)

		pick := markerLabels[rng.IntN(len(markerLabels))]
		baseline, target := 3, 8
		if pick.dir == model.Less {
			baseline, target = 8, 3
		}
		m, err := tracker.Create(markers.CreateInput{
			OwnerID:      client,
			EngagementID: e.ID,
			Label:        pick.label,
			Direction:    pick.dir,
			Baseline:     baseline,
			Target:       target,
		})
		if err != nil {
			continue
		}
		for n := rng.IntN(4); n > 0; n-- {
			m, _, _ = tracker.RecordUpdate(m, 1+rng.IntN(model.MarkerMax), model.SourceSession, "")
		}
		ds.Markers = append(ds.Markers, m)
	}
	return ds
}

// idSource returns a generator of uuid-shaped ids drawn from rng.
func idSource(rng *rand.Rand) func() string {
	return func() string {
		a, b := rng.Uint64(), rng.Uint64()
		return fmt.Sprintf("%08x-%04x-4%03x-8%03x-%012x",
			a>>32, (a>>16)&0xffff, a&0x0fff, (b>>48)&0x0fff, b&0xffffffffffff)
	}
}

func generateEdges(rng *rand.Rand, cfg Config, users []string) []model.VisibilityEdge {
	var (
		edges []model.VisibilityEdge
		n     int
	)
	seen := make(map[[2]string]bool)
	for i, from := range users {
		for k := 0; k < cfg.EdgesPerUser && len(users) > 1; k++ {
			to := users[(i+1+rng.IntN(len(users)-1))%len(users)]
			key := [2]string{from, to}
			if to == from || seen[key] {
				continue
			}
			seen[key] = true
			n++
			e := model.VisibilityEdge{FromUser: from, ToUser: to, CreatedAt: cfg.Now.AddDate(0, 0, -n%30)}
			if cfg.MuteEvery > 0 && n%cfg.MuteEvery == 0 {
				muted := cfg.Now
				e.MutedAt = &muted
			}
			edges = append(edges, e)
		}
	}
	return edges
}

func generateRatings(rng *rand.Rand) model.Ratings {
	var r model.Ratings
	for i := range r {
		r[i] = float64(1 + rng.IntN(4))
	}
	return r
}

func generateContent(rng *rand.Rand, cfg Config, user string, ids func() string) []model.ShareableContent {
	out := make([]model.ShareableContent, 0, cfg.ContentPerUser)
	for i := 0; i < cfg.ContentPerUser; i++ {
		kind := model.ContentKinds[i%len(model.ContentKinds)]
		bodies := contentBodies[kind]
		c := model.ShareableContent{
			ID:         ids(),
			Kind:       kind,
			AuthorID:   user,
			Body:       bodies[rng.IntN(len(bodies))],
			Dimensions: []model.Dimension{model.Dimensions[rng.IntN(model.DimensionCount)]},
			Shareable:  kind.AlwaysVisible() || rng.IntN(3) > 0,
			CreatedAt:  cfg.Now.Add(-time.Duration(rng.IntN(14*24)) * time.Hour),
		}
		out = append(out, c)
	}
	return out
}
