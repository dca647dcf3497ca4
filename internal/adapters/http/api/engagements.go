package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/fires/internal/domain/lifecycle"
	"github.com/okian/fires/internal/domain/model"
)

// EngagementDependencies defines the engagement lifecycle operations.
type EngagementDependencies interface {
	StartEngagement(ctx context.Context, clientID, coachID string) (model.Engagement, error)
	Engagement(ctx context.Context, id string) (model.Engagement, error)
	AdvanceWeek(ctx context.Context, id string) (model.Engagement, error)
	TogglePause(ctx context.Context, id string) (model.Engagement, error)
	CompleteEngagement(ctx context.Context, id string) (model.Engagement, error)
}

// EngagementHandler handles engagement requests.
type EngagementHandler struct {
	deps EngagementDependencies
}

// NewEngagementHandler creates a new engagement handler.
func NewEngagementHandler(deps EngagementDependencies) *EngagementHandler {
	return &EngagementHandler{deps: deps}
}

// engagementView adds the derived phase fields.
type engagementView struct {
	model.Engagement
	Phase       model.Phase `json:"phase"`
	WeekInPhase int         `json:"week_in_phase"`
	CanAdvance  bool        `json:"can_advance"`
}

func viewEngagement(e model.Engagement) engagementView {
	return engagementView{
		Engagement:  e,
		Phase:       e.Phase(),
		WeekInPhase: lifecycle.WeekInPhase(e.Week),
		CanAdvance:  lifecycle.CanAdvance(e),
	}
}

type startEngagementRequest struct {
	ClientID string `json:"client_id"`
	CoachID  string `json:"coach_id"`
}

// HandleStart handles POST /engagements requests.
func (h *EngagementHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_engagement"
	var req startEngagementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	e, err := h.deps.StartEngagement(r.Context(), strings.TrimSpace(req.ClientID), strings.TrimSpace(req.CoachID))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, viewEngagement(e))
}

// HandleGet handles GET /engagements/{id} requests.
func (h *EngagementHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.get_engagement", h.deps.Engagement)
}

// HandleAdvance handles POST /engagements/{id}/advance requests.
func (h *EngagementHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.advance_week", h.deps.AdvanceWeek)
}

// HandlePause handles POST /engagements/{id}/pause requests. It toggles
// between active and paused.
func (h *EngagementHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.toggle_pause", h.deps.TogglePause)
}

// HandleComplete handles POST /engagements/{id}/complete requests.
func (h *EngagementHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.complete_engagement", h.deps.CompleteEngagement)
}

func (h *EngagementHandler) respond(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, string) (model.Engagement, error)) {
	e, err := fn(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, viewEngagement(e))
}
