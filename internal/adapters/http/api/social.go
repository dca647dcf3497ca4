package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/fires/internal/domain/circle"
	"github.com/okian/fires/internal/domain/feed"
)

// SocialDependencies defines the circle and feed reads.
type SocialDependencies interface {
	Circle(ctx context.Context, user string, mode circle.Mode) (circle.Circle, error)
	Feed(ctx context.Context, user string, opts feed.Options) (feed.Feed, error)
}

// SocialHandler handles circle and feed requests.
type SocialHandler struct {
	deps SocialDependencies
}

// NewSocialHandler creates a new social handler.
func NewSocialHandler(deps SocialDependencies) *SocialHandler {
	return &SocialHandler{deps: deps}
}

// HandleGetCircle handles GET /circle/{user}?mode=feed|display requests.
// Display mode, which keeps muted members, is the default.
func (h *SocialHandler) HandleGetCircle(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_circle"
	mode := circle.ModeDisplay
	switch r.URL.Query().Get("mode") {
	case "", "display":
	case "feed":
		mode = circle.ModeFeed
	default:
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}
	c, err := h.deps.Circle(r.Context(), r.PathValue("user"), mode)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleGetFeed handles GET /feed/{user}?circle=&own= requests. Both flags
// default to true.
func (h *SocialHandler) HandleGetFeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_feed"
	q := r.URL.Query()
	byCircle, err := boolParam(q.Get("circle"), true)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	own, err := boolParam(q.Get("own"), true)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	f, err := h.deps.Feed(r.Context(), r.PathValue("user"), feed.Options{FilterByCircle: byCircle, IncludeOwn: own})
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func boolParam(v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}
