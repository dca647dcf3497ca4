package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/fires/internal/adapters/repository"
	service "github.com/okian/fires/internal/app"
	"github.com/okian/fires/internal/domain/markers"
	"github.com/okian/fires/internal/domain/model"
)

// recentUpdates is how many updates a marker view carries.
const recentUpdates = 5

// MarkersDependencies defines the marker operations.
type MarkersDependencies interface {
	CreateMarker(ctx context.Context, in markers.CreateInput) (model.Marker, error)
	RecordMarkerUpdate(ctx context.Context, in service.MarkerUpdateInput) (model.Marker, bool, error)
	RetireMarker(ctx context.Context, id string) (model.Marker, error)
	Markers(ctx context.Context, f repository.MarkerFilter) ([]model.Marker, error)
	Marker(ctx context.Context, id string) (model.Marker, error)
}

// MarkersHandler handles marker requests.
type MarkersHandler struct {
	deps MarkersDependencies
}

// NewMarkersHandler creates a new markers handler.
func NewMarkersHandler(deps MarkersDependencies) *MarkersHandler {
	return &MarkersHandler{deps: deps}
}

// markerView is a marker with derived progress and its latest updates.
type markerView struct {
	model.Marker
	PercentComplete float64              `json:"percent_complete"`
	Recent          []model.MarkerUpdate `json:"recent"`
}

func viewMarker(m model.Marker) markerView {
	return markerView{Marker: m, PercentComplete: markers.PercentComplete(m), Recent: markers.Recent(m, recentUpdates)}
}

type createMarkerRequest struct {
	OwnerID      string `json:"owner_id"`
	EngagementID string `json:"engagement_id"`
	ConnectionID string `json:"connection_id"`
	Label        string `json:"label"`
	Direction    string `json:"direction"`
	Baseline     int    `json:"baseline"`
	Target       int    `json:"target"`
}

type markerUpdateRequest struct {
	Score     int    `json:"score"`
	Source    string `json:"source"`
	Note      string `json:"note"`
	RequestID string `json:"request_id"`
}

// HandleListMarkers handles GET /markers?owner=&engagement=&active= requests.
func (h *MarkersHandler) HandleListMarkers(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_markers"
	q := r.URL.Query()
	f := repository.MarkerFilter{OwnerID: q.Get("owner"), EngagementID: q.Get("engagement")}
	if f.OwnerID == "" && f.EngagementID == "" {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		f.ActiveOnly = active
	}

	list, err := h.deps.Markers(r.Context(), f)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	out := make([]markerView, 0, len(list))
	for _, m := range list {
		out = append(out, viewMarker(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleCreateMarker handles POST /markers requests.
func (h *MarkersHandler) HandleCreateMarker(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_marker"
	var req createMarkerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := h.deps.CreateMarker(r.Context(), markers.CreateInput{
		OwnerID:      strings.TrimSpace(req.OwnerID),
		EngagementID: req.EngagementID,
		ConnectionID: req.ConnectionID,
		Label:        strings.TrimSpace(req.Label),
		Direction:    model.Direction(strings.ToLower(req.Direction)),
		Baseline:     req.Baseline,
		Target:       req.Target,
	})
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, viewMarker(m))
}

// HandleGetMarker handles GET /markers/{id} requests.
func (h *MarkersHandler) HandleGetMarker(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.Marker(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap("api.get_marker", err))
		return
	}
	writeJSON(w, http.StatusOK, viewMarker(m))
}

// HandleRecordUpdate handles POST /markers/{id}/updates requests. A repeated
// request_id (or Idempotency-Key header) replays without appending.
func (h *MarkersHandler) HandleRecordUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_marker_update"
	var req markerUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get("Idempotency-Key")
	}
	source := model.UpdateSource(strings.ToLower(req.Source))
	if source == "" {
		source = model.SourceClient
	}

	m, replayed, err := h.deps.RecordMarkerUpdate(r.Context(), service.MarkerUpdateInput{
		MarkerID:  r.PathValue("id"),
		Score:     req.Score,
		Source:    source,
		Note:      req.Note,
		RequestID: req.RequestID,
	})
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, viewMarker(m))
}

// HandleRetire handles POST /markers/{id}/retire requests.
func (h *MarkersHandler) HandleRetire(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.RetireMarker(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap("api.retire_marker", err))
		return
	}
	writeJSON(w, http.StatusOK, viewMarker(m))
}
