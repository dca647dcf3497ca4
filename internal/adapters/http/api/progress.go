package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/fires/internal/app"
	"github.com/okian/fires/internal/domain/model"
)

// ProgressDependencies defines the operations behind the alignment and
// progress routes.
type ProgressDependencies interface {
	SubmitAlignment(ctx context.Context, sub model.AlignmentSubmission) (service.Receipt, error)
	Progress(ctx context.Context, user string) (service.Progress, error)
}

// ProgressHandler handles alignment submissions and progress reads.
type ProgressHandler struct {
	deps ProgressDependencies
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(deps ProgressDependencies) *ProgressHandler {
	return &ProgressHandler{deps: deps}
}

// alignmentRequest mirrors the OpenAPI schema for POST /alignment/{user}.
type alignmentRequest struct {
	SubmissionID string             `json:"submission_id"`
	Ratings      map[string]float64 `json:"ratings"`
	SubmittedAt  string             `json:"submitted_at"`
}

// toSubmission validates the request and lays the ratings out in canonical
// dimension order.
func (a alignmentRequest) toSubmission(user string) (model.AlignmentSubmission, error) {
	sub := model.AlignmentSubmission{SubmissionID: strings.TrimSpace(a.SubmissionID), UserID: user}
	if len(a.Ratings) != model.DimensionCount {
		return sub, fmt.Errorf("ratings must name all %d dimensions", model.DimensionCount)
	}
	var seen [model.DimensionCount]bool
	for name, v := range a.Ratings {
		d, err := model.ParseDimension(name)
		if err != nil {
			return sub, err
		}
		if seen[d.Index()] {
			return sub, fmt.Errorf("dimension %q given twice", d)
		}
		seen[d.Index()] = true
		sub.Ratings[d.Index()] = v
	}
	if a.SubmittedAt != "" {
		ts, err := time.Parse(time.RFC3339, a.SubmittedAt)
		if err != nil {
			return sub, errors.New("invalid submitted_at; must be RFC3339")
		}
		sub.SubmittedAt = ts.UTC()
	}
	return sub, nil
}

type ackResponse struct {
	Status       string `json:"status"`
	SubmissionID string `json:"submission_id"`
	Duplicate    bool   `json:"duplicate"`
}

// HandleSubmitAlignment handles POST /alignment/{user} requests.
func (h *ProgressHandler) HandleSubmitAlignment(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_alignment"
	user := r.PathValue("user")

	var req alignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	sub, err := req.toSubmission(user)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	receipt, err := h.deps.SubmitAlignment(r.Context(), sub)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	if receipt.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", SubmissionID: receipt.SubmissionID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", SubmissionID: receipt.SubmissionID})
}

// HandleGetProgress handles GET /progress/{user} requests.
func (h *ProgressHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Progress(r.Context(), r.PathValue("user"))
	if err != nil {
		writeError(w, Wrap("api.get_progress", err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
