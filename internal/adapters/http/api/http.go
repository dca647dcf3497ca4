// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/fires/internal/adapters/repository"
	service "github.com/okian/fires/internal/app"
	"github.com/okian/fires/internal/domain/circle"
	"github.com/okian/fires/internal/domain/feed"
	"github.com/okian/fires/internal/domain/markers"
	"github.com/okian/fires/internal/domain/model"
	"github.com/okian/fires/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	SubmitAlignment(ctx context.Context, sub model.AlignmentSubmission) (service.Receipt, error)
	Progress(ctx context.Context, user string) (service.Progress, error)

	CreateMarker(ctx context.Context, in markers.CreateInput) (model.Marker, error)
	RecordMarkerUpdate(ctx context.Context, in service.MarkerUpdateInput) (model.Marker, bool, error)
	RetireMarker(ctx context.Context, id string) (model.Marker, error)
	Markers(ctx context.Context, f repository.MarkerFilter) ([]model.Marker, error)
	Marker(ctx context.Context, id string) (model.Marker, error)

	StartEngagement(ctx context.Context, clientID, coachID string) (model.Engagement, error)
	Engagement(ctx context.Context, id string) (model.Engagement, error)
	AdvanceWeek(ctx context.Context, id string) (model.Engagement, error)
	TogglePause(ctx context.Context, id string) (model.Engagement, error)
	CompleteEngagement(ctx context.Context, id string) (model.Engagement, error)

	Circle(ctx context.Context, user string, mode circle.Mode) (circle.Circle, error)
	Feed(ctx context.Context, user string, opts feed.Options) (feed.Feed, error)
}

// Option configures the Server.
type Option func(*Server)

// WithRateLimit limits each client to rps requests per second with the given
// burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.limiter = NewRateLimiter(rps, burst)
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	progressHandler   *ProgressHandler
	markersHandler    *MarkersHandler
	engagementHandler *EngagementHandler
	socialHandler     *SocialHandler

	limiter *RateLimiter
	logger  logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		progressHandler:   NewProgressHandler(deps),
		markersHandler:    NewMarkersHandler(deps),
		engagementHandler: NewEngagementHandler(deps),
		socialHandler:     NewSocialHandler(deps),
		logger:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)

	s.handle(mux, "POST /alignment/{user}", "alignment", s.progressHandler.HandleSubmitAlignment)
	s.handle(mux, "GET /progress/{user}", "progress", s.progressHandler.HandleGetProgress)

	s.handle(mux, "GET /markers", "markers", s.markersHandler.HandleListMarkers)
	s.handle(mux, "POST /markers", "markers", s.markersHandler.HandleCreateMarker)
	s.handle(mux, "GET /markers/{id}", "marker", s.markersHandler.HandleGetMarker)
	s.handle(mux, "POST /markers/{id}/updates", "marker_updates", s.markersHandler.HandleRecordUpdate)
	s.handle(mux, "POST /markers/{id}/retire", "marker_retire", s.markersHandler.HandleRetire)

	s.handle(mux, "POST /engagements", "engagements", s.engagementHandler.HandleStart)
	s.handle(mux, "GET /engagements/{id}", "engagement", s.engagementHandler.HandleGet)
	s.handle(mux, "POST /engagements/{id}/advance", "engagement_advance", s.engagementHandler.HandleAdvance)
	s.handle(mux, "POST /engagements/{id}/pause", "engagement_pause", s.engagementHandler.HandlePause)
	s.handle(mux, "POST /engagements/{id}/complete", "engagement_complete", s.engagementHandler.HandleComplete)

	s.handle(mux, "GET /circle/{user}", "circle", s.socialHandler.HandleGetCircle)
	s.handle(mux, "GET /feed/{user}", "feed", s.socialHandler.HandleGetFeed)
}

// handle registers a business route behind the rate limiter and metrics.
func (s *Server) handle(mux *http.ServeMux, pattern, endpoint string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, MetricsMiddleware(s.limiter.Middleware(s.logErrors(h, endpoint)), endpoint))
}

// logErrors logs requests that end in a server error.
func (s *Server) logErrors(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(wrapped, r)
		if wrapped.statusCode >= statusInternalError {
			s.logger.Error(r.Context(), "request failed",
				logger.String("endpoint", endpoint),
				logger.String("path", r.URL.Path),
				logger.Int("status", wrapped.statusCode),
			)
		}
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := http.StatusText(status)
	if err != nil && status < statusInternalError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
