// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/handup/matchd/internal/adapters/directory"
	"github.com/handup/matchd/internal/domain/learning"
	"github.com/handup/matchd/internal/domain/model"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Matching
	FindMatches(ctx context.Context, kind model.AnchorKind, anchorID string, limit int) ([]model.MatchResult, error)

	// Feedback
	RecordFeedback(ctx context.Context, event model.FeedbackEvent) (learning.Result, error)
	EnqueueFeedback(ctx context.Context, event model.FeedbackEvent) bool
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)

	// Weights
	Weights(ctx context.Context) map[string]float64
	SetWeights(ctx context.Context, v map[string]float64) (map[string]float64, error)

	// Directory
	AddProfile(ctx context.Context, p model.CandidateProfile) error
	AddApplication(ctx context.Context, volunteerID, opportunityID string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	matchesHandler  *MatchesHandler
	feedbackHandler *FeedbackHandler
	weightsHandler  *WeightsHandler
	profilesHandler *ProfilesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxMatchLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		matchesHandler:  NewMatchesHandler(deps, maxMatchLimit),
		feedbackHandler: NewFeedbackHandler(deps),
		weightsHandler:  NewWeightsHandler(deps),
		profilesHandler: NewProfilesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/matches", MetricsMiddleware(s.matchesHandler.HandleGetMatches, "matches"))
	mux.HandleFunc("/feedback", MetricsMiddleware(s.feedbackHandler.HandlePostFeedback, "feedback"))
	mux.HandleFunc("/feedback/batch", MetricsMiddleware(s.feedbackHandler.HandlePostFeedbackBatch, "feedback_batch"))
	mux.HandleFunc("/weights", MetricsMiddleware(s.weightsHandler.HandleWeights, "weights"))
	mux.HandleFunc("/volunteers", MetricsMiddleware(s.profilesHandler.HandlePostVolunteer, "volunteers"))
	mux.HandleFunc("/opportunities", MetricsMiddleware(s.profilesHandler.HandlePostOpportunity, "opportunities"))
	mux.HandleFunc("/applications", MetricsMiddleware(s.profilesHandler.HandlePostApplication, "applications"))
}

// feedbackRequest mirrors the wire schema for POST /feedback.
type feedbackRequest struct {
	EventID       string   `json:"event_id"`
	VolunteerID   string   `json:"volunteer_id"`
	OpportunityID string   `json:"opportunity_id"`
	Outcome       string   `json:"outcome"`
	Score         *float64 `json:"score,omitempty"`
	TS            string   `json:"ts,omitempty"`
}

func (f feedbackRequest) validate() error {
	switch {
	case strings.TrimSpace(f.VolunteerID) == "":
		return errors.New("missing volunteer_id")
	case strings.TrimSpace(f.OpportunityID) == "":
		return errors.New("missing opportunity_id")
	case strings.TrimSpace(f.Outcome) == "":
		return errors.New("missing outcome")
	}
	if f.TS != "" {
		if _, err := time.Parse(time.RFC3339, f.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	if f.Score != nil && (*f.Score < 0 || *f.Score > 1) {
		return errors.New("score must be in [0,1]")
	}
	return nil
}

func (f feedbackRequest) toEvent() model.FeedbackEvent {
	event := model.FeedbackEvent{
		EventID:     f.EventID,
		AnchorID:    f.VolunteerID,
		CandidateID: f.OpportunityID,
		Outcome:     f.Outcome,
		Score:       f.Score,
	}
	if f.TS != "" {
		event.TS, _ = time.Parse(time.RFC3339, f.TS)
	}
	return event
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
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

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound reports whether an upstream error should map to 404.
func isNotFound(err error) bool {
	return errors.Is(err, directory.ErrProfileNotFound)
}
