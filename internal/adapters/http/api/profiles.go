// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/handup/matchd/internal/domain/model"
)

// ProfileDependencies defines the interface for directory registration.
type ProfileDependencies interface {
	AddProfile(ctx context.Context, p model.CandidateProfile) error
	AddApplication(ctx context.Context, volunteerID, opportunityID string) error
}

// ProfilesHandler handles volunteer, opportunity and application
// registration requests.
type ProfilesHandler struct {
	deps ProfileDependencies
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(deps ProfileDependencies) *ProfilesHandler {
	return &ProfilesHandler{deps: deps}
}

// profileRequest mirrors the wire schema for POST /volunteers and
// POST /opportunities. Experience levels are string labels.
type profileRequest struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title,omitempty"`
	Skills             []string `json:"skills,omitempty"`
	Causes             []string `json:"causes,omitempty"`
	Country            string   `json:"country,omitempty"`
	City               string   `json:"city,omitempty"`
	RemoteAllowed      bool     `json:"remote_allowed,omitempty"`
	Availability       string   `json:"availability,omitempty"`
	Commitment         string   `json:"commitment,omitempty"`
	HoursPerWeek       float64  `json:"hours_per_week,omitempty"`
	Experience         string   `json:"experience,omitempty"`
	RequiredExperience string   `json:"required_experience,omitempty"`
	Rating             float64  `json:"rating,omitempty"`
	Urgency            string   `json:"urgency,omitempty"`
}

func (p profileRequest) validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("missing id")
	}
	if _, ok := parseExperience(p.Experience); !ok {
		return fmt.Errorf("unknown experience level %q", p.Experience)
	}
	if _, ok := parseExperience(p.RequiredExperience); !ok {
		return fmt.Errorf("unknown required_experience level %q", p.RequiredExperience)
	}
	if p.Rating < 0 || p.Rating > 5 {
		return errors.New("rating must be in [0,5]")
	}
	return nil
}

func (p profileRequest) toProfile(kind model.AnchorKind) model.CandidateProfile {
	experience, _ := parseExperience(p.Experience)
	required, _ := parseExperience(p.RequiredExperience)
	return model.CandidateProfile{
		ID:                 p.ID,
		Title:              p.Title,
		Kind:               kind,
		Skills:             p.Skills,
		Causes:             p.Causes,
		Country:            p.Country,
		City:               p.City,
		RemoteAllowed:      p.RemoteAllowed,
		Availability:       p.Availability,
		Commitment:         p.Commitment,
		HoursPerWeek:       p.HoursPerWeek,
		Experience:         experience,
		RequiredExperience: required,
		Rating:             p.Rating,
		Urgency:            p.Urgency,
	}
}

func parseExperience(label string) (model.ExperienceLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "":
		return model.ExperienceUnspecified, true
	case "beginner":
		return model.ExperienceBeginner, true
	case "intermediate":
		return model.ExperienceIntermediate, true
	case "advanced":
		return model.ExperienceAdvanced, true
	case "expert":
		return model.ExperienceExpert, true
	default:
		return model.ExperienceUnspecified, false
	}
}

// HandlePostVolunteer handles POST /volunteers requests.
func (h *ProfilesHandler) HandlePostVolunteer(w http.ResponseWriter, r *http.Request) {
	h.handlePostProfile(w, r, "api.post_volunteer", model.AnchorVolunteer)
}

// HandlePostOpportunity handles POST /opportunities requests.
func (h *ProfilesHandler) HandlePostOpportunity(w http.ResponseWriter, r *http.Request) {
	h.handlePostProfile(w, r, "api.post_opportunity", model.AnchorOpportunity)
}

func (h *ProfilesHandler) handlePostProfile(w http.ResponseWriter, r *http.Request, op string, kind model.AnchorKind) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if err := h.deps.AddProfile(r.Context(), req.toProfile(kind)); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID, "status": "created"})
}

// applicationRequest mirrors the wire schema for POST /applications.
type applicationRequest struct {
	VolunteerID   string `json:"volunteer_id"`
	OpportunityID string `json:"opportunity_id"`
}

// HandlePostApplication handles POST /applications requests. A recorded
// application excludes the pair from future match results.
func (h *ProfilesHandler) HandlePostApplication(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_application"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req applicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.VolunteerID) == "" || strings.TrimSpace(req.OpportunityID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%s: %w: volunteer_id and opportunity_id are required", op, ErrBadRequest))
		return
	}
	if err := h.deps.AddApplication(r.Context(), req.VolunteerID, req.OpportunityID); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}
