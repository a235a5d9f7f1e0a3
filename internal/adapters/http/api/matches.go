// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/handup/matchd/internal/domain/model"
)

// MatchDependencies defines the interface for match lookups.
type MatchDependencies interface {
	FindMatches(ctx context.Context, kind model.AnchorKind, anchorID string, limit int) ([]model.MatchResult, error)
}

// MatchesHandler handles match requests.
type MatchesHandler struct {
	deps     MatchDependencies
	maxLimit int
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies, maxLimit int) *MatchesHandler {
	return &MatchesHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetMatches handles GET /matches?volunteer_id=X or
// GET /matches?opportunity_id=Y requests. Exactly one anchor id must be
// provided; limit is optional.
func (h *MatchesHandler) HandleGetMatches(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_matches"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	volunteerID := r.URL.Query().Get("volunteer_id")
	opportunityID := r.URL.Query().Get("opportunity_id")

	var (
		kind     model.AnchorKind
		anchorID string
	)
	switch {
	case volunteerID != "" && opportunityID != "":
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%s: %w: provide either volunteer_id or opportunity_id, not both", op, ErrBadRequest))
		return
	case volunteerID != "":
		kind, anchorID = model.AnchorVolunteer, volunteerID
	case opportunityID != "":
		kind, anchorID = model.AnchorOpportunity, opportunityID
	default:
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%s: %w: volunteer_id or opportunity_id is required", op, ErrBadRequest))
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request",
				fmt.Errorf("%s: %w: limit must be a positive integer", op, ErrBadRequest))
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	results, err := h.deps.FindMatches(r.Context(), kind, anchorID, limit)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, results)
}
