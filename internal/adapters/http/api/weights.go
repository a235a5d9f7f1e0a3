// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WeightDependencies defines the interface for weight inspection and
// administrative overrides.
type WeightDependencies interface {
	Weights(ctx context.Context) map[string]float64
	SetWeights(ctx context.Context, v map[string]float64) (map[string]float64, error)
}

// WeightsHandler handles weight vector requests.
type WeightsHandler struct {
	deps WeightDependencies
}

// NewWeightsHandler creates a new weights handler.
func NewWeightsHandler(deps WeightDependencies) *WeightsHandler {
	return &WeightsHandler{deps: deps}
}

type weightsPayload struct {
	Weights map[string]float64 `json:"weights"`
}

// HandleWeights handles GET and PUT /weights requests.
func (h *WeightsHandler) HandleWeights(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPut:
		h.handlePut(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *WeightsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, weightsPayload{Weights: h.deps.Weights(r.Context())})
}

// handlePut replaces the live weight vector. The submitted vector is
// renormalized to sum to one before publication.
func (h *WeightsHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_weights"
	var req weightsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if len(req.Weights) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Errorf("%s: %w: weights must not be empty", op, ErrBadRequest))
		return
	}
	for name, weight := range req.Weights {
		if weight < 0 {
			writeError(w, http.StatusBadRequest, "invalid_weights",
				fmt.Errorf("%s: %w: negative weight for %s", op, ErrInvalidWeights, name))
			return
		}
	}

	norm, err := h.deps.SetWeights(r.Context(), req.Weights)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_weights", fmt.Errorf("%s: %w: %w", op, ErrInvalidWeights, err))
		return
	}
	writeJSON(w, http.StatusOK, weightsPayload{Weights: norm})
}
