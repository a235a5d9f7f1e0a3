// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/handup/matchd/internal/domain/learning"
	"github.com/handup/matchd/internal/domain/model"
)

// FeedbackDependencies defines the interface for feedback processing.
type FeedbackDependencies interface {
	RecordFeedback(ctx context.Context, event model.FeedbackEvent) (learning.Result, error)
	EnqueueFeedback(ctx context.Context, event model.FeedbackEvent) bool
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
}

// FeedbackHandler handles feedback requests.
type FeedbackHandler struct {
	deps FeedbackDependencies
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(deps FeedbackDependencies) *FeedbackHandler {
	return &FeedbackHandler{deps: deps}
}

type feedbackResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// HandlePostFeedback handles POST /feedback requests. The event is applied
// synchronously and the response reports whether the weight update was
// applied or skipped.
func (h *FeedbackHandler) HandlePostFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_feedback"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}

	event := req.toEvent()
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), event.EventID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	result, err := h.deps.RecordFeedback(r.Context(), event)
	if err != nil {
		// Allow the caller to retry with the same event id.
		h.deps.Unrecord(r.Context(), event.EventID)
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, feedbackResponse{Status: string(result), EventID: event.EventID})
}

type feedbackBatchResponse struct {
	Queued     int `json:"queued"`
	Duplicates int `json:"duplicates"`
	Dropped    int `json:"dropped"`
}

// HandlePostFeedbackBatch handles POST /feedback/batch requests. Events are
// enqueued for asynchronous processing by the learning workers; the
// response reports how many were queued, deduplicated or dropped under
// backpressure.
func (h *FeedbackHandler) HandlePostFeedbackBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_feedback_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var reqs []feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: empty batch", op, ErrBadRequest))
		return
	}
	for i, req := range reqs {
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request",
				fmt.Errorf("%s: %w: event %d: %w", op, ErrBadRequest, i, err))
			return
		}
	}

	var resp feedbackBatchResponse
	for _, req := range reqs {
		event := req.toEvent()
		if event.EventID == "" {
			event.EventID = uuid.NewString()
		}
		if h.deps.SeenAndRecord(r.Context(), event.EventID) {
			resp.Duplicates++
			continue
		}
		if ok := h.deps.EnqueueFeedback(r.Context(), event); !ok {
			// Rollback the "seen" status since enqueue failed
			h.deps.Unrecord(r.Context(), event.EventID)
			resp.Dropped++
			continue
		}
		resp.Queued++
	}

	if resp.Queued == 0 && resp.Dropped > 0 {
		writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%s: %w", op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}
