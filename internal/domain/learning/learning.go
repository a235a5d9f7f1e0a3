// Package learning adjusts the feature weight vector from observed match
// outcomes.
package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/handup/matchd/internal/domain/model"
	"github.com/handup/matchd/internal/domain/weights"
	"github.com/handup/matchd/pkg/logger"
	"github.com/handup/matchd/pkg/metrics"
)

// defaultLearningRate is the fixed step size of the weight update.
const defaultLearningRate = 0.01

// unknownOutcomeTarget is used when a feedback label is outside the closed
// outcome set; the event still counts, with a recorded warning.
const unknownOutcomeTarget = 0.5

// AuditReader looks up the decision record for a returned match. The
// boolean is false when no record exists for the pair.
type AuditReader interface {
	ReadAudit(ctx context.Context, anchorID, candidateID string) (model.AuditRecord, bool, error)
}

// Persister stores updated weight vectors and the learning audit trail.
type Persister interface {
	WriteWeights(ctx context.Context, v map[string]float64) error
	WriteLearning(ctx context.Context, rec model.LearningRecord) error
}

// Result reports what a feedback event did.
type Result string

const (
	// ResultApplied means the event produced a committed weight update.
	ResultApplied Result = "applied"
	// ResultSkipped means no audit record was found; the match may have
	// expired or its audit write failed. Not an error.
	ResultSkipped Result = "skipped"
)

// Engine is the learning feedback loop. Updates run through the weight
// store's single-writer path, so concurrent scoring only ever observes a
// fully renormalized vector.
type Engine struct {
	audit   AuditReader
	sink    Persister
	weights *weights.Store

	learningRate float64

	logger logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLearningRate overrides the fixed update step size.
func WithLearningRate(rate float64) Option {
	return func(e *Engine) {
		if rate > 0 && rate < 1 {
			e.learningRate = rate
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New constructs a learning Engine.
func New(audit AuditReader, sink Persister, store *weights.Store, opts ...Option) *Engine {
	e := &Engine{
		audit:        audit,
		sink:         sink,
		weights:      store,
		learningRate: defaultLearningRate,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logger.Get().Named("learning")
	}

	return e
}

// Apply consumes one feedback event: it looks up the audit record, computes
// the prediction error, updates and renormalizes the weight vector, and
// persists both the vector and a learning record.
//
// The per-feature step is w += rate * error * (score * w), a proportional
// contribution heuristic, not a textbook gradient update. Changing it
// changes ranking behavior; see DESIGN.md before touching it.
func (e *Engine) Apply(ctx context.Context, event model.FeedbackEvent) (Result, error) {
	record, found, err := e.audit.ReadAudit(ctx, event.AnchorID, event.CandidateID)
	if err != nil {
		return ResultSkipped, fmt.Errorf("audit lookup for %s/%s: %w", event.AnchorID, event.CandidateID, err)
	}
	if !found {
		// Feedback arrives keyed volunteer/opportunity regardless of which
		// side anchored the match, so the reverse orientation counts too.
		record, found, err = e.audit.ReadAudit(ctx, event.CandidateID, event.AnchorID)
		if err != nil {
			return ResultSkipped, fmt.Errorf("audit lookup for %s/%s: %w", event.CandidateID, event.AnchorID, err)
		}
	}
	if !found {
		metrics.RecordFeedbackSkipped()
		e.logger.Debug(ctx, "no audit record for feedback, skipping",
			logger.String("anchorID", event.AnchorID),
			logger.String("candidateID", event.CandidateID),
		)
		return ResultSkipped, nil
	}

	target := e.targetScore(ctx, event)
	predicted := record.FinalScore
	errVal := target - predicted
	metrics.RecordLearningError(errVal)

	updated, err := e.weights.Update(func(v weights.Vector) error {
		for feat, score := range record.Features {
			w, ok := v[feat]
			if !ok {
				continue
			}
			v[feat] = w + e.learningRate*errVal*(score*w)
		}
		for feat, w := range v {
			if w < weights.Floor {
				v[feat] = weights.Floor
			}
		}
		return nil
	})
	if err != nil {
		// The whole update is discarded; the original vector stays live.
		metrics.RecordWeightUpdateError()
		e.logger.Error(ctx, "weight update discarded",
			logger.String("anchorID", event.AnchorID),
			logger.String("candidateID", event.CandidateID),
			logger.Error(err),
		)
		return ResultSkipped, fmt.Errorf("%w: %w", ErrUpdateDiscarded, err)
	}
	metrics.RecordWeightUpdate()

	if err := e.sink.WriteWeights(ctx, updated); err != nil {
		e.logger.Error(ctx, "weight persistence failed", logger.Error(err))
	}
	learningRec := model.LearningRecord{
		EventID:     event.EventID,
		AnchorID:    event.AnchorID,
		CandidateID: event.CandidateID,
		Outcome:     event.Outcome,
		Predicted:   predicted,
		Target:      target,
		Error:       errVal,
		Weights:     updated.Clone(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.sink.WriteLearning(ctx, learningRec); err != nil {
		e.logger.Error(ctx, "learning record persistence failed", logger.Error(err))
	}

	metrics.RecordFeedbackApplied()
	return ResultApplied, nil
}

// targetScore resolves the score the prediction is compared against. An
// explicit override wins; otherwise the outcome label is mapped through the
// closed outcome set, with unknown labels warned about and treated as
// neutral.
func (e *Engine) targetScore(ctx context.Context, event model.FeedbackEvent) float64 {
	if event.Score != nil {
		return clamp01(*event.Score)
	}
	outcome, ok := model.ParseOutcome(event.Outcome)
	if !ok {
		e.logger.Warn(ctx, "unknown feedback outcome, using neutral target",
			logger.String("outcome", event.Outcome),
			logger.String("anchorID", event.AnchorID),
		)
		return unknownOutcomeTarget
	}
	return outcome.TargetScore()
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
