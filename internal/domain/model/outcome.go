package model

import "strings"

// Outcome is the closed set of feedback outcome labels. New outcomes are a
// compile-time decision; unknown labels stay on the raw string side of
// FeedbackEvent and never become an Outcome value.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeAccepted  Outcome = "accepted"
	OutcomeRejected  Outcome = "rejected"
	OutcomeCompleted Outcome = "completed"
)

// ParseOutcome maps a raw label to an Outcome, ignoring case and
// surrounding whitespace. The boolean is false for labels outside the
// closed set.
func ParseOutcome(label string) (Outcome, bool) {
	switch Outcome(strings.ToLower(strings.TrimSpace(label))) {
	case OutcomeApplied:
		return OutcomeApplied, true
	case OutcomeAccepted:
		return OutcomeAccepted, true
	case OutcomeRejected:
		return OutcomeRejected, true
	case OutcomeCompleted:
		return OutcomeCompleted, true
	default:
		return "", false
	}
}

// TargetScore maps an outcome to the score the prediction is compared
// against by the learning loop.
func (o Outcome) TargetScore() float64 {
	switch o {
	case OutcomeApplied:
		return 0.8
	case OutcomeAccepted:
		return 0.9
	case OutcomeRejected:
		return 0.2
	case OutcomeCompleted:
		return 1.0
	default:
		// Unknown labels are handled before parsing; keep the neutral
		// target as a safety net.
		return 0.5
	}
}

// Positive reports whether the outcome counts as a successful signal for
// personalization.
func (o Outcome) Positive() bool {
	return o == OutcomeAccepted || o == OutcomeCompleted
}
