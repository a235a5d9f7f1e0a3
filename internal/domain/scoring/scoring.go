// Package scoring combines feature scores into a final match score: a
// weighted aggregate plus a bounded personalization boost.
package scoring

import (
	"github.com/handup/matchd/internal/domain/model"
	"github.com/handup/matchd/internal/domain/weights"
)

// Personalization bounds.
const (
	successSignalBoost  = 0.05
	rejectSignalPenalty = 0.02
	boostFloor          = -0.1
	boostCeiling        = 0.2
)

// Aggregate computes the weighted sum of the feature scores under the given
// vector. Features missing from the score set contribute zero; scorers
// always populate every dimension, so this is a non-error path.
func Aggregate(scores model.FeatureScores, w weights.Vector) float64 {
	var total float64
	for feature, weight := range w {
		if score, ok := scores[feature]; ok {
			total += score * weight
		}
	}
	return total
}

// Boost derives a bounded additive adjustment from the anchor user's past
// outcomes. Each cause, country or urgency overlap with a successful past
// match adds a small increment; overlaps with rejected history subtract a
// smaller one. The total is clamped to [boostFloor, boostCeiling].
func Boost(candidate model.CandidateProfile, history []model.HistoryEntry) float64 {
	var boost float64
	for _, entry := range history {
		signals := overlapSignals(candidate, entry)
		if signals == 0 {
			continue
		}
		switch {
		case entry.Outcome.Positive():
			boost += successSignalBoost * float64(signals)
		case entry.Outcome == model.OutcomeRejected:
			boost -= rejectSignalPenalty * float64(signals)
		}
	}
	if boost > boostCeiling {
		return boostCeiling
	}
	if boost < boostFloor {
		return boostFloor
	}
	return boost
}

// Final applies the boost to the aggregate and clamps the combined score to
// [0,1] before any scaling.
func Final(scores model.FeatureScores, w weights.Vector, boost float64) float64 {
	score := Aggregate(scores, w) + boost
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// overlapSignals counts the personalization dimensions on which the
// candidate overlaps a history entry.
func overlapSignals(candidate model.CandidateProfile, entry model.HistoryEntry) int {
	signals := 0
	if sharesCause(candidate.Causes, entry.Causes) {
		signals++
	}
	if candidate.Country != "" && equalsFold(candidate.Country, entry.Country) {
		signals++
	}
	if candidate.Urgency != "" && equalsFold(candidate.Urgency, entry.Urgency) {
		signals++
	}
	return signals
}

func sharesCause(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, c := range a {
		set[fold(c)] = struct{}{}
	}
	for _, c := range b {
		if _, ok := set[fold(c)]; ok {
			return true
		}
	}
	return false
}
