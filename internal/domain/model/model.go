// Package model contains domain models passed between layers.
package model

import "time"

// AnchorKind identifies which side of a match request is fixed.
type AnchorKind string

const (
	// AnchorVolunteer means a volunteer is looking for opportunities.
	AnchorVolunteer AnchorKind = "volunteer"
	// AnchorOpportunity means an opportunity is looking for volunteers.
	AnchorOpportunity AnchorKind = "opportunity"
)

// Valid reports whether the kind is one of the known anchors.
func (k AnchorKind) Valid() bool {
	return k == AnchorVolunteer || k == AnchorOpportunity
}

// ExperienceLevel orders experience categories for gap scoring.
// Zero means unspecified (no requirement on the opportunity side).
type ExperienceLevel int

const (
	ExperienceUnspecified ExperienceLevel = iota
	ExperienceBeginner
	ExperienceIntermediate
	ExperienceAdvanced
	ExperienceExpert
)

// Feature names used across score sets and weight vectors.
const (
	FeatureSkillMatch     = "skill_match"
	FeatureLocationMatch  = "location_match"
	FeatureAvailability   = "availability"
	FeatureExperience     = "experience"
	FeatureCauseAlignment = "cause_alignment"
	FeatureTimeCommitment = "time_commitment"
	FeatureRating         = "rating"
)

// FeatureNames returns all scoring dimensions in reason-priority order.
func FeatureNames() []string {
	return []string{
		FeatureSkillMatch,
		FeatureLocationMatch,
		FeatureAvailability,
		FeatureExperience,
		FeatureCauseAlignment,
		FeatureTimeCommitment,
		FeatureRating,
	}
}

// FeatureScores maps a feature name to a score in [0,1]. A set is created
// fresh per (anchor, candidate) pair and never mutated after scoring.
type FeatureScores map[string]float64

// Clone returns an independent copy of the score set.
func (f FeatureScores) Clone() FeatureScores {
	out := make(FeatureScores, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// CandidateProfile is a read-only snapshot of the matchable attributes of a
// volunteer or an opportunity. The matching core never mutates it.
type CandidateProfile struct {
	ID    string
	Title string
	Kind  AnchorKind

	// Skills are offered skills for a volunteer and required skills for an
	// opportunity.
	Skills []string
	Causes []string

	Country       string
	City          string
	RemoteAllowed bool

	// Availability is the volunteer's availability category; Commitment is
	// the opportunity's required commitment category.
	Availability string
	Commitment   string

	// HoursPerWeek is zero when unknown.
	HoursPerWeek float64

	// Experience is the volunteer's level; RequiredExperience is the
	// opportunity's requirement (ExperienceUnspecified = none required).
	Experience         ExperienceLevel
	RequiredExperience ExperienceLevel

	// Rating is on a 0-5 scale.
	Rating float64

	// Urgency is an opportunity priority label used by personalization.
	Urgency string
}

// MatchResult is one ranked entry returned to the caller. The score is
// scaled to 0-100; Reasons holds at most four human-readable strings.
type MatchResult struct {
	CandidateID string   `json:"candidate_id"`
	Title       string   `json:"title"`
	Score       float64  `json:"score"`
	Reasons     []string `json:"reasons"`
}

// AuditRecord captures exactly what produced a match decision. It is written
// once, before the result is returned, and never updated.
type AuditRecord struct {
	MatchID     string
	AnchorID    string
	CandidateID string
	Features    FeatureScores
	Weights     map[string]float64
	FinalScore  float64 // on the 0-1 scale, pre-scaling
	CreatedAt   time.Time
}

// FeedbackEvent reports the real-world outcome of a previously returned
// match. Outcome is kept as the raw label so unknown values can be warned
// about instead of rejected.
type FeedbackEvent struct {
	EventID     string
	AnchorID    string
	CandidateID string
	Outcome     string
	// Score overrides the outcome's target score when set.
	Score *float64
	TS    time.Time
}

// LearningRecord is the audit trail entry appended after a weight update.
type LearningRecord struct {
	EventID     string
	AnchorID    string
	CandidateID string
	Outcome     string
	Predicted   float64
	Target      float64
	Error       float64
	Weights     map[string]float64
	CreatedAt   time.Time
}

// HistoryEntry is a past outcome of the anchor user, reduced to the
// attributes personalization cares about.
type HistoryEntry struct {
	Causes  []string
	Country string
	City    string
	Urgency string
	Outcome Outcome
}
