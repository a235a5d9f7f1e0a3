// Package feature implements the per-dimension compatibility scorers.
//
// Every scorer is a pure function returning a score in [0,1]. Missing or
// partial profile attributes yield a documented neutral default, never an
// error.
package feature

import (
	"strings"

	"github.com/handup/matchd/internal/domain/model"
)

// Neutral defaults and scoring constants.
const (
	neutralSkill        = 0.5 // no skills required
	neutralLocation     = 0.5 // country unknown on either side
	neutralAvailability = 0.5 // unmapped category pair
	neutralExperience   = 0.8 // no experience required
	neutralCause        = 0.5 // either cause set empty
	neutralHours        = 0.6 // hours unknown on either side
	maxRating           = 5.0

	skillBonusPerExtra = 0.05
	skillBonusCap      = 0.3

	overQualifiedStep   = 0.1
	overQualifiedFloor  = 0.5
	underQualifiedStep  = 0.3
	underQualifiedFloor = 0.1
)

// ScoreAll computes the full feature score set for an (anchor, candidate)
// pair. Orientation is resolved internally: one profile is always the
// volunteer and the other the opportunity.
func ScoreAll(anchor, candidate model.CandidateProfile) model.FeatureScores {
	vol, opp := anchor, candidate
	if anchor.Kind == model.AnchorOpportunity {
		vol, opp = candidate, anchor
	}

	return model.FeatureScores{
		model.FeatureSkillMatch:     SkillScore(opp.Skills, vol.Skills),
		model.FeatureLocationMatch:  LocationScore(vol, opp),
		model.FeatureAvailability:   AvailabilityScore(vol.Availability, opp.Commitment),
		model.FeatureExperience:     ExperienceScore(vol.Experience, opp.RequiredExperience),
		model.FeatureCauseAlignment: CauseScore(vol.Causes, opp.Causes),
		model.FeatureTimeCommitment: HoursScore(vol.HoursPerWeek, opp.HoursPerWeek),
		model.FeatureRating:         RatingScore(candidate.Rating),
	}
}

// SkillScore is the ratio of required skills the volunteer offers, with a
// capped bonus for extra skills beyond the requirement.
// Neutral 0.5 when nothing is required; 0.0 when the volunteer lists no
// skills at all.
func SkillScore(required, offered []string) float64 {
	if len(required) == 0 {
		return neutralSkill
	}
	if len(offered) == 0 {
		return 0.0
	}

	have := make(map[string]struct{}, len(offered))
	for _, s := range offered {
		have[normalize(s)] = struct{}{}
	}

	matched := 0
	req := make(map[string]struct{}, len(required))
	for _, s := range required {
		key := normalize(s)
		if _, dup := req[key]; dup {
			continue
		}
		req[key] = struct{}{}
		if _, ok := have[key]; ok {
			matched++
		}
	}

	score := float64(matched) / float64(len(req))

	// Extra offered skills beyond the requirement earn a capped bonus.
	extra := 0
	for key := range have {
		if _, ok := req[key]; !ok {
			extra++
		}
	}
	bonus := float64(extra) * skillBonusPerExtra
	if bonus > skillBonusCap {
		bonus = skillBonusCap
	}

	return clamp01(score + bonus)
}

// LocationScore scores geographic compatibility. Remote opportunities always
// score 1.0. Neutral 0.5 when either country is unknown.
func LocationScore(vol, opp model.CandidateProfile) float64 {
	if opp.RemoteAllowed {
		return 1.0
	}
	volCountry, oppCountry := normalize(vol.Country), normalize(opp.Country)
	if volCountry == "" || oppCountry == "" {
		return neutralLocation
	}
	if volCountry != oppCountry {
		return 0.0
	}
	volCity, oppCity := normalize(vol.City), normalize(opp.City)
	if volCity == "" || oppCity == "" {
		return 0.7
	}
	if volCity == oppCity {
		return 1.0
	}
	return 0.5
}

// Availability and commitment categories share one vocabulary.
const (
	CategoryFlexible = "flexible"
	CategoryOneTime  = "one_time"
	CategoryPartTime = "part_time"
	CategoryFullTime = "full_time"
)

// availabilityTable maps (volunteer availability, required commitment) to a
// score. Pairs not listed here fall back to the neutral default.
var availabilityTable = map[[2]string]float64{
	{CategoryFlexible, CategoryFlexible}: 1.0,
	{CategoryOneTime, CategoryOneTime}:   1.0,
	{CategoryPartTime, CategoryPartTime}: 1.0,
	{CategoryFullTime, CategoryFullTime}: 1.0,

	{CategoryFullTime, CategoryPartTime}: 0.8,
	{CategoryFullTime, CategoryOneTime}:  0.8,
	{CategoryPartTime, CategoryOneTime}:  0.8,
	{CategoryPartTime, CategoryFullTime}: 0.3,
	{CategoryOneTime, CategoryPartTime}:  0.4,
	{CategoryOneTime, CategoryFullTime}:  0.2,
}

// AvailabilityScore looks up the categorical compatibility of the
// volunteer's availability against the required commitment. "flexible" on
// either side lifts unmapped pairs to 0.9; anything else unmapped scores the
// neutral 0.5.
func AvailabilityScore(availability, commitment string) float64 {
	a, c := normalize(availability), normalize(commitment)
	if v, ok := availabilityTable[[2]string{a, c}]; ok {
		return v
	}
	if a == CategoryFlexible || c == CategoryFlexible {
		return 0.9
	}
	return neutralAvailability
}

// ExperienceScore compares the volunteer's level against the requirement.
// Neutral 0.8 when nothing is required; over-qualification decays gently to
// a 0.5 floor, under-qualification decays steeply to a 0.1 floor.
func ExperienceScore(level, required model.ExperienceLevel) float64 {
	if required == model.ExperienceUnspecified {
		return neutralExperience
	}
	if level == required {
		return 1.0
	}
	if level > required {
		gap := float64(level - required)
		score := 1.0 - overQualifiedStep*gap
		if score < overQualifiedFloor {
			return overQualifiedFloor
		}
		return score
	}
	gap := float64(required - level)
	score := 1.0 - underQualifiedStep*gap
	if score < underQualifiedFloor {
		return underQualifiedFloor
	}
	return score
}

// CauseScore is the Jaccard similarity of the two cause sets, neutral 0.5
// when either is empty.
func CauseScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return neutralCause
	}
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[normalize(s)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[normalize(s)] = struct{}{}
	}
	intersection := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return neutralCause
	}
	return float64(intersection) / float64(union)
}

// HoursScore is the ratio of the smaller to the larger weekly hour figure,
// neutral 0.6 when either is unknown.
func HoursScore(offered, required float64) float64 {
	if offered <= 0 || required <= 0 {
		return neutralHours
	}
	if offered < required {
		return offered / required
	}
	return required / offered
}

// RatingScore normalizes a 0-5 rating into [0,1].
func RatingScore(rating float64) float64 {
	return clamp01(rating / maxRating)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
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
