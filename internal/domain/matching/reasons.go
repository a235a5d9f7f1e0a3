package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/handup/matchd/internal/domain/model"
)

// Reason thresholds on individual feature scores.
const (
	partialSkillScore = 0.5
	sameCountryScore  = 0.7
	goodExperience    = 0.8
	highRating        = 4.5
	goodRating        = 4.0
	matchedAvailScore = 0.9
)

// buildReasons generates up to max human-readable reasons in a fixed
// priority order: skills, location, experience, causes, rating,
// availability. Output is deterministic for identical inputs.
func buildReasons(anchor, candidate model.CandidateProfile, scores model.FeatureScores, max int) []string {
	vol, opp := anchor, candidate
	if anchor.Kind == model.AnchorOpportunity {
		vol, opp = candidate, anchor
	}

	reasons := make([]string, 0, max)
	add := func(r string) bool {
		reasons = append(reasons, r)
		return len(reasons) >= max
	}

	if matched, required := skillOverlap(opp.Skills, vol.Skills); required > 0 && matched > 0 {
		if matched == required {
			if add("Has every required skill") {
				return reasons
			}
		} else if scores[model.FeatureSkillMatch] >= partialSkillScore {
			if add(fmt.Sprintf("Matches %d of %d required skills", matched, required)) {
				return reasons
			}
		}
	}

	switch {
	case opp.RemoteAllowed:
		if add("Remote friendly") {
			return reasons
		}
	case scores[model.FeatureLocationMatch] >= 1.0:
		if add("Based in the same city") {
			return reasons
		}
	case scores[model.FeatureLocationMatch] >= sameCountryScore:
		if add("Based in the same country") {
			return reasons
		}
	}

	if opp.RequiredExperience != model.ExperienceUnspecified {
		switch {
		case scores[model.FeatureExperience] >= 1.0:
			if add("Experience level is an exact fit") {
				return reasons
			}
		case scores[model.FeatureExperience] >= goodExperience:
			if add("Experience level fits well") {
				return reasons
			}
		}
	}

	if shared := sharedCauses(vol.Causes, opp.Causes); len(shared) > 0 {
		if add("Aligned on causes: " + strings.Join(shared, ", ")) {
			return reasons
		}
	}

	switch {
	case candidate.Rating >= highRating:
		if add(fmt.Sprintf("Highly rated (%.1f/5)", candidate.Rating)) {
			return reasons
		}
	case candidate.Rating >= goodRating:
		if add("Well rated") {
			return reasons
		}
	}

	if scores[model.FeatureAvailability] >= matchedAvailScore {
		add("Availability fits the required commitment")
	}

	return reasons
}

// skillOverlap counts distinct required skills present in the offered set.
func skillOverlap(required, offered []string) (matched, total int) {
	have := make(map[string]struct{}, len(offered))
	for _, s := range offered {
		have[fold(s)] = struct{}{}
	}
	seen := make(map[string]struct{}, len(required))
	for _, s := range required {
		key := fold(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := have[key]; ok {
			matched++
		}
	}
	return matched, len(seen)
}

// sharedCauses returns the sorted intersection of two cause sets, capped at
// two entries for display.
func sharedCauses(a, b []string) []string {
	set := make(map[string]string, len(a))
	for _, c := range a {
		set[fold(c)] = strings.TrimSpace(c)
	}
	shared := make([]string, 0, 2)
	seen := make(map[string]struct{})
	for _, c := range b {
		key := fold(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if display, ok := set[key]; ok {
			shared = append(shared, display)
		}
	}
	sort.Strings(shared)
	if len(shared) > 2 {
		shared = shared[:2]
	}
	return shared
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
