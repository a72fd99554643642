package filter

import (
	"strings"

	"github.com/Guyuepp/likers-match/domain"
)

// Match reports whether l passes every clause set in spec.
// A clause whose field is missing on l passes: missing data never excludes.
func Match(l domain.Liker, spec domain.FilterSpec) bool {
	if spec.Age != nil && l.Age > 0 && !spec.Age.Contains(l.Age) {
		return false
	}
	if spec.HeightCm != nil && l.HeightCm != nil && !spec.HeightCm.Contains(*l.HeightCm) {
		return false
	}
	if len(spec.Intents) > 0 && l.RelationshipIntent != "" && !containsFold(spec.Intents, l.RelationshipIntent) {
		return false
	}
	if spec.MaxDistanceKm != nil && l.DistanceKm != nil && *l.DistanceKm > *spec.MaxDistanceKm {
		return false
	}
	if len(spec.Occupations) > 0 && l.Occupation != nil && !containsFold(spec.Occupations, *l.Occupation) {
		return false
	}
	if spec.Completeness != nil && !spec.Completeness.Contains(l.Completeness) {
		return false
	}
	if spec.MatchScore != nil && !spec.MatchScore.Contains(l.MatchScore) {
		return false
	}
	return true
}

// Apply returns the entries of likers that pass spec, keeping their order
func Apply(likers []domain.Liker, spec domain.FilterSpec) []domain.Liker {
	if spec.IsZero() {
		return likers
	}
	res := make([]domain.Liker, 0, len(likers))
	for _, l := range likers {
		if Match(l, spec) {
			res = append(res, l)
		}
	}
	return res
}

func containsFold(set []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, s := range set {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}
