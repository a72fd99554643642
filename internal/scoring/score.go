package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/Guyuepp/likers-match/domain"
)

// Input is the part of a profile the score looks at
type Input struct {
	Location           *domain.Location
	MatchRadiusKm      float64
	RelationshipIntent string
	Interests          []string
	LastActiveAt       *time.Time
}

// FromProfile extracts the scoring input of p
func FromProfile(p domain.CandidateProfile) Input {
	return Input{
		Location:           p.Location,
		MatchRadiusKm:      p.MatchRadiusKm,
		RelationshipIntent: p.RelationshipIntent,
		Interests:          p.Interests,
		LastActiveAt:       p.LastActiveAt,
	}
}

// Calculator turns a viewer/candidate pair into a compatibility score in [0,100].
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	w Weights
}

// NewCalculator rescales the component weights of w to sum to 100.
// w must pass Validate.
func NewCalculator(w Weights) *Calculator {
	total := w.Proximity + w.Intent + w.Interests + w.Recency
	w.Proximity = w.Proximity / total * 100
	w.Intent = w.Intent / total * 100
	w.Interests = w.Interests / total * 100
	w.Recency = w.Recency / total * 100
	return &Calculator{w: w}
}

// Weights returns the normalised weights
func (c *Calculator) Weights() Weights {
	return c.w
}

// Score rates candidate for viewer. distanceKm is nil when either location is unknown,
// at is the reference time for recency.
func (c *Calculator) Score(viewer, candidate Input, distanceKm *float64, at time.Time) float64 {
	s := c.w.Proximity*c.proximity(viewer, candidate, distanceKm) +
		c.w.Intent*c.intent(viewer.RelationshipIntent, candidate.RelationshipIntent) +
		c.w.Interests*c.interests(viewer.Interests, candidate.Interests) +
		c.w.Recency*c.recency(candidate.LastActiveAt, at)

	s = math.Round(s*100) / 100
	return math.Min(100, math.Max(0, s))
}

// proximity is 1 at distance 0 and falls linearly to 0 at the stricter radius.
// Past either party's radius it is 0.
func (c *Calculator) proximity(viewer, candidate Input, distanceKm *float64) float64 {
	if distanceKm == nil {
		return c.w.MissingDataCredit
	}
	d := math.Max(0, *distanceKm)

	radius := 0.0
	for _, r := range []float64{viewer.MatchRadiusKm, candidate.MatchRadiusKm} {
		if r <= 0 {
			continue
		}
		if d > r {
			return 0
		}
		if radius == 0 || r < radius {
			radius = r
		}
	}
	if radius == 0 {
		radius = c.w.DefaultRadiusKm
		if d > radius {
			return 0
		}
	}
	return 1 - d/radius
}

func (c *Calculator) intent(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == "" || b == "" || a == domain.IntentUnsure || b == domain.IntentUnsure {
		return c.w.IntentPartialCredit
	}
	if a == b {
		return 1
	}
	return 0
}

// interests is the Jaccard index of the two interest sets
func (c *Calculator) interests(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return c.w.MissingDataCredit
	}

	shared := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	return float64(shared) / float64(union)
}

func (c *Calculator) recency(lastActive *time.Time, at time.Time) float64 {
	if lastActive == nil || lastActive.IsZero() {
		return c.w.MissingDataCredit
	}
	idle := at.Sub(*lastActive).Hours()
	if idle <= 0 {
		return 1
	}
	return math.Pow(0.5, idle/c.w.RecencyHalfLifeHours)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if k := normalize(it); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
