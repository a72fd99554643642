package scoring

import (
	"math"
	"strings"

	"github.com/Guyuepp/likers-match/domain"
)

const maxCountedPhotos = 3

// Completeness rates how filled-in and trustworthy a profile is, in [0,100].
func Completeness(p domain.CandidateProfile) float64 {
	score := 0.0
	if strings.TrimSpace(p.Bio) != "" {
		score += 15
	}
	score += 30 * float64(min(len(p.Photos), maxCountedPhotos)) / maxCountedPhotos
	if len(p.Interests) > 0 {
		score += 10
	}
	if p.Occupation != nil && strings.TrimSpace(*p.Occupation) != "" {
		score += 5
	}
	if p.HeightCm != nil {
		score += 5
	}
	if p.Location != nil {
		score += 5
	}
	if p.RelationshipIntent != "" {
		score += 10
	}
	if p.IsVerified {
		score += 20
	}
	return math.Min(100, math.Round(score*100)/100)
}
