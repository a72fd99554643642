package response

import (
	"time"

	"github.com/Guyuepp/likers-match/domain"
)

const DateTimeFormat = time.RFC3339

type Liker struct {
	ID                 string   `json:"id"`
	EventID            string   `json:"event_id"`
	Action             string   `json:"action"`
	Name               string   `json:"name"`
	Age                int      `json:"age"`
	Gender             string   `json:"gender"`
	Bio                string   `json:"bio"`
	Interests          []string `json:"interests"`
	RelationshipIntent string   `json:"relationship_intent,omitempty"`
	Photos             []string `json:"photos"`
	IsVerified         bool     `json:"is_verified"`
	Occupation         *string  `json:"occupation,omitempty"`
	HeightCm           *int     `json:"height_cm,omitempty"`
	LastActiveAt       string   `json:"last_active_at,omitempty"`
	MatchScore         float64  `json:"match_score"`
	DistanceKm         *float64 `json:"distance_km,omitempty"`
	Completeness       float64  `json:"completeness"`
	LikedAt            string   `json:"liked_at"`
}

// NewLikerFromDomain: Domain -> Response
func NewLikerFromDomain(l *domain.Liker) Liker {
	res := Liker{
		ID:                 l.ID,
		EventID:            l.EventID,
		Action:             string(l.Action),
		Name:               l.Name,
		Age:                l.Age,
		Gender:             l.Gender,
		Bio:                l.Bio,
		Interests:          l.Interests,
		RelationshipIntent: l.RelationshipIntent,
		Photos:             l.Photos,
		IsVerified:         l.IsVerified,
		Occupation:         l.Occupation,
		HeightCm:           l.HeightCm,
		MatchScore:         l.MatchScore,
		DistanceKm:         l.DistanceKm,
		Completeness:       l.Completeness,
		LikedAt:            l.LikedAt.Format(DateTimeFormat),
	}
	if l.LastActiveAt != nil {
		res.LastActiveAt = l.LastActiveAt.Format(DateTimeFormat)
	}
	return res
}

type Feed struct {
	Entries    []Liker `json:"entries"`
	HasMore    bool    `json:"has_more"`
	TotalCount int64   `json:"total_count"`
}

func NewFeedFromDomain(s *domain.FeedSnapshot) Feed {
	entries := make([]Liker, len(s.Entries))
	for i := range s.Entries {
		entries[i] = NewLikerFromDomain(&s.Entries[i])
	}
	return Feed{
		Entries:    entries,
		HasMore:    s.HasMore,
		TotalCount: s.TotalCount,
	}
}
