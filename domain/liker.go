package domain

import (
	"context"
	"time"
)

// DefaultFeedPageSize is how many ledger rows one feed page reads
const DefaultFeedPageSize = 20

// Liker is a candidate with a pending like toward the viewer, scored for that viewer.
// It is rebuilt on every feed computation and never persisted.
type Liker struct {
	ID                 string     `json:"id"`
	EventID            string     `json:"event_id"`
	Action             Action     `json:"action"`
	Name               string     `json:"name"`
	Age                int        `json:"age"`
	Gender             string     `json:"gender"`
	Bio                string     `json:"bio"`
	Interests          []string   `json:"interests"`
	RelationshipIntent string     `json:"relationship_intent"`
	Photos             []string   `json:"photos"`
	IsVerified         bool       `json:"is_verified"`
	Occupation         *string    `json:"occupation,omitempty"`
	HeightCm           *int       `json:"height_cm,omitempty"`
	LastActiveAt       *time.Time `json:"last_active_at,omitempty"`
	MatchScore         float64    `json:"match_score"`
	DistanceKm         *float64   `json:"distance_km,omitempty"`
	Completeness       float64    `json:"completeness"`
	LikedAt            time.Time  `json:"liked_at"`
}

// FeedSnapshot is a copy of a viewer's feed state
type FeedSnapshot struct {
	Entries    []Liker
	HasMore    bool
	TotalCount int64
}

// FeedUsecase is one viewer's liker feed
type FeedUsecase interface {
	Load(ctx context.Context, viewerID string) error
	Refill(ctx context.Context) error
	MarkConsumed(ctx context.Context, eventID string) error
	Refetch(ctx context.Context) error
	Snapshot() FeedSnapshot
	// View is Snapshot with spec applied to the entries
	View(spec FilterSpec) FeedSnapshot
	Close()
}

// FeedSessions hands out the per-viewer feed and match coordinator
type FeedSessions interface {
	// Feed returns the viewer's feed, opening and loading it on first use
	Feed(ctx context.Context, viewerID string) (FeedUsecase, error)
	Coordinator(ctx context.Context, viewerID string) (MatchUsecase, error)
	Close(viewerID string)
}
