package domain

import (
	"context"
	"time"
)

// IntentUnsure is the relationship intent of someone who hasn't decided
const IntentUnsure = "unsure"

// Location is a point in degrees
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CandidateProfile is a user profile as the profile store hands it out.
// Optional fields are pointers: nil means the user never filled them in.
type CandidateProfile struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Age                int        `json:"age"`
	Gender             string     `json:"gender"`
	Bio                string     `json:"bio"`
	Interests          []string   `json:"interests"`
	RelationshipIntent string     `json:"relationship_intent"` // "" when unset
	InterestedIn       []string   `json:"interested_in"`
	Photos             []string   `json:"photos"`
	Location           *Location  `json:"location,omitempty"`
	IsVerified         bool       `json:"is_verified"`
	MatchRadiusKm      float64    `json:"match_radius_km"`
	Occupation         *string    `json:"occupation,omitempty"`
	HeightCm           *int       `json:"height_cm,omitempty"`
	LastActiveAt       *time.Time `json:"last_active_at,omitempty"`
}

// ProfileStore is the read side of the profile service
type ProfileStore interface {
	// Get returns ErrNotFound if the user has no profile
	Get(ctx context.Context, userID string) (CandidateProfile, error)
}

// BlockList returns the ids a user has blocked
type BlockList interface {
	GetBlockedIDs(ctx context.Context, userID string) (map[string]struct{}, error)
}

// BlockListCache is a BlockList with a bounded staleness window
type BlockListCache interface {
	BlockList
	// Invalidate drops the cached set so the next read goes to the source
	Invalidate(ctx context.Context, userID string) error
}

// BlockCache stores block sets with a TTL
type BlockCache interface {
	// GetBlocked returns ErrCacheMiss when nothing is cached for userID
	GetBlocked(ctx context.Context, userID string) (map[string]struct{}, error)
	SetBlocked(ctx context.Context, userID string, ids []string, ttl time.Duration) error
	DeleteBlocked(ctx context.Context, userID string) error
}

// BlockRepository is the source of truth for blocks
type BlockRepository interface {
	FetchBlockedIDs(ctx context.Context, userID string) ([]string, error)
}
