package domain

import (
	"context"
	"time"
)

// MatchRecord is a mutual connection between two users
type MatchRecord struct {
	ID        string    `json:"id"`
	UserA     string    `json:"user_a"`
	UserB     string    `json:"user_b"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ChannelRecord is the conversation opened by a MatchRecord
type ChannelRecord struct {
	ID             string    `json:"id"`
	UserA          string    `json:"user_a"`
	UserB          string    `json:"user_b"`
	RelatedMatchID string    `json:"related_match_id"`
	IsMutual       bool      `json:"is_mutual"`
	LastMessage    *string   `json:"last_message"`
	CreatedAt      time.Time `json:"created_at"`
}

// PairKey orders two user ids so {a,b} and {b,a} share one key
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// LikeBack is the input of the atomic like-back commit
type LikeBack struct {
	SourceEventID string
	ViewerID      string
	CandidateID   string
}

// MatchResult is what a successful like-back commit wrote
type MatchResult struct {
	Reciprocal InterestEvent
	Match      MatchRecord
	Channel    ChannelRecord
}

// MatchRepository commits recipient decisions on pending interest events.
// Each method is all-or-nothing.
type MatchRepository interface {
	// CommitLikeBack consumes the source event, stores the reciprocal like,
	// and creates one match plus its channel.
	// Returns ErrDuplicateActivation if the source event was already consumed.
	// If the pair already has an active match the source event is consumed,
	// nothing else is written and ErrDuplicateActivation is returned.
	CommitLikeBack(ctx context.Context, lb LikeBack) (MatchResult, error)

	// CommitPass consumes the source event and stores a pass event from viewerID to candidateID.
	// Returns ErrDuplicateActivation if the source event was already consumed.
	CommitPass(ctx context.Context, sourceEventID, viewerID, candidateID string) (InterestEvent, error)
}

// Outcome is what a coordinator action ended up doing
type Outcome struct {
	EventID   string         `json:"event_id"`
	Duplicate bool           `json:"duplicate"`
	Match     *MatchResult   `json:"match,omitempty"`
	Pass      *InterestEvent `json:"pass,omitempty"`
}

// MatchUsecase runs the recipient's decision on one pending interest event
type MatchUsecase interface {
	LikeBack(ctx context.Context, eventID string) (Outcome, error)
	Pass(ctx context.Context, eventID string) (Outcome, error)
}

// SwipeUsecase records a swipe made by a user on someone else
type SwipeUsecase interface {
	Record(ctx context.Context, fromUserID, toUserID string, action Action) (Outcome, error)
}
