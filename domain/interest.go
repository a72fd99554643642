package domain

import (
	"context"
	"time"
)

// Action is the direction-less verb of a swipe
type Action string

const (
	ActionLike      Action = "like"
	ActionPass      Action = "pass"
	ActionSuperlike Action = "superlike"
)

// Valid reports whether a is one of the known actions
func (a Action) Valid() bool {
	switch a {
	case ActionLike, ActionPass, ActionSuperlike:
		return true
	default:
		return false
	}
}

// IsPositive reports whether a expresses interest (like or superlike)
func (a Action) IsPositive() bool {
	return a == ActionLike || a == ActionSuperlike
}

// InterestEvent is one directional swipe from FromUserID toward ToUserID.
// Everything but Consumed is immutable once stored, and Consumed only goes false -> true.
type InterestEvent struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	Action     Action    `json:"action"`
	Consumed   bool      `json:"consumed"`
	CreatedAt  time.Time `json:"created_at"`
}

// Pending reports whether the recipient still has to act on the event
func (e InterestEvent) Pending() bool {
	return !e.Consumed && e.Action.IsPositive()
}

// InterestLedger defines the contract for the append-only interest event store
type InterestLedger interface {
	// FetchPending returns unconsumed like/superlike events directed at toUserID,
	// newest first. cursor is empty for the first page.
	// Returns the page and the cursor of its last row ("" when the page is empty).
	FetchPending(ctx context.Context, toUserID string, cursor string, limit int64) ([]InterestEvent, string, error)

	// CountPending returns how many unconsumed like/superlike events target toUserID,
	// ignoring events sent by excludeFrom
	CountPending(ctx context.Context, toUserID string, excludeFrom []string) (int64, error)

	// GetByID retrieves a single event.
	// Returns ErrNotFound if the event doesn't exist.
	GetByID(ctx context.Context, id string) (InterestEvent, error)

	// FindPendingBetween returns the newest pending like/superlike from fromUserID to toUserID.
	// Returns ErrNotFound if there is none.
	FindPendingBetween(ctx context.Context, fromUserID, toUserID string) (InterestEvent, error)

	// Store appends a new event and backfills its ID and CreatedAt.
	Store(ctx context.Context, e *InterestEvent) error

	// MarkConsumed flips consumed to true.
	// Returns ErrDuplicateActivation if it was already consumed, ErrNotFound if missing.
	MarkConsumed(ctx context.Context, id string) error
}

// ChangeKind tells whether a ledger change adds or removes an inbox entry
type ChangeKind int8

const (
	ChangeAdded   ChangeKind = 1
	ChangeRemoved ChangeKind = -1
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// LedgerChange is one notification about the pending inbox of Event.ToUserID
type LedgerChange struct {
	Kind  ChangeKind
	Event InterestEvent
	// At is when the ledger row changed. It is zero when that time is unknown,
	// e.g. for a removal of an event someone else consumed earlier.
	At time.Time
}

// LedgerSubscription is an open change stream for one recipient
type LedgerSubscription interface {
	// Changes is closed when the subscription ends
	Changes() <-chan LedgerChange
	Close() error
}

// LedgerFeed delivers inbox changes for a recipient
type LedgerFeed interface {
	Subscribe(ctx context.Context, toUserID string) (LedgerSubscription, error)
}
