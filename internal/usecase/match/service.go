package match

import (
	"context"
	"sync/atomic"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/metrics"
	"github.com/Guyuepp/likers-match/internal/usecase/feed"
)

// LocalFeed is the viewer's in-memory feed, changed ahead of the commit
type LocalFeed interface {
	Remove(eventID string) *feed.Removal
}

// Coordinator runs like-back and pass for one viewer session. Only one
// transaction runs at a time; a second one is rejected, not queued.
type Coordinator struct {
	viewerID  string
	feed      LocalFeed
	ledger    domain.InterestLedger
	committer *Committer
	busy      atomic.Bool
}

var _ domain.MatchUsecase = (*Coordinator)(nil)

func NewCoordinator(viewerID string, f LocalFeed, l domain.InterestLedger, c *Committer) *Coordinator {
	return &Coordinator{
		viewerID:  viewerID,
		feed:      f,
		ledger:    l,
		committer: c,
	}
}

func (c *Coordinator) LikeBack(ctx context.Context, eventID string) (domain.Outcome, error) {
	return c.run(ctx, eventID, c.committer.LikeBack)
}

func (c *Coordinator) Pass(ctx context.Context, eventID string) (domain.Outcome, error) {
	return c.run(ctx, eventID, c.committer.Pass)
}

type commitFunc func(ctx context.Context, viewerID string, source domain.InterestEvent) (domain.Outcome, error)

func (c *Coordinator) run(ctx context.Context, eventID string, commit commitFunc) (domain.Outcome, error) {
	if eventID == "" {
		return domain.Outcome{}, domain.ErrBadParamInput
	}
	if !c.busy.CompareAndSwap(false, true) {
		return domain.Outcome{}, domain.ErrTransactionInFlight
	}
	defer c.busy.Store(false)

	source, err := c.ledger.GetByID(ctx, eventID)
	if err != nil {
		return domain.Outcome{}, err
	}
	if source.ToUserID != c.viewerID {
		return domain.Outcome{}, domain.ErrForbidden
	}
	if !source.Action.IsPositive() {
		return domain.Outcome{}, domain.ErrBadParamInput
	}

	// already decided, drop the stale entry and report a no-op
	if source.Consumed {
		metrics.DuplicateActivations.Inc()
		c.feed.Remove(eventID)
		return domain.Outcome{EventID: eventID, Duplicate: true}, nil
	}

	removal := c.feed.Remove(eventID)
	out, err := commit(ctx, c.viewerID, source)
	if err != nil {
		removal.Rollback()
		return out, err
	}
	return out, nil
}
