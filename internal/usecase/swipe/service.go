package swipe

import (
	"context"
	"errors"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/usecase/match"
)

type Service struct {
	ledger    domain.InterestLedger
	committer *match.Committer
	worker    domain.ChangeWorker
}

var _ domain.SwipeUsecase = (*Service)(nil)

// NewService will create a new swipe service object
func NewService(l domain.InterestLedger, c *match.Committer, w domain.ChangeWorker) *Service {
	return &Service{
		ledger:    l,
		committer: c,
		worker:    w,
	}
}

// Record stores a swipe of fromUserID on toUserID. If toUserID already has a
// pending like toward fromUserID, the swipe decides that like instead: a like
// or superlike goes through the match commit, a pass through the pass commit.
func (s *Service) Record(ctx context.Context, fromUserID, toUserID string, action domain.Action) (domain.Outcome, error) {
	if fromUserID == "" {
		return domain.Outcome{}, domain.ErrUnauthenticated
	}
	if toUserID == "" || fromUserID == toUserID || !action.Valid() {
		return domain.Outcome{}, domain.ErrBadParamInput
	}

	incoming, err := s.ledger.FindPendingBetween(ctx, toUserID, fromUserID)
	switch {
	case err == nil:
		if action.IsPositive() {
			return s.committer.LikeBack(ctx, fromUserID, incoming)
		}
		return s.committer.Pass(ctx, fromUserID, incoming)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Outcome{}, err
	}

	e := domain.InterestEvent{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Action:     action,
	}
	if err := s.ledger.Store(ctx, &e); err != nil {
		return domain.Outcome{}, err
	}
	if e.Pending() {
		s.worker.Send(domain.LedgerChange{Kind: domain.ChangeAdded, Event: e, At: e.CreatedAt})
	}
	return domain.Outcome{EventID: e.ID}, nil
}
