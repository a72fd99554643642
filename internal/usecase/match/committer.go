package match

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/metrics"
)

// Committer runs the persisted half of a recipient decision and announces the
// result. It is shared by the feed coordinator and swipe recording.
type Committer struct {
	repo      domain.MatchRepository
	worker    domain.ChangeWorker
	publisher domain.ChangePublisher
}

func NewCommitter(r domain.MatchRepository, w domain.ChangeWorker, p domain.ChangePublisher) *Committer {
	return &Committer{
		repo:      r,
		worker:    w,
		publisher: p,
	}
}

// LikeBack commits source, a pending like toward viewerID. An already consumed
// source is reported as a duplicate outcome, not an error.
func (c *Committer) LikeBack(ctx context.Context, viewerID string, source domain.InterestEvent) (domain.Outcome, error) {
	out := domain.Outcome{EventID: source.ID}
	res, err := c.repo.CommitLikeBack(ctx, domain.LikeBack{
		SourceEventID: source.ID,
		ViewerID:      viewerID,
		CandidateID:   source.FromUserID,
	})
	switch {
	case errors.Is(err, domain.ErrDuplicateActivation):
		metrics.DuplicateActivations.Inc()
		c.announceConsumed(source, time.Time{})
		out.Duplicate = true
		return out, nil
	case errors.Is(err, domain.ErrCommitFailed):
		metrics.MatchCommitFailures.WithLabelValues("like_back").Inc()
		return out, err
	case err != nil:
		return out, err
	}

	metrics.MatchesCreated.Inc()
	c.announceConsumed(source, res.Reciprocal.CreatedAt)
	if err := c.publisher.PublishMatch(ctx, res); err != nil {
		logrus.Errorf("failed to publish match %s: %v", res.Match.ID, err)
	}
	out.Match = &res
	return out, nil
}

// Pass commits a pass on source
func (c *Committer) Pass(ctx context.Context, viewerID string, source domain.InterestEvent) (domain.Outcome, error) {
	out := domain.Outcome{EventID: source.ID}
	pass, err := c.repo.CommitPass(ctx, source.ID, viewerID, source.FromUserID)
	switch {
	case errors.Is(err, domain.ErrDuplicateActivation):
		metrics.DuplicateActivations.Inc()
		c.announceConsumed(source, time.Time{})
		out.Duplicate = true
		return out, nil
	case errors.Is(err, domain.ErrCommitFailed):
		metrics.MatchCommitFailures.WithLabelValues("pass").Inc()
		return out, err
	case err != nil:
		return out, err
	}

	c.announceConsumed(source, pass.CreatedAt)
	out.Pass = &pass
	return out, nil
}

// announceConsumed publishes the removal of source. at is when it was consumed,
// zero when an earlier decision consumed it.
func (c *Committer) announceConsumed(source domain.InterestEvent, at time.Time) {
	source.Consumed = true
	c.worker.Send(domain.LedgerChange{Kind: domain.ChangeRemoved, Event: source, At: at})
}
