package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/repository/mysql/model"
)

type matchRepository struct {
	DB *gorm.DB
	// now is swapped in tests
	now func() time.Time
}

var _ domain.MatchRepository = (*matchRepository)(nil)

// NewMatchRepository creates the repository that commits like-back and pass decisions
func NewMatchRepository(db *gorm.DB) *matchRepository {
	return &matchRepository{
		DB:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// consumeSource flips the source event to consumed only if it is still pending and
// really was sent by candidateID to viewerID. Zero affected rows means someone got there first.
func consumeSource(tx *gorm.DB, sourceEventID, viewerID, candidateID string) error {
	result := tx.Model(&model.InterestEvent{}).
		Where("id = ? AND to_user_id = ? AND from_user_id = ? AND consumed = ?", sourceEventID, viewerID, candidateID, false).
		Update("consumed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrDuplicateActivation
	}
	return nil
}

func countActive(tx *gorm.DB, userA, userB string) (int64, error) {
	var n int64
	err := tx.Model(&model.Match{}).
		Where("active_pair_key = ?", domain.PairKey(userA, userB)).
		Count(&n).Error
	return n, err
}

func (m *matchRepository) CommitLikeBack(ctx context.Context, lb domain.LikeBack) (domain.MatchResult, error) {
	var (
		res            domain.MatchResult
		alreadyMatched bool
	)
	now := m.now()

	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := consumeSource(tx, lb.SourceEventID, lb.ViewerID, lb.CandidateID); err != nil {
			return err
		}

		active, err := countActive(tx, lb.ViewerID, lb.CandidateID)
		if err != nil {
			return err
		}
		if active > 0 {
			// keep the consume so the stale like leaves the inbox, but write nothing else
			alreadyMatched = true
			return nil
		}

		reciprocal := domain.InterestEvent{
			ID:         uuid.NewString(),
			FromUserID: lb.ViewerID,
			ToUserID:   lb.CandidateID,
			Action:     domain.ActionLike,
			Consumed:   true,
			CreatedAt:  now,
		}
		if err := tx.Create(model.NewInterestEventFromDomain(&reciprocal)).Error; err != nil {
			return err
		}

		match := domain.MatchRecord{
			ID:        uuid.NewString(),
			UserA:     lb.ViewerID,
			UserB:     lb.CandidateID,
			IsActive:  true,
			CreatedAt: now,
		}
		if err := tx.Create(model.NewMatchFromDomain(&match)).Error; err != nil {
			return err
		}

		channel := domain.ChannelRecord{
			ID:             uuid.NewString(),
			UserA:          lb.ViewerID,
			UserB:          lb.CandidateID,
			RelatedMatchID: match.ID,
			IsMutual:       true,
			CreatedAt:      now,
		}
		if err := tx.Create(model.NewChannelFromDomain(&channel)).Error; err != nil {
			return err
		}

		res = domain.MatchResult{Reciprocal: reciprocal, Match: match, Channel: channel}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// the other side's like-back created the active match first
		logrus.Warnf("pair of event %s matched concurrently, settling the source", lb.SourceEventID)
		return domain.MatchResult{}, m.settleSource(ctx, lb.SourceEventID, lb.ViewerID, lb.CandidateID)
	}
	if err != nil {
		return domain.MatchResult{}, translateCommitError(err, lb.SourceEventID)
	}
	if alreadyMatched {
		return domain.MatchResult{}, domain.ErrDuplicateActivation
	}
	return res, nil
}

func (m *matchRepository) CommitPass(ctx context.Context, sourceEventID, viewerID, candidateID string) (domain.InterestEvent, error) {
	pass := domain.InterestEvent{
		ID:         uuid.NewString(),
		FromUserID: viewerID,
		ToUserID:   candidateID,
		Action:     domain.ActionPass,
		Consumed:   true,
		CreatedAt:  m.now(),
	}

	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := consumeSource(tx, sourceEventID, viewerID, candidateID); err != nil {
			return err
		}
		return tx.Create(model.NewInterestEventFromDomain(&pass)).Error
	})
	if err != nil {
		return domain.InterestEvent{}, translateCommitError(err, sourceEventID)
	}
	return pass, nil
}

// settleSource consumes the source on its own once the pair turned out to be
// matched already. It returns ErrDuplicateActivation when the source ends consumed.
func (m *matchRepository) settleSource(ctx context.Context, sourceEventID, viewerID, candidateID string) error {
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return consumeSource(tx, sourceEventID, viewerID, candidateID)
	})
	if err == nil {
		return domain.ErrDuplicateActivation
	}
	return translateCommitError(err, sourceEventID)
}

// translateCommitError keeps ErrDuplicateActivation as is and turns every other
// failure into ErrCommitFailed
func translateCommitError(err error, eventID string) error {
	if errors.Is(err, domain.ErrDuplicateActivation) {
		return domain.ErrDuplicateActivation
	}
	logrus.Errorf("commit failed for event %s: %v", eventID, err)
	return fmt.Errorf("%w: %v", domain.ErrCommitFailed, err)
}
