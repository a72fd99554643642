package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/repository"
	"github.com/Guyuepp/likers-match/internal/repository/mysql/model"
)

var positiveActions = []string{string(domain.ActionLike), string(domain.ActionSuperlike)}

type ledgerRepository struct {
	DB *gorm.DB
}

var _ domain.InterestLedger = (*ledgerRepository)(nil)

// NewLedgerRepository creates the interest event store
func NewLedgerRepository(db *gorm.DB) *ledgerRepository {
	return &ledgerRepository{db}
}

func (m *ledgerRepository) pending(ctx context.Context, toUserID string) *gorm.DB {
	return m.DB.WithContext(ctx).Model(&model.InterestEvent{}).
		Where("to_user_id = ? AND action IN ? AND consumed = ?", toUserID, positiveActions, false)
}

func (m *ledgerRepository) FetchPending(ctx context.Context, toUserID string, cursor string, limit int64) ([]domain.InterestEvent, string, error) {
	repository.PageVerify(&limit)
	q := m.pending(ctx, toUserID)
	if cursor != "" {
		ts, id, err := repository.DecodeCursor(cursor)
		if err != nil {
			return nil, "", domain.ErrBadParamInput
		}
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", ts, ts, id)
	}

	var rows []model.InterestEvent
	err := q.Order("created_at DESC").Order("id DESC").Limit(int(limit)).Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	res := make([]domain.InterestEvent, len(rows))
	for i := range rows {
		res[i] = rows[i].ToDomain()
	}
	if len(res) == 0 {
		return res, "", nil
	}
	last := res[len(res)-1]
	return res, repository.EncodeCursor(last.CreatedAt, last.ID), nil
}

func (m *ledgerRepository) CountPending(ctx context.Context, toUserID string, excludeFrom []string) (int64, error) {
	q := m.pending(ctx, toUserID)
	if len(excludeFrom) > 0 {
		q = q.Where("from_user_id NOT IN ?", excludeFrom)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (m *ledgerRepository) GetByID(ctx context.Context, id string) (domain.InterestEvent, error) {
	var row model.InterestEvent
	err := m.DB.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.InterestEvent{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.InterestEvent{}, err
	}
	return row.ToDomain(), nil
}

func (m *ledgerRepository) FindPendingBetween(ctx context.Context, fromUserID, toUserID string) (domain.InterestEvent, error) {
	var row model.InterestEvent
	err := m.pending(ctx, toUserID).
		Where("from_user_id = ?", fromUserID).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.InterestEvent{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.InterestEvent{}, err
	}
	return row.ToDomain(), nil
}

func (m *ledgerRepository) Store(ctx context.Context, e *domain.InterestEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	row := model.NewInterestEventFromDomain(e)
	if err := m.DB.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	return nil
}

func (m *ledgerRepository) MarkConsumed(ctx context.Context, id string) error {
	result := m.DB.WithContext(ctx).Model(&model.InterestEvent{}).
		Where("id = ? AND consumed = ?", id, false).
		Update("consumed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if _, err := m.GetByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrDuplicateActivation
}
