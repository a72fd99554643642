package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/repository/mysql/model"
)

type blockRepository struct {
	DB *gorm.DB
}

var _ domain.BlockRepository = (*blockRepository)(nil)

func NewBlockRepository(db *gorm.DB) *blockRepository {
	return &blockRepository{DB: db}
}

func (m *blockRepository) FetchBlockedIDs(ctx context.Context, userID string) ([]string, error) {
	var res []string
	err := m.DB.WithContext(ctx).
		Model(&model.Block{}).
		Where("user_id = ?", userID).
		Pluck("blocked_id", &res).
		Error
	return res, err
}
