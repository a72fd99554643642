package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/repository/mysql/model"
)

type profileRepository struct {
	DB *gorm.DB
}

var _ domain.ProfileStore = (*profileRepository)(nil)

// NewProfileRepository reads profiles owned by the profile service
func NewProfileRepository(db *gorm.DB) *profileRepository {
	return &profileRepository{
		DB: db,
	}
}

func (m *profileRepository) Get(ctx context.Context, userID string) (domain.CandidateProfile, error) {
	var row model.Profile
	err := m.DB.WithContext(ctx).First(&row, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.CandidateProfile{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.CandidateProfile{}, err
	}
	return row.ToDomain(), nil
}
