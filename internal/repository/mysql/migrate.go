package mysql

import (
	"gorm.io/gorm"

	"github.com/Guyuepp/likers-match/internal/repository/mysql/model"
)

// AutoMigrate creates or updates every table this service reads or writes
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.InterestEvent{},
		&model.Match{},
		&model.Channel{},
		&model.Profile{},
		&model.Block{},
	)
}
