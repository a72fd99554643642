package model

import "time"

type Block struct {
	UserID    string `gorm:"column:user_id;primaryKey;type:varchar(64)"`
	BlockedID string `gorm:"column:blocked_id;primaryKey;type:varchar(64)"`
	CreatedAt time.Time
}

func (Block) TableName() string {
	return "blocks"
}
