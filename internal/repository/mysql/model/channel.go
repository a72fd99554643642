package model

import (
	"time"

	"github.com/Guyuepp/likers-match/domain"
)

type Channel struct {
	ID             string  `gorm:"primaryKey;type:varchar(36)"`
	UserA          string  `gorm:"column:user_a;type:varchar(64);not null"`
	UserB          string  `gorm:"column:user_b;type:varchar(64);not null"`
	RelatedMatchID string  `gorm:"column:related_match_id;type:varchar(36);not null;uniqueIndex"`
	IsMutual       bool    `gorm:"not null;default:true"`
	LastMessage    *string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (Channel) TableName() string {
	return "channels"
}

func (m *Channel) ToDomain() domain.ChannelRecord {
	return domain.ChannelRecord{
		ID:             m.ID,
		UserA:          m.UserA,
		UserB:          m.UserB,
		RelatedMatchID: m.RelatedMatchID,
		IsMutual:       m.IsMutual,
		LastMessage:    m.LastMessage,
		CreatedAt:      m.CreatedAt,
	}
}

func NewChannelFromDomain(c *domain.ChannelRecord) *Channel {
	return &Channel{
		ID:             c.ID,
		UserA:          c.UserA,
		UserB:          c.UserB,
		RelatedMatchID: c.RelatedMatchID,
		IsMutual:       c.IsMutual,
		LastMessage:    c.LastMessage,
		CreatedAt:      c.CreatedAt,
	}
}
