package model

import (
	"time"

	"github.com/Guyuepp/likers-match/domain"
)

type InterestEvent struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	FromUserID string    `gorm:"column:from_user_id;type:varchar(64);not null;index"`
	ToUserID   string    `gorm:"column:to_user_id;type:varchar(64);not null;index:idx_inbox,priority:1"`
	Action     string    `gorm:"type:varchar(16);not null;index:idx_inbox,priority:2"`
	Consumed   bool      `gorm:"not null;default:false;index:idx_inbox,priority:3"`
	CreatedAt  time.Time `gorm:"index:idx_inbox,priority:4"`
}

func (InterestEvent) TableName() string {
	return "interest_events"
}

func (m *InterestEvent) ToDomain() domain.InterestEvent {
	return domain.InterestEvent{
		ID:         m.ID,
		FromUserID: m.FromUserID,
		ToUserID:   m.ToUserID,
		Action:     domain.Action(m.Action),
		Consumed:   m.Consumed,
		CreatedAt:  m.CreatedAt,
	}
}

func NewInterestEventFromDomain(e *domain.InterestEvent) *InterestEvent {
	return &InterestEvent{
		ID:         e.ID,
		FromUserID: e.FromUserID,
		ToUserID:   e.ToUserID,
		Action:     string(e.Action),
		Consumed:   e.Consumed,
		CreatedAt:  e.CreatedAt,
	}
}
