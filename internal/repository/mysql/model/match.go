package model

import (
	"time"

	"github.com/Guyuepp/likers-match/domain"
)

// Match is one activation of a pair. ActivePairKey equals PairKey while the match
// is active and is NULL afterwards, so a pair has at most one active row but may
// match again. Deactivating a match must clear both IsActive and ActivePairKey.
type Match struct {
	ID            string  `gorm:"primaryKey;type:varchar(36)"`
	UserA         string  `gorm:"column:user_a;type:varchar(64);not null"`
	UserB         string  `gorm:"column:user_b;type:varchar(64);not null"`
	PairKey       string  `gorm:"column:pair_key;type:varchar(130);not null;index"`
	ActivePairKey *string `gorm:"column:active_pair_key;type:varchar(130);uniqueIndex"`
	IsActive      bool    `gorm:"not null"`
	CreatedAt     time.Time
}

func (Match) TableName() string {
	return "matches"
}

func (m *Match) ToDomain() domain.MatchRecord {
	return domain.MatchRecord{
		ID:        m.ID,
		UserA:     m.UserA,
		UserB:     m.UserB,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
	}
}

func NewMatchFromDomain(r *domain.MatchRecord) *Match {
	m := &Match{
		ID:        r.ID,
		UserA:     r.UserA,
		UserB:     r.UserB,
		PairKey:   domain.PairKey(r.UserA, r.UserB),
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
	}
	if r.IsActive {
		key := m.PairKey
		m.ActivePairKey = &key
	}
	return m
}
