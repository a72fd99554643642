package model

import (
	"time"

	"gorm.io/datatypes"

	"github.com/Guyuepp/likers-match/domain"
)

type Profile struct {
	ID                 string                      `gorm:"primaryKey;type:varchar(64)"`
	Name               string                      `gorm:"type:varchar(100);not null"`
	Age                int                         `gorm:"not null"`
	Gender             string                      `gorm:"type:varchar(32)"`
	Bio                string                      `gorm:"type:text"`
	Interests          datatypes.JSONSlice[string] `gorm:"column:interests"`
	RelationshipIntent string                      `gorm:"column:relationship_intent;type:varchar(32)"`
	InterestedIn       datatypes.JSONSlice[string] `gorm:"column:interested_in"`
	Photos             datatypes.JSONSlice[string] `gorm:"column:photos"`
	Latitude           *float64
	Longitude          *float64
	IsVerified         bool    `gorm:"not null;default:false"`
	MatchRadiusKm      float64 `gorm:"column:match_radius_km;not null;default:50"`
	Occupation         *string `gorm:"type:varchar(100)"`
	HeightCm           *int    `gorm:"column:height_cm"`
	LastActiveAt       *time.Time
	UpdatedAt          time.Time
}

func (Profile) TableName() string {
	return "profiles"
}

func (m *Profile) ToDomain() domain.CandidateProfile {
	p := domain.CandidateProfile{
		ID:                 m.ID,
		Name:               m.Name,
		Age:                m.Age,
		Gender:             m.Gender,
		Bio:                m.Bio,
		Interests:          []string(m.Interests),
		RelationshipIntent: m.RelationshipIntent,
		InterestedIn:       []string(m.InterestedIn),
		Photos:             []string(m.Photos),
		IsVerified:         m.IsVerified,
		MatchRadiusKm:      m.MatchRadiusKm,
		Occupation:         m.Occupation,
		HeightCm:           m.HeightCm,
		LastActiveAt:       m.LastActiveAt,
	}
	// half a coordinate is no coordinate
	if m.Latitude != nil && m.Longitude != nil {
		p.Location = &domain.Location{Latitude: *m.Latitude, Longitude: *m.Longitude}
	}
	return p
}

func NewProfileFromDomain(p *domain.CandidateProfile) *Profile {
	m := &Profile{
		ID:                 p.ID,
		Name:               p.Name,
		Age:                p.Age,
		Gender:             p.Gender,
		Bio:                p.Bio,
		Interests:          datatypes.JSONSlice[string](p.Interests),
		RelationshipIntent: p.RelationshipIntent,
		InterestedIn:       datatypes.JSONSlice[string](p.InterestedIn),
		Photos:             datatypes.JSONSlice[string](p.Photos),
		IsVerified:         p.IsVerified,
		MatchRadiusKm:      p.MatchRadiusKm,
		Occupation:         p.Occupation,
		HeightCm:           p.HeightCm,
		LastActiveAt:       p.LastActiveAt,
	}
	if p.Location != nil {
		m.Latitude = &p.Location.Latitude
		m.Longitude = &p.Location.Longitude
	}
	return m
}
