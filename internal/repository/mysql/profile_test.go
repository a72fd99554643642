package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/repository/mysql/model"
)

func TestProfileGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	lat, lng := 52.52, 13.405
	height := 181
	last := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&model.Profile{
		ID:            "u1",
		Name:          "Mia",
		Age:           29,
		Interests:     []string{"climbing", "film"},
		Photos:        []string{"p1"},
		Latitude:      &lat,
		Longitude:     &lng,
		MatchRadiusKm: 30,
		HeightCm:      &height,
		LastActiveAt:  &last,
	}).Error)
	require.NoError(t, db.Create(&model.Profile{ID: "u2", Name: "Noor", Age: 33, Latitude: &lat}).Error)

	p, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Mia", p.Name)
	assert.Equal(t, []string{"climbing", "film"}, p.Interests)
	require.NotNil(t, p.Location)
	assert.InDelta(t, 52.52, p.Location.Latitude, 1e-9)
	require.NotNil(t, p.HeightCm)
	assert.Equal(t, 181, *p.HeightCm)
	assert.Nil(t, p.Occupation)

	half, err := repo.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, half.Location)
	assert.Nil(t, half.HeightCm)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBlockFetch(t *testing.T) {
	db := newTestDB(t)
	repo := NewBlockRepository(db)
	require.NoError(t, db.Create(&[]model.Block{
		{UserID: "viewer", BlockedID: "a"},
		{UserID: "viewer", BlockedID: "b"},
		{UserID: "other", BlockedID: "c"},
	}).Error)

	ids, err := repo.FetchBlockedIDs(context.Background(), "viewer")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}
