package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqlmock "gopkg.in/DATA-DOG/go-sqlmock.v1"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/repository/mysql/model"
)

type recordCounts struct {
	sourceConsumed bool
	reciprocals    int64
	matches        int64
	channels       int64
}

func countRecords(t *testing.T, db *gorm.DB, sourceID, viewer string) recordCounts {
	t.Helper()
	var c recordCounts
	var src model.InterestEvent
	require.NoError(t, db.First(&src, "id = ?", sourceID).Error)
	c.sourceConsumed = src.Consumed
	require.NoError(t, db.Model(&model.InterestEvent{}).Where("from_user_id = ?", viewer).Count(&c.reciprocals).Error)
	require.NoError(t, db.Model(&model.Match{}).Count(&c.matches).Error)
	require.NoError(t, db.Model(&model.Channel{}).Count(&c.channels).Error)
	return c
}

func TestCommitLikeBack(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	repo := NewMatchRepository(db)
	ctx := context.Background()
	src := seedEvent(t, ledger, "cand", "viewer", domain.ActionLike, false, baseTime)

	res, err := repo.CommitLikeBack(ctx, domain.LikeBack{SourceEventID: src.ID, ViewerID: "viewer", CandidateID: "cand"})
	require.NoError(t, err)

	assert.Equal(t, "viewer", res.Reciprocal.FromUserID)
	assert.Equal(t, "cand", res.Reciprocal.ToUserID)
	assert.Equal(t, domain.ActionLike, res.Reciprocal.Action)
	assert.True(t, res.Reciprocal.Consumed)
	assert.True(t, res.Match.IsActive)
	assert.Equal(t, res.Match.ID, res.Channel.RelatedMatchID)
	assert.True(t, res.Channel.IsMutual)
	assert.Nil(t, res.Channel.LastMessage)

	c := countRecords(t, db, src.ID, "viewer")
	assert.Equal(t, recordCounts{sourceConsumed: true, reciprocals: 1, matches: 1, channels: 1}, c)

	var row model.Match
	require.NoError(t, db.First(&row, "active_pair_key = ?", domain.PairKey("cand", "viewer")).Error)
	assert.Equal(t, res.Match.ID, row.ID)
	assert.True(t, row.IsActive)
}

func TestCommitLikeBackTwiceCreatesOneMatch(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	repo := NewMatchRepository(db)
	ctx := context.Background()
	src := seedEvent(t, ledger, "cand", "viewer", domain.ActionLike, false, baseTime)
	lb := domain.LikeBack{SourceEventID: src.ID, ViewerID: "viewer", CandidateID: "cand"}

	_, err := repo.CommitLikeBack(ctx, lb)
	require.NoError(t, err)
	_, err = repo.CommitLikeBack(ctx, lb)
	assert.ErrorIs(t, err, domain.ErrDuplicateActivation)

	c := countRecords(t, db, src.ID, "viewer")
	assert.Equal(t, int64(1), c.matches)
	assert.Equal(t, int64(1), c.channels)
	assert.Equal(t, int64(1), c.reciprocals)
}

func TestCommitLikeBackExistingMatch(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	repo := NewMatchRepository(db)
	ctx := context.Background()
	first := seedEvent(t, ledger, "cand", "viewer", domain.ActionLike, false, baseTime)
	second := seedEvent(t, ledger, "cand", "viewer", domain.ActionSuperlike, false, baseTime.Add(1))

	_, err := repo.CommitLikeBack(ctx, domain.LikeBack{SourceEventID: first.ID, ViewerID: "viewer", CandidateID: "cand"})
	require.NoError(t, err)
	_, err = repo.CommitLikeBack(ctx, domain.LikeBack{SourceEventID: second.ID, ViewerID: "viewer", CandidateID: "cand"})
	assert.ErrorIs(t, err, domain.ErrDuplicateActivation)

	// the second like is settled by the existing match
	got, err := ledger.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, got.Consumed)

	var matches int64
	require.NoError(t, db.Model(&model.Match{}).Count(&matches).Error)
	assert.Equal(t, int64(1), matches)
}

func TestCommitLikeBackWrongRecipient(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	repo := NewMatchRepository(db)
	src := seedEvent(t, ledger, "cand", "viewer", domain.ActionLike, false, baseTime)

	_, err := repo.CommitLikeBack(context.Background(), domain.LikeBack{SourceEventID: src.ID, ViewerID: "intruder", CandidateID: "cand"})
	assert.ErrorIs(t, err, domain.ErrDuplicateActivation)
	assert.Equal(t, recordCounts{}, countRecords(t, db, src.ID, "intruder"))
}

func TestCommitLikeBackAtomicity(t *testing.T) {
	boom := errors.New("injected failure")

	steps := []struct {
		name     string
		register func(db *gorm.DB) error
	}{
		{"consume original", func(db *gorm.DB) error {
			return db.Callback().Update().Before("gorm:update").Register("test:fail", func(tx *gorm.DB) {
				if tx.Statement.Table == "interest_events" {
					_ = tx.AddError(boom)
				}
			})
		}},
		{"insert reciprocal", func(db *gorm.DB) error {
			return db.Callback().Create().Before("gorm:create").Register("test:fail", func(tx *gorm.DB) {
				if tx.Statement.Table == "interest_events" {
					_ = tx.AddError(boom)
				}
			})
		}},
		{"insert match", func(db *gorm.DB) error {
			return db.Callback().Create().Before("gorm:create").Register("test:fail", func(tx *gorm.DB) {
				if tx.Statement.Table == "matches" {
					_ = tx.AddError(boom)
				}
			})
		}},
		{"insert channel", func(db *gorm.DB) error {
			return db.Callback().Create().Before("gorm:create").Register("test:fail", func(tx *gorm.DB) {
				if tx.Statement.Table == "channels" {
					_ = tx.AddError(boom)
				}
			})
		}},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			db := newTestDB(t)
			ledger := NewLedgerRepository(db)
			repo := NewMatchRepository(db)
			src := seedEvent(t, ledger, "cand", "viewer", domain.ActionLike, false, baseTime)
			require.NoError(t, step.register(db))

			_, err := repo.CommitLikeBack(context.Background(), domain.LikeBack{SourceEventID: src.ID, ViewerID: "viewer", CandidateID: "cand"})
			assert.ErrorIs(t, err, domain.ErrCommitFailed)

			assert.Equal(t, recordCounts{}, countRecords(t, db, src.ID, "viewer"))
		})
	}
}

func TestCommitPass(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	repo := NewMatchRepository(db)
	ctx := context.Background()
	src := seedEvent(t, ledger, "cand", "viewer", domain.ActionLike, false, baseTime)

	pass, err := repo.CommitPass(ctx, src.ID, "viewer", "cand")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionPass, pass.Action)
	assert.Equal(t, "cand", pass.ToUserID)

	c := countRecords(t, db, src.ID, "viewer")
	assert.Equal(t, recordCounts{sourceConsumed: true, reciprocals: 1}, c)

	_, err = repo.CommitPass(ctx, src.ID, "viewer", "cand")
	assert.ErrorIs(t, err, domain.ErrDuplicateActivation)

	active, err := countActive(db, "viewer", "cand")
	require.NoError(t, err)
	assert.Zero(t, active)
}

func TestCommitLikeBackRollsBackOnMySQLError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `interest_events` SET `consumed`").WillReturnError(errors.New("deadlock found"))
	mock.ExpectRollback()

	repo := NewMatchRepository(db)
	_, err = repo.CommitLikeBack(context.Background(), domain.LikeBack{SourceEventID: "evt", ViewerID: "viewer", CandidateID: "cand"})
	assert.ErrorIs(t, err, domain.ErrCommitFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// deactivate ends the active match of a pair the way an unmatch does
func deactivate(t *testing.T, db *gorm.DB, userA, userB string) {
	t.Helper()
	require.NoError(t, db.Model(&model.Match{}).
		Where("active_pair_key = ?", domain.PairKey(userA, userB)).
		Updates(map[string]any{"is_active": false, "active_pair_key": nil}).Error)
}

func TestCommitLikeBackAfterUnmatch(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	repo := NewMatchRepository(db)
	ctx := context.Background()
	first := seedEvent(t, ledger, "cand", "viewer", domain.ActionLike, false, baseTime)
	_, err := repo.CommitLikeBack(ctx, domain.LikeBack{SourceEventID: first.ID, ViewerID: "viewer", CandidateID: "cand"})
	require.NoError(t, err)
	deactivate(t, db, "viewer", "cand")

	second := seedEvent(t, ledger, "cand", "viewer", domain.ActionLike, false, baseTime.Add(time.Hour))
	res, err := repo.CommitLikeBack(ctx, domain.LikeBack{SourceEventID: second.ID, ViewerID: "viewer", CandidateID: "cand"})
	require.NoError(t, err)
	assert.True(t, res.Match.IsActive)

	got, err := ledger.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, got.Consumed)

	var total int64
	require.NoError(t, db.Model(&model.Match{}).Count(&total).Error)
	assert.Equal(t, int64(2), total)
	active, err := countActive(db, "cand", "viewer")
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)
}

func TestInactiveMatchIsStoredInactive(t *testing.T) {
	db := newTestDB(t)
	rec := domain.MatchRecord{ID: "m-old", UserA: "a", UserB: "b", IsActive: false, CreatedAt: baseTime}
	require.NoError(t, db.Create(model.NewMatchFromDomain(&rec)).Error)

	var row model.Match
	require.NoError(t, db.First(&row, "id = ?", "m-old").Error)
	assert.False(t, row.IsActive)
	assert.Nil(t, row.ActivePairKey)
}

func TestCommitLikeBackPairClashSettlesSource(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerRepository(db)
	repo := NewMatchRepository(db)
	ctx := context.Background()
	src := seedEvent(t, ledger, "cand", "viewer", domain.ActionLike, false, baseTime)

	// the unique index rejects the match row, as it does when the other side commits first
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:clash", func(tx *gorm.DB) {
		if tx.Statement.Table == "matches" {
			_ = tx.AddError(gorm.ErrDuplicatedKey)
		}
	}))

	_, err := repo.CommitLikeBack(ctx, domain.LikeBack{SourceEventID: src.ID, ViewerID: "viewer", CandidateID: "cand"})
	assert.ErrorIs(t, err, domain.ErrDuplicateActivation)

	c := countRecords(t, db, src.ID, "viewer")
	assert.Equal(t, recordCounts{sourceConsumed: true}, c)
}
