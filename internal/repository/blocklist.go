package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Guyuepp/likers-match/domain"
)

// DefaultBlockListTTL bounds how stale a cached block set can be
const DefaultBlockListTTL = 5 * time.Minute

// blockListRepository reads block sets through the cache, falling back to the database
type blockListRepository struct {
	db    domain.BlockRepository
	cache domain.BlockCache
	ttl   time.Duration
	group singleflight.Group
}

var _ domain.BlockListCache = (*blockListRepository)(nil)

func NewBlockListRepository(db domain.BlockRepository, cache domain.BlockCache, ttl time.Duration) *blockListRepository {
	if ttl <= 0 {
		ttl = DefaultBlockListTTL
	}
	return &blockListRepository{
		db:    db,
		cache: cache,
		ttl:   ttl,
	}
}

func (r *blockListRepository) GetBlockedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	set, err := r.cache.GetBlocked(ctx, userID)
	if err == nil {
		return set, nil
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		logrus.Warnf("block cache read failed, user: %s, err: %v", userID, err)
	}

	// concurrent misses for the same user share one database read
	v, err, _ := r.group.Do(userID, func() (any, error) {
		ids, err := r.db.FetchBlockedIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := r.cache.SetBlocked(ctx, userID, ids, r.ttl); err != nil {
			logrus.Warnf("block cache write failed, user: %s, err: %v", userID, err)
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}

	ids := v.([]string)
	res := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		res[id] = struct{}{}
	}
	return res, nil
}

func (r *blockListRepository) Invalidate(ctx context.Context, userID string) error {
	return r.cache.DeleteBlocked(ctx, userID)
}
