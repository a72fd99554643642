package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Guyuepp/likers-match/domain"
)

const (
	KeyBlockedIDs = "block:user:%s:ids"

	// blockedSentinel keeps an empty block set distinguishable from a missing key
	blockedSentinel = "-"
)

type blockCache struct {
	client *redis.Client
}

var _ domain.BlockCache = (*blockCache)(nil)

func NewBlockCache(client *redis.Client) *blockCache {
	return &blockCache{client}
}

func (c *blockCache) GetBlocked(ctx context.Context, userID string) (map[string]struct{}, error) {
	members, err := c.client.SMembers(ctx, fmt.Sprintf(KeyBlockedIDs, userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, domain.ErrCacheMiss
	}

	res := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m == blockedSentinel {
			continue
		}
		res[m] = struct{}{}
	}
	return res, nil
}

func (c *blockCache) SetBlocked(ctx context.Context, userID string, ids []string, ttl time.Duration) error {
	key := fmt.Sprintf(KeyBlockedIDs, userID)
	members := make([]any, 0, len(ids)+1)
	members = append(members, blockedSentinel)
	for _, id := range ids {
		members = append(members, id)
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SAdd(ctx, key, members...)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (c *blockCache) DeleteBlocked(ctx context.Context, userID string) error {
	return c.client.Del(ctx, fmt.Sprintf(KeyBlockedIDs, userID)).Err()
}
