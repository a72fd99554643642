package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/likers-match/domain"
)

func TestChangeCodec(t *testing.T) {
	change := domain.LedgerChange{
		Kind: domain.ChangeRemoved,
		Event: domain.InterestEvent{
			ID:         "evt-1",
			FromUserID: "a",
			ToUserID:   "b",
			Action:     domain.ActionSuperlike,
			CreatedAt:  time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
		},
	}
	data, err := encodeChange(change)
	require.NoError(t, err)

	got, err := decodeChange(string(data))
	require.NoError(t, err)
	assert.Equal(t, change.Kind, got.Kind)
	assert.Equal(t, change.Event.ID, got.Event.ID)
	assert.Equal(t, change.Event.Action, got.Event.Action)
	assert.True(t, change.Event.CreatedAt.Equal(got.Event.CreatedAt))
	assert.True(t, got.At.IsZero())

	change.At = time.Date(2026, 2, 3, 5, 0, 0, 0, time.UTC)
	data, err = encodeChange(change)
	require.NoError(t, err)
	got, err = decodeChange(string(data))
	require.NoError(t, err)
	assert.True(t, change.At.Equal(got.At))

	for _, bad := range []string{"not json", `{"kind":"moved","event":{"id":"x"}}`, `{"kind":"added","event":{}}`} {
		_, err := decodeChange(bad)
		assert.Error(t, err, bad)
	}
}

func TestPublishChanges(t *testing.T) {
	client, mock := redismock.NewClientMock()
	feed := NewLedgerFeed(client)

	added := domain.LedgerChange{Kind: domain.ChangeAdded, Event: domain.InterestEvent{ID: "e1", FromUserID: "x", ToUserID: "v1", Action: domain.ActionLike}}
	removed := domain.LedgerChange{Kind: domain.ChangeRemoved, Event: domain.InterestEvent{ID: "e2", FromUserID: "y", ToUserID: "v2", Action: domain.ActionLike}}
	a, err := encodeChange(added)
	require.NoError(t, err)
	r, err := encodeChange(removed)
	require.NoError(t, err)

	mock.ExpectPublish(fmt.Sprintf(KeyInboxChannel, "v1"), string(a)).SetVal(1)
	mock.ExpectPublish(fmt.Sprintf(KeyInboxChannel, "v2"), string(r)).SetVal(0)

	require.NoError(t, feed.PublishChanges(context.Background(), []domain.LedgerChange{added, removed}))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.NoError(t, feed.PublishChanges(context.Background(), nil))
}
