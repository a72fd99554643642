package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/likers-match/domain"
)

const (
	KeyInboxChannel = "ledger:inbox:%s"
	KeyMatchChannel = "match:created"
)

type changeMessage struct {
	Kind  string               `json:"kind"`
	Event domain.InterestEvent `json:"event"`
	At    *time.Time           `json:"at,omitempty"`
}

type ledgerFeed struct {
	client *redis.Client
}

var (
	_ domain.LedgerFeed      = (*ledgerFeed)(nil)
	_ domain.ChangePublisher = (*ledgerFeed)(nil)
)

// NewLedgerFeed publishes and subscribes to inbox changes over redis pub/sub
func NewLedgerFeed(client *redis.Client) *ledgerFeed {
	return &ledgerFeed{client}
}

func encodeChange(change domain.LedgerChange) ([]byte, error) {
	msg := changeMessage{Kind: change.Kind.String(), Event: change.Event}
	if !change.At.IsZero() {
		msg.At = &change.At
	}
	return json.Marshal(msg)
}

func decodeChange(payload string) (domain.LedgerChange, error) {
	var msg changeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return domain.LedgerChange{}, err
	}
	var kind domain.ChangeKind
	switch msg.Kind {
	case domain.ChangeAdded.String():
		kind = domain.ChangeAdded
	case domain.ChangeRemoved.String():
		kind = domain.ChangeRemoved
	default:
		return domain.LedgerChange{}, fmt.Errorf("unknown change kind %q", msg.Kind)
	}
	if msg.Event.ID == "" {
		return domain.LedgerChange{}, fmt.Errorf("change without event id")
	}
	change := domain.LedgerChange{Kind: kind, Event: msg.Event}
	if msg.At != nil {
		change.At = *msg.At
	}
	return change, nil
}

func (f *ledgerFeed) PublishChanges(ctx context.Context, changes []domain.LedgerChange) error {
	if len(changes) == 0 {
		return nil
	}
	pipe := f.client.Pipeline()
	for _, change := range changes {
		data, err := encodeChange(change)
		if err != nil {
			logrus.Warnf("failed to marshal ledger change, event: %s, err: %v", change.Event.ID, err)
			continue
		}
		pipe.Publish(ctx, fmt.Sprintf(KeyInboxChannel, change.Event.ToUserID), string(data))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (f *ledgerFeed) PublishMatch(ctx context.Context, res domain.MatchResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, KeyMatchChannel, string(data)).Err()
}

func (f *ledgerFeed) Subscribe(ctx context.Context, toUserID string) (domain.LedgerSubscription, error) {
	ps := f.client.Subscribe(ctx, fmt.Sprintf(KeyInboxChannel, toUserID))
	// wait for the subscription confirmation so no change published afterwards is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &subscription{
		ps:   ps,
		out:  make(chan domain.LedgerChange, 64),
		done: make(chan struct{}),
	}
	go sub.pump()
	return sub, nil
}

type subscription struct {
	ps        *redis.PubSub
	out       chan domain.LedgerChange
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscription) Changes() <-chan domain.LedgerChange {
	return s.out
}

func (s *subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

func (s *subscription) pump() {
	defer close(s.out)
	for msg := range s.ps.Channel() {
		change, err := decodeChange(msg.Payload)
		if err != nil {
			logrus.Warnf("dropping malformed ledger change on %s: %v", msg.Channel, err)
			continue
		}
		select {
		case s.out <- change:
		case <-s.done:
			return
		}
	}
}
