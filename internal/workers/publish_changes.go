package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/likers-match/domain"
)

const (
	defaultQueueSize     = 1024
	defaultBatchSize     = 100
	defaultFlushInterval = 1 * time.Second
)

type publishChangesWorker struct {
	publisher domain.ChangePublisher
	ch        chan domain.LedgerChange
	batchSize int
	interval  time.Duration
}

var _ domain.ChangeWorker = (*publishChangesWorker)(nil)

func NewPublishChangesWorker(p domain.ChangePublisher) *publishChangesWorker {
	return &publishChangesWorker{
		publisher: p,
		ch:        make(chan domain.LedgerChange, defaultQueueSize),
		batchSize: defaultBatchSize,
		interval:  defaultFlushInterval,
	}
}

// Send queues a change for the next flush
func (w *publishChangesWorker) Send(change domain.LedgerChange) {
	select {
	case w.ch <- change:
	default:
		logrus.Warnf("PublishChangesWorker's channel is full, change of event %s dropped", change.Event.ID)
	}
}

// Start blocks until ctx is done, then flushes what is left
func (w *publishChangesWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	batch := make([]domain.LedgerChange, 0, w.batchSize)
	for {
		select {
		case change := <-w.ch:
			batch = append(batch, change)
			if len(batch) == w.batchSize {
				w.flush(ctx, batch)
				batch = make([]domain.LedgerChange, 0, w.batchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = make([]domain.LedgerChange, 0, w.batchSize)
			}
		case <-ctx.Done():
			logrus.Info("shutting down PublishChangesWorker, flushing remaining changes...")
			w.drain(&batch)
			// ctx is already cancelled
			w.flush(context.Background(), batch)
			return
		}
	}
}

func (w *publishChangesWorker) drain(batch *[]domain.LedgerChange) {
	for {
		select {
		case change := <-w.ch:
			*batch = append(*batch, change)
		default:
			return
		}
	}
}

// flush keeps only the last change per event, in order of first appearance
func (w *publishChangesWorker) flush(ctx context.Context, batch []domain.LedgerChange) {
	if len(batch) == 0 {
		return
	}
	latest := make(map[string]int, len(batch))
	changes := make([]domain.LedgerChange, 0, len(batch))
	for _, change := range batch {
		if i, ok := latest[change.Event.ID]; ok {
			changes[i] = change
			continue
		}
		latest[change.Event.ID] = len(changes)
		changes = append(changes, change)
	}

	if err := w.publisher.PublishChanges(ctx, changes); err != nil {
		logrus.Errorf("failed to publish %d ledger changes: %v", len(changes), err)
	}
}
