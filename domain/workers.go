package domain

import "context"

// ChangePublisher pushes ledger and match notifications to subscribers
type ChangePublisher interface {
	PublishChanges(ctx context.Context, changes []LedgerChange) error
	PublishMatch(ctx context.Context, res MatchResult) error
}

// ChangeWorker buffers ledger changes and publishes them in batches
type ChangeWorker interface {
	Start(ctx context.Context)

	// Send queues a change without blocking; it is dropped if the queue is full
	Send(change LedgerChange)
}
