package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/metrics"
)

// Apply merges one ledger change into the feed. Changes that arrive while a load
// is running are held back and replayed once the load has set up dedup state.
func (f *Feed) Apply(ctx context.Context, change domain.LedgerChange) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if f.loading {
		f.pending = append(f.pending, change)
		f.mu.Unlock()
		return nil
	}
	if !f.ready || change.Event.ToUserID != f.viewerID {
		f.mu.Unlock()
		return nil
	}

	switch change.Kind {
	case domain.ChangeRemoved:
		f.removeLocked(change.Event, change.At)
		f.mu.Unlock()
		return nil
	case domain.ChangeAdded:
	default:
		f.mu.Unlock()
		return nil
	}

	e := change.Event
	if !e.Pending() {
		f.mu.Unlock()
		return nil
	}
	if _, seen := f.states[e.ID]; seen {
		f.mu.Unlock()
		return nil
	}
	if _, ok := f.blocked[e.FromUserID]; ok {
		f.states[e.ID] = stateGone
		f.mu.Unlock()
		return nil
	}
	f.states[e.ID] = stateClaimed
	gen, viewer := f.gen, f.viewer
	f.mu.Unlock()

	l, err := f.buildLiker(ctx, viewer, e, f.now())
	if err != nil {
		logrus.Warnf("excluding candidate %s from feed of %s: %v", e.FromUserID, viewer.ID, err)
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return domain.ErrSessionClosed
	}
	if f.gen != gen || f.states[e.ID] != stateClaimed {
		return nil
	}
	f.insertLocked(l)
	f.sortLocked()
	return nil
}

// removeLocked drops e for good. An event the feed never showed only lowers
// totalCount if it was counted and left the inbox after the count was taken.
func (f *Feed) removeLocked(e domain.InterestEvent, at time.Time) {
	switch st, seen := f.states[e.ID]; {
	case st == stateJoined:
		f.dropLocked(e.ID)
		f.decrementLocked()
	case st == stateGone || st == stateTaken:
	case (!seen || st == stateClaimed) && f.countedLocked(e) && at.After(f.countedAt):
		f.decrementLocked()
	}
	f.states[e.ID] = stateGone
}

// Removal is an optimistic removal of one entry that can be undone
type Removal struct {
	feed    *Feed
	gen     uint64
	eventID string
	prev    entryState
	seen    bool
	liker   domain.Liker
	present bool
}

// Remove takes eventID out of the feed ahead of a commit. Call Rollback on the
// result if the commit fails.
func (f *Feed) Remove(eventID string) *Removal {
	f.mu.Lock()
	defer f.mu.Unlock()

	r := &Removal{feed: f, gen: f.gen, eventID: eventID}
	if f.closed {
		return r
	}
	r.prev, r.seen = f.states[eventID]
	if r.prev == stateJoined {
		r.liker, r.present = f.dropLocked(eventID)
		if r.present {
			f.decrementLocked()
		}
	}
	f.states[eventID] = stateTaken
	return r
}

// Rollback restores what Remove took, unless the feed was closed or reloaded
// or the entry was removed for good in the meantime
func (r *Removal) Rollback() {
	f := r.feed
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.gen != r.gen || f.states[r.eventID] != stateTaken {
		return
	}
	if !r.seen {
		delete(f.states, r.eventID)
	} else {
		f.states[r.eventID] = r.prev
	}
	if r.present {
		f.entries = append(f.entries, r.liker)
		f.totalCount++
		f.sortLocked()
	}
}

// Reconciler feeds ledger changes for one viewer into a Feed
type Reconciler struct {
	feed   *Feed
	source domain.LedgerFeed

	mu     sync.Mutex
	sub    domain.LedgerSubscription
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReconciler(f *Feed, source domain.LedgerFeed) *Reconciler {
	return &Reconciler{feed: f, source: source}
}

// Start subscribes to the inbox of viewerID. If the subscription can't be opened
// the feed keeps working on pagination alone.
func (r *Reconciler) Start(ctx context.Context, viewerID string) {
	sub, err := r.source.Subscribe(ctx, viewerID)
	if err != nil {
		logrus.Warnf("live updates disabled for viewer %s: %v", viewerID, err)
		return
	}

	// outlives the request that opened the session
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.mu.Lock()
	r.sub = sub
	r.cancel = cancel
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	go r.run(runCtx, viewerID, sub, done)
}

func (r *Reconciler) run(ctx context.Context, viewerID string, sub domain.LedgerSubscription, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-sub.Changes():
			if !ok {
				logrus.Warnf("ledger subscription of viewer %s ended", viewerID)
				return
			}
			err := r.feed.Apply(ctx, change)
			if errors.Is(err, domain.ErrSessionClosed) {
				return
			}
			if err != nil {
				logrus.Warnf("failed to apply %s change of event %s: %v", change.Kind, change.Event.ID, err)
				continue
			}
			metrics.ReconciledChanges.WithLabelValues(change.Kind.String()).Inc()
		}
	}
}

// Stop closes the subscription and waits for the reconcile loop to exit
func (r *Reconciler) Stop() {
	r.mu.Lock()
	sub, cancel, done := r.sub, r.cancel, r.done
	r.sub, r.cancel, r.done = nil, nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if err := sub.Close(); err != nil {
		logrus.Warnf("failed to close ledger subscription: %v", err)
	}
	<-done
}
