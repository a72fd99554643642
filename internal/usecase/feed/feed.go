package feed

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/filter"
	"github.com/Guyuepp/likers-match/internal/geo"
	"github.com/Guyuepp/likers-match/internal/metrics"
	"github.com/Guyuepp/likers-match/internal/scoring"
)

// joinConcurrency caps parallel profile reads per page
const joinConcurrency = 8

// entryState tracks what the feed knows about one event id.
// An id present in the map is never fetched or joined again until the next load.
type entryState uint8

const (
	stateClaimed entryState = iota + 1 // being joined, or join failed
	stateJoined                        // in entries
	stateTaken                         // removed optimistically by a pending transaction
	stateGone                          // consumed, removed or blocked
)

// Feed is one viewer's liker feed. Pagination and the reconciler both write into it;
// every mutation happens under mu.
type Feed struct {
	ledger   domain.InterestLedger
	profiles domain.ProfileStore
	blocks   domain.BlockListCache
	worker   domain.ChangeWorker
	calc     *scoring.Calculator
	pageSize int64
	now      func() time.Time

	mu       sync.Mutex
	gen      uint64 // bumped by every load, results of older loads are dropped
	viewerID string
	viewer   domain.CandidateProfile
	blocked  map[string]struct{}
	entries  []domain.Liker
	states   map[string]entryState
	cursor   string
	hasMore  bool

	// totalCount comes from the ledger count taken at countedAt and is kept in step
	// with changes. countedAt is zero when the count failed; then it tracks entries.
	totalCount int64
	countedAt  time.Time

	loading   bool
	ready     bool
	refilling bool
	closed    bool
	pending   []domain.LedgerChange // changes received while loading
}

var _ domain.FeedUsecase = (*Feed)(nil)

// NewFeed creates an empty feed; call Load before anything else
func NewFeed(l domain.InterestLedger, p domain.ProfileStore, b domain.BlockListCache, w domain.ChangeWorker, calc *scoring.Calculator, pageSize int64) *Feed {
	if pageSize <= 0 {
		pageSize = domain.DefaultFeedPageSize
	}
	return &Feed{
		ledger:   l,
		profiles: p,
		blocks:   b,
		worker:   w,
		calc:     calc,
		pageSize: pageSize,
		now:      time.Now,
		states:   make(map[string]entryState),
	}
}

type firstPage struct {
	viewer    domain.CandidateProfile
	blocked   map[string]struct{}
	countedAt time.Time
	count     int64
	events    []domain.InterestEvent
	likers    []domain.Liker
	cursor    string
}

// Load resets the feed and reads the first page for viewerID
func (f *Feed) Load(ctx context.Context, viewerID string) error {
	if viewerID == "" {
		return domain.ErrUnauthenticated
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.ErrSessionClosed
	}
	f.gen++
	gen := f.gen
	f.viewerID = viewerID
	f.viewer = domain.CandidateProfile{}
	f.blocked = nil
	f.entries = nil
	f.states = make(map[string]entryState)
	f.cursor = ""
	f.hasMore = false
	f.totalCount = 0
	f.countedAt = time.Time{}
	f.loading = true
	f.ready = false
	f.pending = nil
	f.mu.Unlock()

	metrics.FeedLoads.Inc()
	timer := prometheus.NewTimer(metrics.FeedLoadDuration)
	defer timer.ObserveDuration()

	page, err := f.fetchFirstPage(ctx, viewerID)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if f.gen != gen {
		// a newer load owns the state now
		f.mu.Unlock()
		return err
	}
	f.loading = false
	if err != nil {
		f.pending = nil
		f.mu.Unlock()
		return err
	}

	f.viewer = page.viewer
	f.blocked = page.blocked
	f.countedAt = page.countedAt
	f.totalCount = page.count
	f.cursor = page.cursor
	f.hasMore = int64(len(page.events)) == f.pageSize
	f.mergeLocked(f.claimLocked(page.events), page.likers)
	f.ready = true
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()

	for _, change := range pending {
		if err := f.Apply(ctx, change); err != nil {
			logrus.Warnf("failed to replay %s change of event %s for viewer %s: %v", change.Kind, change.Event.ID, viewerID, err)
		}
	}
	return nil
}

func (f *Feed) fetchFirstPage(ctx context.Context, viewerID string) (firstPage, error) {
	var page firstPage

	// never cached, the score depends on it
	viewer, err := f.profiles.Get(ctx, viewerID)
	if err != nil {
		return page, fmt.Errorf("%w: viewer profile %s: %w", domain.ErrTransientFetch, viewerID, err)
	}
	page.viewer = viewer
	page.blocked = f.blockedIDs(ctx, viewerID)

	page.countedAt = f.now()
	page.count, err = f.ledger.CountPending(ctx, viewerID, setKeys(page.blocked))
	if err != nil {
		logrus.Warnf("failed to count pending likes of viewer %s, counting loaded entries instead: %v", viewerID, err)
		page.countedAt = time.Time{}
		page.count = 0
	}

	page.events, page.cursor, err = f.ledger.FetchPending(ctx, viewerID, "", f.pageSize)
	if err != nil {
		return page, fmt.Errorf("%w: first page of viewer %s: %w", domain.ErrTransientFetch, viewerID, err)
	}
	page.likers = f.join(ctx, viewer, page.blocked, page.events)
	return page, nil
}

// blockedIDs fails open: without a block set the feed shows everyone rather than no one
func (f *Feed) blockedIDs(ctx context.Context, viewerID string) map[string]struct{} {
	blocked, err := f.blocks.GetBlockedIDs(ctx, viewerID)
	if err != nil {
		logrus.Warnf("failed to fetch block list of viewer %s, continuing without it: %v", viewerID, err)
		return map[string]struct{}{}
	}
	if blocked == nil {
		return map[string]struct{}{}
	}
	return blocked
}

// Refill appends the next page. It does nothing when there is no next page or
// another load or refill is running.
func (f *Feed) Refill(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if !f.ready || !f.hasMore || f.loading || f.refilling {
		f.mu.Unlock()
		return nil
	}
	f.refilling = true
	gen, viewerID, viewer, blocked, cursor := f.gen, f.viewerID, f.viewer, f.blocked, f.cursor
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.refilling = false
		f.mu.Unlock()
	}()

	timer := prometheus.NewTimer(metrics.FeedLoadDuration)
	defer timer.ObserveDuration()

	events, next, err := f.ledger.FetchPending(ctx, viewerID, cursor, f.pageSize)
	if err != nil {
		return fmt.Errorf("%w: refill for viewer %s: %w", domain.ErrTransientFetch, viewerID, err)
	}

	f.mu.Lock()
	if f.gen != gen || f.closed {
		f.mu.Unlock()
		return nil
	}
	fresh := f.claimLocked(events)
	f.mu.Unlock()

	likers := f.join(ctx, viewer, blocked, fresh)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen != gen || f.closed {
		return nil
	}
	f.mergeLocked(fresh, likers)
	if next != "" {
		f.cursor = next
	}
	f.hasMore = int64(len(events)) == f.pageSize
	return nil
}

// MarkConsumed consumes eventID in the ledger and drops its entry. Only the
// recipient of the event may consume it; other sessions learn about it through
// a removed change.
func (f *Feed) MarkConsumed(ctx context.Context, eventID string) error {
	f.mu.Lock()
	viewerID := f.viewerID
	f.mu.Unlock()
	if viewerID == "" {
		return domain.ErrUnauthenticated
	}

	e, err := f.ledger.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e.ToUserID != viewerID {
		return fmt.Errorf("%w: event %s is not addressed to %s", domain.ErrForbidden, eventID, viewerID)
	}

	consumed := true
	if err := f.ledger.MarkConsumed(ctx, eventID); err != nil {
		if !errors.Is(err, domain.ErrDuplicateActivation) {
			return err
		}
		consumed = false
	}
	if consumed {
		e.Consumed = true
		f.worker.Send(domain.LedgerChange{Kind: domain.ChangeRemoved, Event: e, At: f.now()})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	switch st, seen := f.states[eventID]; {
	case st == stateJoined:
		f.dropLocked(eventID)
		f.decrementLocked()
	case st == stateGone || st == stateTaken:
	case (!seen || st == stateClaimed) && consumed && f.countedLocked(e):
		// not paged in yet but part of the count
		f.decrementLocked()
	}
	f.states[eventID] = stateGone
	return nil
}

// Refetch drops cursor, dedup state and the cached block set, then loads again
// for the same viewer
func (f *Feed) Refetch(ctx context.Context) error {
	f.mu.Lock()
	viewerID := f.viewerID
	f.mu.Unlock()
	if viewerID != "" {
		if err := f.blocks.Invalidate(ctx, viewerID); err != nil {
			logrus.Warnf("failed to invalidate block list of viewer %s: %v", viewerID, err)
		}
	}
	return f.Load(ctx, viewerID)
}

func (f *Feed) Snapshot() domain.FeedSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.FeedSnapshot{
		Entries:    slices.Clone(f.entries),
		HasMore:    f.hasMore,
		TotalCount: f.totalCount,
	}
}

func (f *Feed) View(spec domain.FilterSpec) domain.FeedSnapshot {
	snap := f.Snapshot()
	snap.Entries = filter.Apply(snap.Entries, spec)
	return snap
}

// ViewerID returns the viewer of the last load
func (f *Feed) ViewerID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewerID
}

// Close stops every later mutation. Results of work still in flight are dropped.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.pending = nil
}

// join builds likers for events concurrently. A candidate whose profile can't be
// read is left out; the rest of the page is kept.
func (f *Feed) join(ctx context.Context, viewer domain.CandidateProfile, blocked map[string]struct{}, events []domain.InterestEvent) []domain.Liker {
	at := f.now()
	built := make([]*domain.Liker, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(joinConcurrency)
	for i, e := range events {
		if _, ok := blocked[e.FromUserID]; ok {
			continue
		}
		g.Go(func() error {
			l, err := f.buildLiker(gctx, viewer, e, at)
			if err != nil {
				logrus.Warnf("excluding candidate %s from feed of %s: %v", e.FromUserID, viewer.ID, err)
				return nil
			}
			built[i] = &l
			return nil
		})
	}
	_ = g.Wait()

	res := make([]domain.Liker, 0, len(events))
	for _, l := range built {
		if l != nil {
			res = append(res, *l)
		}
	}
	return res
}

func (f *Feed) buildLiker(ctx context.Context, viewer domain.CandidateProfile, e domain.InterestEvent, at time.Time) (domain.Liker, error) {
	p, err := f.profiles.Get(ctx, e.FromUserID)
	if err != nil {
		return domain.Liker{}, fmt.Errorf("%w: profile %s: %w", domain.ErrTransientFetch, e.FromUserID, err)
	}

	dist := geo.DistanceKm(viewer.Location, p.Location)
	return domain.Liker{
		ID:                 p.ID,
		EventID:            e.ID,
		Action:             e.Action,
		Name:               p.Name,
		Age:                p.Age,
		Gender:             p.Gender,
		Bio:                p.Bio,
		Interests:          p.Interests,
		RelationshipIntent: p.RelationshipIntent,
		Photos:             p.Photos,
		IsVerified:         p.IsVerified,
		Occupation:         p.Occupation,
		HeightCm:           p.HeightCm,
		LastActiveAt:       p.LastActiveAt,
		MatchScore:         f.calc.Score(scoring.FromProfile(viewer), scoring.FromProfile(p), dist, at),
		DistanceKm:         dist,
		Completeness:       scoring.Completeness(p),
		LikedAt:            e.CreatedAt,
	}, nil
}

// claimLocked marks the unseen events of a page and returns them
func (f *Feed) claimLocked(events []domain.InterestEvent) []domain.InterestEvent {
	fresh := make([]domain.InterestEvent, 0, len(events))
	for _, e := range events {
		if _, seen := f.states[e.ID]; seen {
			continue
		}
		f.states[e.ID] = stateClaimed
		fresh = append(fresh, e)
	}
	return fresh
}

// mergeLocked inserts the joined likers of claimed events that weren't removed meanwhile
func (f *Feed) mergeLocked(claimed []domain.InterestEvent, likers []domain.Liker) {
	byEvent := make(map[string]domain.Liker, len(likers))
	for _, l := range likers {
		byEvent[l.EventID] = l
	}
	for _, e := range claimed {
		if f.states[e.ID] != stateClaimed {
			continue
		}
		if _, ok := f.blocked[e.FromUserID]; ok {
			f.states[e.ID] = stateGone
			continue
		}
		if l, ok := byEvent[e.ID]; ok {
			f.insertLocked(l)
		}
	}
	f.sortLocked()
}

// insertLocked adds l without sorting. Events newer than the count weren't part of it.
func (f *Feed) insertLocked(l domain.Liker) {
	f.states[l.EventID] = stateJoined
	f.entries = append(f.entries, l)
	if l.LikedAt.After(f.countedAt) {
		f.totalCount++
	}
}

func (f *Feed) dropLocked(eventID string) (domain.Liker, bool) {
	i := slices.IndexFunc(f.entries, func(l domain.Liker) bool { return l.EventID == eventID })
	if i < 0 {
		return domain.Liker{}, false
	}
	l := f.entries[i]
	f.entries = slices.Delete(f.entries, i, i+1)
	return l, true
}

func (f *Feed) decrementLocked() {
	if f.totalCount > 0 {
		f.totalCount--
	}
}

// countedLocked reports whether e is part of totalCount without being in entries
func (f *Feed) countedLocked(e domain.InterestEvent) bool {
	if f.countedAt.IsZero() || e.CreatedAt.After(f.countedAt) {
		return false
	}
	_, blocked := f.blocked[e.FromUserID]
	return !blocked
}

// sortLocked orders entries by score, newest like first on ties
func (f *Feed) sortLocked() {
	slices.SortStableFunc(f.entries, compareLikers)
}

func compareLikers(a, b domain.Liker) int {
	if c := cmp.Compare(b.MatchScore, a.MatchScore); c != 0 {
		return c
	}
	if c := b.LikedAt.Compare(a.LikedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.EventID, b.EventID)
}

func setKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
