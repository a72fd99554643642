package feed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-faker/faker/v4"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/scoring"
)

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeLedger struct {
	mu         sync.Mutex
	events     []domain.InterestEvent
	fetchCalls int
	fetchErr   error
	countErr   error
	gate       chan struct{} // when set, fetches with a cursor wait on it
	onFetch    func()        // runs once, inside the next fetch
}

func eventKey(e domain.InterestEvent) string {
	return e.CreatedAt.Format(time.RFC3339Nano) + "|" + e.ID
}

// before reports whether a sorts after b in created_at DESC, id DESC order
func before(a domain.InterestEvent, createdAt time.Time, id string) bool {
	if !a.CreatedAt.Equal(createdAt) {
		return a.CreatedAt.Before(createdAt)
	}
	return a.ID < id
}

func (l *fakeLedger) add(e domain.InterestEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *fakeLedger) pendingLocked(toUserID string) []domain.InterestEvent {
	var res []domain.InterestEvent
	for _, e := range l.events {
		if e.ToUserID == toUserID && e.Pending() {
			res = append(res, e)
		}
	}
	slices.SortFunc(res, func(a, b domain.InterestEvent) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return res
}

func (l *fakeLedger) FetchPending(ctx context.Context, toUserID string, cursor string, limit int64) ([]domain.InterestEvent, string, error) {
	l.mu.Lock()
	l.fetchCalls++
	hook, gate, err := l.onFetch, l.gate, l.fetchErr
	l.onFetch = nil
	l.mu.Unlock()

	if hook != nil {
		hook()
	}
	if cursor != "" && gate != nil {
		<-gate
	}
	if err != nil {
		return nil, "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	all := l.pendingLocked(toUserID)
	if cursor != "" {
		ts, id, ok := strings.Cut(cursor, "|")
		if !ok {
			return nil, "", domain.ErrBadParamInput
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, "", domain.ErrBadParamInput
		}
		i := slices.IndexFunc(all, func(e domain.InterestEvent) bool { return before(e, t, id) })
		if i < 0 {
			all = nil
		} else {
			all = all[i:]
		}
	}
	if int64(len(all)) > limit {
		all = all[:limit]
	}
	if len(all) == 0 {
		return nil, "", nil
	}
	return all, eventKey(all[len(all)-1]), nil
}

func (l *fakeLedger) CountPending(ctx context.Context, toUserID string, excludeFrom []string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.countErr != nil {
		return 0, l.countErr
	}
	var n int64
	for _, e := range l.pendingLocked(toUserID) {
		if !slices.Contains(excludeFrom, e.FromUserID) {
			n++
		}
	}
	return n, nil
}

func (l *fakeLedger) GetByID(ctx context.Context, id string) (domain.InterestEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.InterestEvent{}, domain.ErrNotFound
}

func (l *fakeLedger) FindPendingBetween(ctx context.Context, fromUserID, toUserID string) (domain.InterestEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.pendingLocked(toUserID) {
		if e.FromUserID == fromUserID {
			return e, nil
		}
	}
	return domain.InterestEvent{}, domain.ErrNotFound
}

func (l *fakeLedger) Store(ctx context.Context, e *domain.InterestEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.ID == "" {
		e.ID = faker.UUIDHyphenated()
	}
	l.events = append(l.events, *e)
	return nil
}

func (l *fakeLedger) MarkConsumed(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.events {
		if l.events[i].ID != id {
			continue
		}
		if l.events[i].Consumed {
			return domain.ErrDuplicateActivation
		}
		l.events[i].Consumed = true
		return nil
	}
	return domain.ErrNotFound
}

func (l *fakeLedger) fetches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fetchCalls
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]domain.CandidateProfile
	failing  map[string]bool
}

func (p *fakeProfiles) put(profile domain.CandidateProfile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[profile.ID] = profile
}

func (p *fakeProfiles) Get(ctx context.Context, userID string) (domain.CandidateProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing[userID] {
		return domain.CandidateProfile{}, errors.New("profile service unavailable")
	}
	profile, ok := p.profiles[userID]
	if !ok {
		return domain.CandidateProfile{}, domain.ErrNotFound
	}
	return profile, nil
}

type fakeBlocks struct {
	mu            sync.Mutex
	ids           map[string]struct{}
	err           error
	invalidations int
}

func (b *fakeBlocks) GetBlockedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.ids, nil
}

func (b *fakeBlocks) Invalidate(ctx context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invalidations++
	return nil
}

func (b *fakeBlocks) invalidated() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.invalidations
}

type fakeWorker struct {
	mu      sync.Mutex
	changes []domain.LedgerChange
}

func (w *fakeWorker) Start(ctx context.Context) {}

func (w *fakeWorker) Send(change domain.LedgerChange) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.changes = append(w.changes, change)
}

func (w *fakeWorker) sent() []domain.LedgerChange {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.changes)
}

var interestPool = []string{"hiking", "jazz", "cooking", "chess", "yoga", "film", "travel"}

func fakeProfile(i int) domain.CandidateProfile {
	lat := 48.85 + float64(i%10)*0.02
	lng := 2.35 + float64(i%7)*0.02
	active := baseTime.Add(-time.Duration(i) * time.Hour)
	return domain.CandidateProfile{
		ID:                 fmt.Sprintf("cand-%02d", i),
		Name:               faker.FirstName(),
		Age:                22 + i%15,
		Gender:             "female",
		Bio:                faker.Sentence(),
		Interests:          []string{interestPool[i%len(interestPool)], interestPool[(i+2)%len(interestPool)]},
		RelationshipIntent: []string{"long_term", "casual", domain.IntentUnsure}[i%3],
		Photos:             []string{faker.URL()},
		Location:           &domain.Location{Latitude: lat, Longitude: lng},
		MatchRadiusKm:      50,
		LastActiveAt:       &active,
	}
}

func viewerProfile() domain.CandidateProfile {
	active := baseTime
	return domain.CandidateProfile{
		ID:                 "viewer",
		Name:               faker.FirstName(),
		Age:                30,
		Interests:          []string{"hiking", "jazz"},
		RelationshipIntent: "long_term",
		Location:           &domain.Location{Latitude: 48.85, Longitude: 2.35},
		MatchRadiusKm:      40,
		LastActiveAt:       &active,
	}
}

func likeEvent(i int) domain.InterestEvent {
	return domain.InterestEvent{
		ID:         fmt.Sprintf("evt-%02d", i),
		FromUserID: fmt.Sprintf("cand-%02d", i),
		ToUserID:   "viewer",
		Action:     domain.ActionLike,
		CreatedAt:  baseTime.Add(-time.Duration(i) * time.Minute),
	}
}

type fixture struct {
	feed     *Feed
	ledger   *fakeLedger
	profiles *fakeProfiles
	blocks   *fakeBlocks
	worker   *fakeWorker
}

// newFixture seeds n pending likes toward "viewer" from cand-00..cand-(n-1)
func newFixture(n int) *fixture {
	fx := &fixture{
		ledger:   &fakeLedger{},
		profiles: &fakeProfiles{profiles: map[string]domain.CandidateProfile{}, failing: map[string]bool{}},
		blocks:   &fakeBlocks{ids: map[string]struct{}{}},
		worker:   &fakeWorker{},
	}
	fx.profiles.put(viewerProfile())
	for i := 0; i < n; i++ {
		fx.profiles.put(fakeProfile(i))
		fx.ledger.add(likeEvent(i))
	}
	fx.feed = fx.newFeed()
	return fx
}

func (fx *fixture) newFeed() *Feed {
	f := NewFeed(fx.ledger, fx.profiles, fx.blocks, fx.worker, scoring.NewCalculator(scoring.DefaultWeights), domain.DefaultFeedPageSize)
	f.now = func() time.Time { return baseTime }
	return f
}

type fakeSubscription struct {
	ch        chan domain.LedgerChange
	closeOnce sync.Once
}

func (s *fakeSubscription) Changes() <-chan domain.LedgerChange {
	return s.ch
}

func (s *fakeSubscription) Close() error {
	s.closeOnce.Do(func() { close(s.ch) })
	return nil
}

type fakeSource struct {
	mu   sync.Mutex
	subs map[string]*fakeSubscription
	err  error
}

func newFakeSource() *fakeSource {
	return &fakeSource{subs: map[string]*fakeSubscription{}}
}

func (s *fakeSource) Subscribe(ctx context.Context, toUserID string) (domain.LedgerSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	sub := &fakeSubscription{ch: make(chan domain.LedgerChange, 16)}
	s.subs[toUserID] = sub
	return sub, nil
}

func (s *fakeSource) sub(toUserID string) *fakeSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[toUserID]
}
