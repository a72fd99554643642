package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Guyuepp/likers-match/domain"
	"github.com/Guyuepp/likers-match/internal/metrics"
)

const DefaultSessionIdle = 30 * time.Minute

// CoordinatorFactory builds the match coordinator bound to one viewer's feed
type CoordinatorFactory func(viewerID string, f *Feed) domain.MatchUsecase

// Session is everything one viewer has open
type Session struct {
	ViewerID    string
	Feed        *Feed
	Reconciler  *Reconciler
	Coordinator domain.MatchUsecase

	lastUsed atomic.Int64
}

func (s *Session) close() {
	s.Reconciler.Stop()
	s.Feed.Close()
}

// Manager owns the sessions of all viewers. Sessions share nothing but the
// collaborators passed in.
type Manager struct {
	newFeed  func() *Feed
	source   domain.LedgerFeed
	newCoord CoordinatorFactory
	idle     time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	group    singleflight.Group
}

var _ domain.FeedSessions = (*Manager)(nil)

func NewManager(newFeed func() *Feed, source domain.LedgerFeed, newCoord CoordinatorFactory, idle time.Duration) *Manager {
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	return &Manager{
		newFeed:  newFeed,
		source:   source,
		newCoord: newCoord,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session of viewerID, opening and loading it on first use
func (m *Manager) Get(ctx context.Context, viewerID string) (*Session, error) {
	if viewerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if s := m.lookup(viewerID); s != nil {
		return s, nil
	}

	v, err, _ := m.group.Do(viewerID, func() (any, error) {
		if s := m.lookup(viewerID); s != nil {
			return s, nil
		}
		s, err := m.open(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.sessions[viewerID] = s
		m.mu.Unlock()
		metrics.OpenSessions.Inc()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) Feed(ctx context.Context, viewerID string) (domain.FeedUsecase, error) {
	s, err := m.Get(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return s.Feed, nil
}

func (m *Manager) Coordinator(ctx context.Context, viewerID string) (domain.MatchUsecase, error) {
	s, err := m.Get(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if s.Coordinator == nil {
		return nil, domain.ErrInternalServerError
	}
	return s.Coordinator, nil
}

func (m *Manager) lookup(viewerID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[viewerID]
	if !ok {
		return nil
	}
	s.lastUsed.Store(m.now().UnixNano())
	return s
}

// open subscribes before loading so nothing published during the load is lost
func (m *Manager) open(ctx context.Context, viewerID string) (*Session, error) {
	f := m.newFeed()
	rec := NewReconciler(f, m.source)
	rec.Start(ctx, viewerID)

	if err := f.Load(ctx, viewerID); err != nil {
		rec.Stop()
		f.Close()
		return nil, err
	}

	s := &Session{
		ViewerID:   viewerID,
		Feed:       f,
		Reconciler: rec,
	}
	if m.newCoord != nil {
		s.Coordinator = m.newCoord(viewerID, f)
	}
	s.lastUsed.Store(m.now().UnixNano())
	return s, nil
}

// Close tears down the session of viewerID, if any
func (m *Manager) Close(viewerID string) {
	m.mu.Lock()
	s, ok := m.sessions[viewerID]
	delete(m.sessions, viewerID)
	m.mu.Unlock()

	if ok {
		s.close()
		metrics.OpenSessions.Dec()
	}
}

// CloseAll tears down every session
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
		metrics.OpenSessions.Dec()
	}
}

// Run evicts idle sessions until ctx is done, then closes the rest
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.idle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-ctx.Done():
			logrus.Info("shutting down feed sessions...")
			m.CloseAll()
			return
		}
	}
}

func (m *Manager) evictIdle() {
	deadline := m.now().Add(-m.idle).UnixNano()

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.lastUsed.Load() < deadline {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		logrus.Debugf("closing idle feed session of viewer %s", s.ViewerID)
		s.close()
		metrics.OpenSessions.Dec()
	}
}
