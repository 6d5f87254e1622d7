package sessions

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hatsuboshi/lesson-engine/internal/cards"
	"github.com/hatsuboshi/lesson-engine/internal/engine"
	"github.com/hatsuboshi/lesson-engine/internal/engine/events"
)

// Session wraps one engine behind a mutex. The engine itself is
// single-threaded; the lock serializes the server goroutines that share it.
type Session struct {
	ID         string
	CreateTime time.Time

	mu  sync.Mutex
	eng *engine.Engine
}

// Play plays a hand card and returns the events it produced.
func (s *Session) Play(instanceID string) ([]events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.PlayCard(instanceID)
}

// EndTurn advances the session one turn boundary.
func (s *Session) EndTurn() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.EndTurn()
}

// PredictScore previews a hand card's score gain without playing it.
func (s *Session) PredictScore(instanceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.PredictScore(instanceID)
}

// Snapshot returns the current read-only battle view.
func (s *Session) Snapshot() *engine.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Snapshot()
}

// Save serializes the session.
func (s *Session) Save() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Save()
}

// EventsSince returns events appended after the given cursor.
func (s *Session) EventsSince(cursor int) []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.EventsSince(cursor)
}

// Finished reports whether the session reached its turn cap.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Finished()
}

// Manager owns the active sessions.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	set         *cards.Set
	logger      *zap.Logger
}

// NewManager creates a session manager backed by the given card set.
func NewManager(set *cards.Set, maxSessions int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		set:         set,
		logger:      logger,
	}
}

// Create starts a new session from an engine config.
func (m *Manager) Create(cfg engine.Config) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("session limit %d reached", m.maxSessions)
	}

	eng, err := engine.New(cfg, m.set, m.logger)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:         uuid.New().String(),
		CreateTime: time.Now(),
		eng:        eng,
	}
	m.sessions[s.ID] = s

	m.logger.Info("session created",
		zap.String("session_id", s.ID),
		zap.Int("active", len(m.sessions)),
	)
	return s, nil
}

// Resume restores a saved session under a fresh id.
func (m *Manager) Resume(data []byte) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("session limit %d reached", m.maxSessions)
	}

	eng, err := engine.Load(data, m.set, m.logger)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:         uuid.New().String(),
		CreateTime: time.Now(),
		eng:        eng,
	}
	m.sessions[s.ID] = s

	m.logger.Info("session resumed", zap.String("session_id", s.ID))
	return s, nil
}

// Get looks up an active session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close removes a session.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.logger.Info("session closed", zap.String("session_id", id))
	}
}

// CloseAll removes every session, for shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.sessions)
	m.sessions = make(map[string]*Session)
	if n > 0 {
		m.logger.Info("all sessions closed", zap.Int("count", n))
	}
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
