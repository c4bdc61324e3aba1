package api

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/gammon/pkg/engine"
)

// ErrGameNotFound is returned for an unknown game ID.
var ErrGameNotFound = errors.New("game not found")

// Session is one hosted game. The game is only touched while holding mu.
type Session struct {
	ID      string
	Created time.Time

	mu   sync.Mutex
	game *engine.Game
}

// With runs fn with exclusive access to the game.
func (s *Session) With(fn func(g *engine.Game) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.game)
}

// Snapshot returns the current view of the game.
func (s *Session) Snapshot() engine.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Snapshot()
}

// SessionStore holds the games hosted by the server.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
}

// NewSessionStore creates a store holding at most max games (0 = unlimited).
func NewSessionStore(max int) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		max:      max,
	}
}

// ErrTooManyGames is returned when the store is full.
var ErrTooManyGames = errors.New("too many games")

// Add registers g under a fresh ID.
func (st *SessionStore) Add(g *engine.Game) (*Session, error) {
	s := &Session{
		ID:      uuid.NewString(),
		Created: time.Now(),
		game:    g,
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.max > 0 && len(st.sessions) >= st.max {
		return nil, ErrTooManyGames
	}
	st.sessions[s.ID] = s
	return s, nil
}

// Get looks up a session.
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return s, nil
}

// Delete removes a session. It reports whether the session existed.
func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}

// Len returns the number of hosted games.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
