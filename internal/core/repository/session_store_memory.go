package repository

import (
	"sync"

	"github.com/google/uuid"

	"github.com/duynhne/imagegen-service/internal/core/domain"
)

// MemorySessionStore implements domain.SessionStore with an in-process map.
// Sessions are deliberately not persisted: a restart resets every session to
// Anonymous, matching the page-reload semantics of the original flow.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewSessionStore creates an empty MemorySessionStore.
func NewSessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*domain.Session)}
}

// Create registers the session under a fresh token.
func (s *MemorySessionStore) Create(sess *domain.Session) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()
	return token
}

// Get returns the session for token, or false when unknown.
func (s *MemorySessionStore) Get(token string) (*domain.Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	return sess, ok
}

// Delete removes the session for token.
func (s *MemorySessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}
