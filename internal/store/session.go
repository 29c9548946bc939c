package store

import (
	"context"
	"sync"
	"time"

	"github.com/jiaranai/learninglab/internal/domain"
)

// MemorySessionStore keeps classroom sessions in process memory. Suitable
// for single-instance deployments; use RedisSessionStore when sessions must
// survive restarts or be shared across replicas.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.ClassroomSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*domain.ClassroomSession)}
}

func (s *MemorySessionStore) Save(ctx context.Context, sess *domain.ClassroomSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	cp.Transcript = append([]domain.ClassMessage(nil), sess.Transcript...)
	cp.Personas = append([]domain.Persona(nil), sess.Personas...)
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *MemorySessionStore) Get(ctx context.Context, id string) (*domain.ClassroomSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sess
	cp.Transcript = append([]domain.ClassMessage(nil), sess.Transcript...)
	cp.Personas = append([]domain.Persona(nil), sess.Personas...)
	return &cp, nil
}

func (s *MemorySessionStore) DeleteExpired(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for id, sess := range s.sessions {
		if sess.LastActive.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}
