package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jiaranai/learninglab/internal/domain"
	"github.com/jiaranai/learninglab/internal/store"
)

// mockConceptStore implements domain.ConceptStore for testing.
type mockConceptStore struct {
	mu       sync.Mutex
	concepts map[string]*domain.Concept
	similar  []domain.ConceptWithScore

	findSimilarCalls int
}

func newMockConceptStore() *mockConceptStore {
	return &mockConceptStore{concepts: make(map[string]*domain.Concept)}
}

func (m *mockConceptStore) Upsert(ctx context.Context, c *domain.Concept) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if existing, ok := m.concepts[c.Key]; ok {
		c.CreatedAt = existing.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	cp := *c
	m.concepts[c.Key] = &cp
	return nil
}

func (m *mockConceptStore) GetByKey(ctx context.Context, key string) (*domain.Concept, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.concepts[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockConceptStore) List(ctx context.Context) ([]domain.Concept, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Concept
	for _, c := range m.concepts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *mockConceptStore) FindSimilar(ctx context.Context, embedding []float32, threshold float32, limit int) ([]domain.ConceptWithScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findSimilarCalls++
	return m.similar, nil
}

// mockAttemptStore implements domain.AttemptStore for testing.
type mockAttemptStore struct {
	mu       sync.Mutex
	attempts []domain.Attempt
}

func newMockAttemptStore() *mockAttemptStore {
	return &mockAttemptStore{}
}

func (m *mockAttemptStore) Record(ctx context.Context, a *domain.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = int64(len(m.attempts) + 1)
	a.CreatedAt = time.Now()
	m.attempts = append(m.attempts, *a)
	return nil
}

func (m *mockAttemptStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Attempt
	for i := len(m.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if m.attempts[i].UserID == userID {
			out = append(out, m.attempts[i])
		}
	}
	return out, nil
}

// mockTaskStore implements domain.RenderTaskStore for testing.
type mockTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*domain.RenderTask
	order []string
}

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{tasks: make(map[string]*domain.RenderTask)}
}

func (m *mockTaskStore) Create(ctx context.Context, t *domain.RenderTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	m.tasks[t.ID] = &cp
	m.order = append(m.order, t.ID)
	return nil
}

func (m *mockTaskStore) Get(ctx context.Context, id string) (*domain.RenderTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockTaskStore) Update(ctx context.Context, t *domain.RenderTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return store.ErrNotFound
	}
	t.UpdatedAt = time.Now()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockTaskStore) ClaimPending(ctx context.Context) (*domain.RenderTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		t := m.tasks[id]
		if t.Status == domain.TaskPending {
			t.Status = domain.TaskProcessing
			t.UpdatedAt = time.Now()
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockTaskStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	var kept []string
	for _, id := range m.order {
		t := m.tasks[id]
		if t.Status.Terminal() && t.CreatedAt.Before(cutoff) {
			delete(m.tasks, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return n, nil
}

func (m *mockTaskStore) TrimToNewest(ctx context.Context, max int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var terminal []string
	for _, id := range m.order {
		if m.tasks[id].Status.Terminal() {
			terminal = append(terminal, id)
		}
	}
	var n int64
	for len(terminal) > max {
		id := terminal[0]
		terminal = terminal[1:]
		delete(m.tasks, id)
		for i, o := range m.order {
			if o == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
		n++
	}
	return n, nil
}
