package store

import (
	"sort"
	"sync"
	"time"

	"github.com/jiaranai/learninglab/internal/domain"
)

// BeliefStore holds per-user, per-concept belief state in memory. The map
// index is guarded by one RWMutex while each entry carries its own lock, so
// read-modify-write cycles on the same key are serialised but distinct keys
// update in parallel. All reads return copies; mutation happens only through
// Mutate. Entries are never removed, so an entry pointer stays valid after
// the index lock is released.
type BeliefStore struct {
	mu      sync.RWMutex
	entries map[beliefKey]*beliefEntry
}

type beliefKey struct {
	userID  string
	concept string
}

type beliefEntry struct {
	mu    sync.Mutex
	state domain.ConceptState
}

func NewBeliefStore() *BeliefStore {
	return &BeliefStore{entries: make(map[beliefKey]*beliefEntry)}
}

// entry resolves the entry for a key, creating it with a uniform belief on
// first access.
func (s *BeliefStore) entry(key beliefKey) *beliefEntry {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e
	}
	e = &beliefEntry{state: domain.ConceptState{Belief: domain.UniformBelief()}}
	s.entries[key] = e
	return e
}

// GetOrInit returns the state for a user/concept pair, creating a uniform
// belief on first access.
func (s *BeliefStore) GetOrInit(userID, concept string) domain.ConceptState {
	e := s.entry(beliefKey{userID: userID, concept: concept})

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Mutate applies fn to the state under the entry lock and returns a copy of
// the result. The state is created with a uniform belief if absent.
func (s *BeliefStore) Mutate(userID, concept string, fn func(*domain.ConceptState)) domain.ConceptState {
	e := s.entry(beliefKey{userID: userID, concept: concept})

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
	return e.state.Clone()
}

// MarkAsked records that a question on this concept was just served.
func (s *BeliefStore) MarkAsked(userID, concept string, at time.Time) {
	s.Mutate(userID, concept, func(st *domain.ConceptState) {
		st.LastAsked = at
	})
}

// Concepts returns the concept keys a user has state for, sorted.
func (s *BeliefStore) Concepts(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.entries {
		if k.userID == userID {
			keys = append(keys, k.concept)
		}
	}
	sort.Strings(keys)
	return keys
}

// Summarize builds a BeliefSummary for each concept the user has touched.
func (s *BeliefStore) Summarize(userID string) map[string]domain.BeliefSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.BeliefSummary)
	for k, e := range s.entries {
		if k.userID != userID {
			continue
		}
		e.mu.Lock()
		out[k.concept] = domain.BeliefSummary{
			EstimatedAbility: e.state.Belief.Mean(),
			Uncertainty:      e.state.Belief.StdDev(),
			Attempts:         e.state.Attempts,
			Seen:             true,
		}
		e.mu.Unlock()
	}
	return out
}

// Snapshot returns copies of all states for a user keyed by concept.
func (s *BeliefStore) Snapshot(userID string) map[string]domain.ConceptState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.ConceptState)
	for k, e := range s.entries {
		if k.userID == userID {
			e.mu.Lock()
			out[k.concept] = e.state.Clone()
			e.mu.Unlock()
		}
	}
	return out
}

// HasUser reports whether any state exists for the user.
func (s *BeliefStore) HasUser(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for k := range s.entries {
		if k.userID == userID {
			return true
		}
	}
	return false
}
