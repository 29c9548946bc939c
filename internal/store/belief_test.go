package store

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jiaranai/learninglab/internal/domain"
)

func TestBeliefStoreGetOrInitUniform(t *testing.T) {
	s := NewBeliefStore()
	st := s.GetOrInit("u1", "gravity")

	if len(st.Belief.Points) != domain.NumAbilityLevels {
		t.Fatalf("expected %d points, got %d", domain.NumAbilityLevels, len(st.Belief.Points))
	}
	for _, p := range st.Belief.Points {
		if math.Abs(p.Probability-1.0/float64(domain.NumAbilityLevels)) > 1e-9 {
			t.Fatalf("expected uniform probability, got %f", p.Probability)
		}
	}
	if st.Attempts != 0 || st.Correct != 0 {
		t.Fatalf("fresh state should have zero counters")
	}
}

func TestBeliefStoreMutateIsolation(t *testing.T) {
	s := NewBeliefStore()

	got := s.Mutate("u1", "gravity", func(st *domain.ConceptState) {
		st.Attempts = 3
	})
	if got.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", got.Attempts)
	}

	// Mutating the returned copy must not leak back into the store.
	got.Attempts = 99
	again := s.GetOrInit("u1", "gravity")
	if again.Attempts != 3 {
		t.Fatalf("store state mutated through returned copy: %d", again.Attempts)
	}
}

func TestBeliefStoreConcurrentMutate(t *testing.T) {
	s := NewBeliefStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Mutate("u1", "gravity", func(st *domain.ConceptState) {
				st.Attempts++
			})
		}()
	}
	wg.Wait()

	if got := s.GetOrInit("u1", "gravity").Attempts; got != 50 {
		t.Fatalf("expected 50 attempts, got %d", got)
	}
}

func TestBeliefStoreConceptsSorted(t *testing.T) {
	s := NewBeliefStore()
	s.GetOrInit("u1", "velocity")
	s.GetOrInit("u1", "acceleration")
	s.GetOrInit("u2", "gravity")

	got := s.Concepts("u1")
	want := []string{"acceleration", "velocity"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestBeliefStoreSummarize(t *testing.T) {
	s := NewBeliefStore()
	s.Mutate("u1", "gravity", func(st *domain.ConceptState) {
		st.Attempts = 2
		st.Correct = 1
	})

	summaries := s.Summarize("u1")
	sum, ok := summaries["gravity"]
	if !ok {
		t.Fatalf("expected summary for gravity")
	}
	if !sum.Seen || sum.Attempts != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	// Uniform belief over the 10-point grid has mean 0.45.
	if math.Abs(sum.EstimatedAbility-0.45) > 1e-9 {
		t.Fatalf("expected estimated ability 0.45, got %f", sum.EstimatedAbility)
	}
}

func TestBeliefStoreMarkAsked(t *testing.T) {
	s := NewBeliefStore()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.MarkAsked("u1", "gravity", at)

	if got := s.GetOrInit("u1", "gravity").LastAsked; !got.Equal(at) {
		t.Fatalf("expected last asked %v, got %v", at, got)
	}
}
