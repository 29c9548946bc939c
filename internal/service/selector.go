package service

import (
	"sort"

	"github.com/jiaranai/learninglab/internal/domain"
)

const (
	// MasteryThreshold is the expected-mastery level above which a concept
	// stops being offered.
	MasteryThreshold = 0.85
	// MaxAttempts caps how often one concept can be probed before it is
	// retired from selection.
	MaxAttempts = 5

	DefaultBatchSize = 5
	MaxBatchSize     = 10
)

// ConceptScore is one ranked selection candidate. Higher scores are asked
// first.
type ConceptScore struct {
	Concept          string  `json:"concept"`
	Score            float64 `json:"score"`
	EstimatedAbility float64 `json:"estimated_ability"`
	Uncertainty      float64 `json:"uncertainty"`
	Attempts         int     `json:"attempts"`
}

// Selector ranks concepts for adaptive questioning: prefer what the system
// knows least about, weighted toward concepts the learner has not yet
// mastered.
type Selector struct{}

func NewSelector() Selector {
	return Selector{}
}

// RankConcepts scores and orders the eligible concepts for a user. Mastered
// concepts and concepts past the attempt cap are filtered out. Ties break
// on the concept asked longest ago, then on concept key, so ranking is
// deterministic for identical state.
func (Selector) RankConcepts(states map[string]domain.ConceptState) []ConceptScore {
	type candidate struct {
		ConceptScore
		lastAsked int64
	}

	var candidates []candidate
	for concept, st := range states {
		ability := st.Belief.Mean()
		if ability >= MasteryThreshold {
			continue
		}
		if st.Attempts > MaxAttempts {
			continue
		}
		uncertainty := st.Belief.StdDev()
		candidates = append(candidates, candidate{
			ConceptScore: ConceptScore{
				Concept:          concept,
				Score:            uncertainty + (1 - ability),
				EstimatedAbility: ability,
				Uncertainty:      uncertainty,
				Attempts:         st.Attempts,
			},
			lastAsked: st.LastAsked.UnixNano(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].lastAsked != candidates[j].lastAsked {
			return candidates[i].lastAsked < candidates[j].lastAsked
		}
		return candidates[i].Concept < candidates[j].Concept
	})

	out := make([]ConceptScore, len(candidates))
	for i, c := range candidates {
		out[i] = c.ConceptScore
	}
	return out
}

// BatchConcepts expands a ranking into a concrete question plan of the
// requested size, cycling through the ranked concepts round-robin when the
// batch is larger than the candidate pool.
func (s Selector) BatchConcepts(states map[string]domain.ConceptState, count int) []ConceptScore {
	if count <= 0 {
		count = DefaultBatchSize
	}
	if count > MaxBatchSize {
		count = MaxBatchSize
	}

	ranked := s.RankConcepts(states)
	if len(ranked) == 0 {
		return nil
	}

	batch := make([]ConceptScore, 0, count)
	for i := 0; i < count; i++ {
		batch = append(batch, ranked[i%len(ranked)])
	}
	return batch
}
