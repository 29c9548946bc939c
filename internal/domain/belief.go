package domain

import (
	"math"
	"time"
)

// NumAbilityLevels is the number of grid points in the discretized ability
// scale. Every belief distribution across all users and concepts shares the
// same grid.
const NumAbilityLevels = 10

// AbilityGrid returns the fixed, evenly spaced ability levels
// 0.0, 0.1, ... 0.9. The grid is immutable; callers get a fresh slice.
func AbilityGrid() []float64 {
	grid := make([]float64, NumAbilityLevels)
	for i := range grid {
		grid[i] = float64(i) / NumAbilityLevels
	}
	return grid
}

// BeliefPoint is one (ability level, probability) entry of a discretized
// belief distribution. The short JSON keys match the wire format consumed by
// the belief chart on the client.
type BeliefPoint struct {
	Ability     float64 `json:"a"`
	Probability float64 `json:"p"`
}

// BeliefDistribution is a discretized probability distribution over the
// ability grid for one (user, concept) pair. Probabilities always sum to 1
// within floating tolerance.
type BeliefDistribution struct {
	Points []BeliefPoint `json:"belief"`
}

// UniformBelief returns a fresh distribution with equal mass on every grid
// point.
func UniformBelief() BeliefDistribution {
	points := make([]BeliefPoint, NumAbilityLevels)
	for i, a := range AbilityGrid() {
		points[i] = BeliefPoint{Ability: a, Probability: 1.0 / NumAbilityLevels}
	}
	return BeliefDistribution{Points: points}
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing the stored slice.
func (d BeliefDistribution) Clone() BeliefDistribution {
	points := make([]BeliefPoint, len(d.Points))
	copy(points, d.Points)
	return BeliefDistribution{Points: points}
}

// Mean returns the expected ability under the distribution.
func (d BeliefDistribution) Mean() float64 {
	var mean float64
	for _, bp := range d.Points {
		mean += bp.Ability * bp.Probability
	}
	return mean
}

// StdDev returns the standard deviation of ability under the distribution,
// used as the uncertainty measure for adaptive selection.
func (d BeliefDistribution) StdDev() float64 {
	mean := d.Mean()
	var variance float64
	for _, bp := range d.Points {
		diff := bp.Ability - mean
		variance += diff * diff * bp.Probability
	}
	return math.Sqrt(variance)
}

// TotalMass returns the probability sum. For a valid distribution this is
// 1.0 within floating tolerance.
func (d BeliefDistribution) TotalMass() float64 {
	var sum float64
	for _, bp := range d.Points {
		sum += bp.Probability
	}
	return sum
}

// ConceptState is the full per-(user, concept) learning state: the belief
// distribution plus attempt bookkeeping used by the adaptive selector.
type ConceptState struct {
	Belief    BeliefDistribution `json:"belief"`
	Attempts  int                `json:"attempts"`
	Correct   int                `json:"correct"`
	LastAsked time.Time          `json:"last_asked,omitempty"`
}

// Clone returns a deep copy of the state.
func (s ConceptState) Clone() ConceptState {
	out := s
	out.Belief = s.Belief.Clone()
	return out
}

// BeliefSummary is the derived read the selector and reporting endpoints
// consume: a point estimate plus a dispersion measure.
type BeliefSummary struct {
	EstimatedAbility float64 `json:"estimated_ability"`
	Uncertainty      float64 `json:"uncertainty"`
	Attempts         int     `json:"attempts"`
	Seen             bool    `json:"seen"`
}
