package domain

import (
	"math"
	"testing"
)

func TestUniformBelief(t *testing.T) {
	d := UniformBelief()

	if len(d.Points) != NumAbilityLevels {
		t.Fatalf("expected %d points, got %d", NumAbilityLevels, len(d.Points))
	}
	if math.Abs(d.TotalMass()-1.0) > 1e-9 {
		t.Errorf("total mass = %v, want 1.0", d.TotalMass())
	}
	for i, bp := range d.Points {
		wantAbility := float64(i) / NumAbilityLevels
		if bp.Ability != wantAbility {
			t.Errorf("point %d ability = %v, want %v", i, bp.Ability, wantAbility)
		}
		if bp.Probability != 1.0/NumAbilityLevels {
			t.Errorf("point %d probability = %v, want %v", i, bp.Probability, 1.0/NumAbilityLevels)
		}
	}
}

func TestBeliefMoments(t *testing.T) {
	tests := []struct {
		name       string
		dist       BeliefDistribution
		wantMean   float64
		wantStdDev float64
	}{
		{
			name: "all mass on one point",
			dist: BeliefDistribution{Points: []BeliefPoint{
				{Ability: 0.7, Probability: 1.0},
			}},
			wantMean:   0.7,
			wantStdDev: 0.0,
		},
		{
			name: "symmetric two-point split",
			dist: BeliefDistribution{Points: []BeliefPoint{
				{Ability: 0.2, Probability: 0.5},
				{Ability: 0.8, Probability: 0.5},
			}},
			wantMean:   0.5,
			wantStdDev: 0.3,
		},
		{
			name:       "uniform grid",
			dist:       UniformBelief(),
			wantMean:   0.45,
			wantStdDev: math.Sqrt(0.0825),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dist.Mean(); math.Abs(got-tt.wantMean) > 1e-9 {
				t.Errorf("Mean() = %v, want %v", got, tt.wantMean)
			}
			if got := tt.dist.StdDev(); math.Abs(got-tt.wantStdDev) > 1e-9 {
				t.Errorf("StdDev() = %v, want %v", got, tt.wantStdDev)
			}
		})
	}
}

func TestConceptStateClone(t *testing.T) {
	state := ConceptState{Belief: UniformBelief(), Attempts: 3, Correct: 2}

	clone := state.Clone()
	clone.Belief.Points[0].Probability = 0.99
	clone.Attempts = 10

	if state.Belief.Points[0].Probability == 0.99 {
		t.Error("mutating clone's belief leaked into the original")
	}
	if state.Attempts != 3 {
		t.Errorf("original attempts = %d, want 3", state.Attempts)
	}
}
