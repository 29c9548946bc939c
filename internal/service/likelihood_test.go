package service

import (
	"math"
	"testing"
)

func TestProbCorrectMidpoint(t *testing.T) {
	m := NewLikelihoodModel()
	if got := m.ProbCorrect(0.5, 0.5); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("equal ability and difficulty should give 0.5, got %f", got)
	}
}

func TestProbCorrectMonotonicInAbility(t *testing.T) {
	m := NewLikelihoodModel()
	prev := -1.0
	for a := 0.0; a <= 1.0; a += 0.1 {
		p := m.ProbCorrect(a, 0.5)
		if p <= prev {
			t.Fatalf("probability should rise with ability, ability %f gave %f after %f", a, p, prev)
		}
		if p <= 0 || p >= 1 {
			t.Fatalf("probability out of (0,1): %f", p)
		}
		prev = p
	}
}

func TestProbCorrectMonotonicInDifficulty(t *testing.T) {
	m := NewLikelihoodModel()
	prev := 2.0
	for d := 0.1; d <= 0.9; d += 0.1 {
		p := m.ProbCorrect(0.5, d)
		if p >= prev {
			t.Fatalf("probability should fall with difficulty, difficulty %f gave %f after %f", d, p, prev)
		}
		prev = p
	}
}

func TestProbCorrectScaleSharpens(t *testing.T) {
	gentle := LikelihoodModel{Scale: 1.0}
	sharp := LikelihoodModel{Scale: 10.0}

	if sharp.ProbCorrect(0.9, 0.1) <= gentle.ProbCorrect(0.9, 0.1) {
		t.Fatalf("larger scale should push an easy win closer to 1")
	}
	if sharp.ProbCorrect(0.1, 0.9) >= gentle.ProbCorrect(0.1, 0.9) {
		t.Fatalf("larger scale should push a hard loss closer to 0")
	}
}

func TestProbCorrectZeroScaleDefaults(t *testing.T) {
	var m LikelihoodModel
	want := NewLikelihoodModel().ProbCorrect(0.7, 0.3)
	if got := m.ProbCorrect(0.7, 0.3); math.Abs(got-want) > 1e-12 {
		t.Fatalf("zero scale should fall back to default, got %f want %f", got, want)
	}
}

func TestClampDifficulty(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"in range", 0.6, 0.6},
		{"zero defaults", 0, 0.5},
		{"negative defaults", -1, 0.5},
		{"below floor", 0.05, 0.1},
		{"above ceiling", 0.95, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampDifficulty(tt.in); got != tt.want {
				t.Errorf("ClampDifficulty(%f) = %f, want %f", tt.in, got, tt.want)
			}
		})
	}
}
