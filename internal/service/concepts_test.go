package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/jiaranai/learninglab/internal/domain"
	"github.com/jiaranai/learninglab/internal/embedding"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Gravity", "gravity"},
		{"Newton's Laws", "newton_s_laws"},
		{"  Derivative Power Rule  ", "derivative_power_rule"},
		{"REM Sleep!!", "rem_sleep"},
		{"a--b__c", "a_b_c"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveExactMatch(t *testing.T) {
	ctx := context.Background()
	concepts := newMockConceptStore()
	svc := NewConceptService(concepts, embedding.NewMockClient(), zap.NewNop())

	seeded := &domain.Concept{Key: "gravity", Title: "Gravity", Difficulty: 0.5}
	if err := concepts.Upsert(ctx, seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := svc.Resolve(ctx, "Gravity", "Physics", 0.7)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Key != "gravity" {
		t.Fatalf("expected exact match on gravity, got %q", got.Key)
	}
	if concepts.findSimilarCalls != 0 {
		t.Fatalf("exact match should skip similarity lookup")
	}
}

func TestResolveSimilarityMatch(t *testing.T) {
	ctx := context.Background()
	concepts := newMockConceptStore()
	existing := domain.Concept{Key: "newtons_laws", Title: "Newton's Laws"}
	concepts.similar = []domain.ConceptWithScore{{Concept: existing, Score: 0.91}}
	svc := NewConceptService(concepts, embedding.NewMockClient(), zap.NewNop())

	got, err := svc.Resolve(ctx, "Laws of Newton", "Physics", 0.5)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Key != "newtons_laws" {
		t.Fatalf("expected similarity fold into newtons_laws, got %q", got.Key)
	}
	if _, err := concepts.GetByKey(ctx, "laws_of_newton"); err == nil {
		t.Fatalf("similar concept should not create a new entry")
	}
}

func TestResolveCreatesNewConcept(t *testing.T) {
	ctx := context.Background()
	concepts := newMockConceptStore()
	svc := NewConceptService(concepts, embedding.NewMockClient(), zap.NewNop())

	got, err := svc.Resolve(ctx, "Photosynthesis Basics", "Plant Biology", 0.3)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Key != "photosynthesis_basics" {
		t.Fatalf("expected slugified new key, got %q", got.Key)
	}
	if got.Difficulty != 0.3 {
		t.Fatalf("expected difficulty 0.3, got %f", got.Difficulty)
	}
	if len(got.Embedding) == 0 {
		t.Fatalf("new concept should carry an embedding")
	}

	stored, err := concepts.GetByKey(ctx, "photosynthesis_basics")
	if err != nil {
		t.Fatalf("new concept not persisted: %v", err)
	}
	if stored.Description != "Plant Biology" {
		t.Fatalf("group should land in description, got %q", stored.Description)
	}
}

func TestResolveEmbeddingFailureStillCreates(t *testing.T) {
	ctx := context.Background()
	concepts := newMockConceptStore()
	embedder := embedding.NewMockClient()
	embedder.EmbedError = context.DeadlineExceeded
	svc := NewConceptService(concepts, embedder, zap.NewNop())

	got, err := svc.Resolve(ctx, "Velocity", "Physics", 0.5)
	if err != nil {
		t.Fatalf("resolve should survive embedding failure: %v", err)
	}
	if got.Key != "velocity" {
		t.Fatalf("expected velocity, got %q", got.Key)
	}
}

func TestResolveEmptyName(t *testing.T) {
	svc := NewConceptService(newMockConceptStore(), embedding.NewMockClient(), zap.NewNop())
	if _, err := svc.Resolve(context.Background(), "!!!", "X", 0.5); err == nil {
		t.Fatalf("name with no alphanumerics should fail")
	}
}
