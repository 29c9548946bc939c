package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/jiaranai/learninglab/internal/domain"
	"github.com/jiaranai/learninglab/internal/embedding"
	"github.com/jiaranai/learninglab/internal/llm"
	"github.com/jiaranai/learninglab/internal/store"
)

type diagnosticFixture struct {
	svc      *DiagnosticService
	beliefs  *store.BeliefStore
	concepts *mockConceptStore
	attempts *mockAttemptStore
	llm      *llm.MockClient
}

func newDiagnosticFixture() *diagnosticFixture {
	beliefs := store.NewBeliefStore()
	concepts := newMockConceptStore()
	attempts := newMockAttemptStore()
	mockLLM := llm.NewMockClient()
	conceptSvc := NewConceptService(concepts, embedding.NewMockClient(), zap.NewNop())
	return &diagnosticFixture{
		svc:      NewDiagnosticService(beliefs, conceptSvc, attempts, mockLLM, zap.NewNop()),
		beliefs:  beliefs,
		concepts: concepts,
		attempts: attempts,
		llm:      mockLLM,
	}
}

func TestGenerateFromContentRegistersConcepts(t *testing.T) {
	f := newDiagnosticFixture()

	questions, err := f.svc.GenerateFromContent(context.Background(), "Plants use light to make sugar.", 5)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("expected 1 question from mock, got %d", len(questions))
	}
	if questions[0].Concept != "photosynthesis" {
		t.Fatalf("concept should be catalog key, got %q", questions[0].Concept)
	}

	if _, err := f.concepts.GetByKey(context.Background(), "photosynthesis"); err != nil {
		t.Fatalf("concept should be registered in the catalog: %v", err)
	}
}

func TestRecordResponseCorrectRaisesBelief(t *testing.T) {
	f := newDiagnosticFixture()
	before := domain.UniformBelief().Mean()

	state, err := f.svc.RecordResponse(context.Background(), domain.ResponseEvent{
		UserID:     "u1",
		Concept:    "gravity",
		Outcome:    domain.OutcomeCorrect,
		Difficulty: 0.5,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if state.Belief.Mean() <= before {
		t.Fatalf("correct answer should raise ability: %f -> %f", before, state.Belief.Mean())
	}
	if state.Attempts != 1 || state.Correct != 1 {
		t.Fatalf("counters wrong: %+v", state)
	}
	if len(f.attempts.attempts) != 1 {
		t.Fatalf("attempt should be persisted, got %d", len(f.attempts.attempts))
	}
}

func TestRecordResponseUnsureIsNoOp(t *testing.T) {
	f := newDiagnosticFixture()

	state, err := f.svc.RecordResponse(context.Background(), domain.ResponseEvent{
		UserID:  "u1",
		Concept: "gravity",
		Outcome: domain.OutcomeUnsure,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if state.Attempts != 0 {
		t.Fatalf("unsure must not count as an attempt, got %d", state.Attempts)
	}
	uniform := domain.UniformBelief()
	for i := range uniform.Points {
		if state.Belief.Points[i].Probability != uniform.Points[i].Probability {
			t.Fatalf("unsure must leave the belief untouched at point %d", i)
		}
	}
	if len(f.attempts.attempts) != 0 {
		t.Fatalf("unsure must not be written to history")
	}
}

func TestRecordResponseInvalidOutcome(t *testing.T) {
	f := newDiagnosticFixture()
	_, err := f.svc.RecordResponse(context.Background(), domain.ResponseEvent{
		UserID:  "u1",
		Concept: "gravity",
		Outcome: "maybe",
	})
	if err == nil {
		t.Fatalf("invalid outcome should be rejected")
	}
}

func TestNextQuestionTargetsAbility(t *testing.T) {
	f := newDiagnosticFixture()

	// Seed state by answering once.
	if _, err := f.svc.RecordResponse(context.Background(), domain.ResponseEvent{
		UserID: "u1", Concept: "gravity", Outcome: domain.OutcomeCorrect, Difficulty: 0.5,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	q, err := f.svc.NextQuestion(context.Background(), "u1")
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	if q.Concept != "gravity" {
		t.Fatalf("expected gravity, got %q", q.Concept)
	}

	if len(f.llm.GenerateQuestionCalls) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(f.llm.GenerateQuestionCalls))
	}
	req := f.llm.GenerateQuestionCalls[0]
	ability := f.beliefs.GetOrInit("u1", "gravity").Belief.Mean()
	if req.TargetDifficulty != ClampDifficulty(ability) {
		t.Fatalf("target difficulty %f should track ability %f", req.TargetDifficulty, ability)
	}

	// Serving a question must stamp LastAsked for tie-breaking.
	if f.beliefs.GetOrInit("u1", "gravity").LastAsked.IsZero() {
		t.Fatalf("LastAsked not stamped")
	}
}

func TestNextQuestionEmptyCatalog(t *testing.T) {
	f := newDiagnosticFixture()
	if _, err := f.svc.NextQuestion(context.Background(), "ghost"); !errors.Is(err, ErrNothingToAsk) {
		t.Fatalf("expected ErrNothingToAsk, got %v", err)
	}
}

func TestNextBatchExploresUnseenCatalogConcepts(t *testing.T) {
	f := newDiagnosticFixture()
	ctx := context.Background()

	for _, key := range []string{"gravity", "magnetism"} {
		if err := f.concepts.Upsert(ctx, &domain.Concept{Key: key, Title: key, Difficulty: 0.5}); err != nil {
			t.Fatalf("seed catalog %s: %v", key, err)
		}
	}
	if _, err := f.svc.RecordResponse(ctx, domain.ResponseEvent{
		UserID: "u1", Concept: "gravity", Outcome: domain.OutcomeCorrect, Difficulty: 0.5,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	batch, err := f.svc.NextBatch(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("next batch: %v", err)
	}

	seen := map[string]bool{}
	for _, q := range batch {
		seen[q.Concept] = true
	}
	if !seen["magnetism"] {
		t.Fatalf("never-answered catalog concept should be explored, batch covered %v", seen)
	}
	if !seen["gravity"] {
		t.Fatalf("answered concept should still be in the pool, batch covered %v", seen)
	}
}

func TestNextBatchFreshUserExploresCatalog(t *testing.T) {
	f := newDiagnosticFixture()
	ctx := context.Background()

	for _, key := range []string{"gravity", "magnetism"} {
		if err := f.concepts.Upsert(ctx, &domain.Concept{Key: key, Title: key, Difficulty: 0.5}); err != nil {
			t.Fatalf("seed catalog %s: %v", key, err)
		}
	}

	// A user with no answer history gets a full exploration batch drawn
	// from the catalog at the uniform prior.
	batch, err := f.svc.NextBatch(ctx, "fresh", 5)
	if err != nil {
		t.Fatalf("next batch: %v", err)
	}
	if len(batch) != 5 {
		t.Fatalf("2 catalog concepts and count 5 should yield 5 questions, got %d", len(batch))
	}

	seen := map[string]bool{}
	for _, q := range batch {
		seen[q.Concept] = true
	}
	if !seen["gravity"] || !seen["magnetism"] {
		t.Fatalf("batch should cover the whole catalog, covered %v", seen)
	}

	if _, err := f.svc.NextQuestion(ctx, "fresh"); err != nil {
		t.Fatalf("fresh user should get a question, got %v", err)
	}
}

func TestNextBatchRoundRobinFill(t *testing.T) {
	f := newDiagnosticFixture()
	ctx := context.Background()

	for _, c := range []string{"gravity", "velocity", "friction"} {
		if _, err := f.svc.RecordResponse(ctx, domain.ResponseEvent{
			UserID: "u1", Concept: c, Outcome: domain.OutcomeIncorrect, Difficulty: 0.5,
		}); err != nil {
			t.Fatalf("seed %s: %v", c, err)
		}
	}

	batch, err := f.svc.NextBatch(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("next batch: %v", err)
	}
	if len(batch) != 5 {
		t.Fatalf("3 concepts and count 5 should yield 5 questions, got %d", len(batch))
	}

	seen := map[string]int{}
	for _, q := range batch {
		seen[q.Concept]++
	}
	if len(seen) != 3 {
		t.Fatalf("batch should cover all 3 concepts, covered %d", len(seen))
	}
}

func TestNextBatchSkipsFailedGeneration(t *testing.T) {
	f := newDiagnosticFixture()
	ctx := context.Background()

	if _, err := f.svc.RecordResponse(ctx, domain.ResponseEvent{
		UserID: "u1", Concept: "gravity", Outcome: domain.OutcomeIncorrect, Difficulty: 0.5,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f.llm.GenerateQuestionError = errors.New("provider down")
	batch, err := f.svc.NextBatch(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("failed generations should shrink the batch, not error: %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("expected empty batch, got %d questions", len(batch))
	}
}

func TestNextQuestionNothingLeftToAsk(t *testing.T) {
	f := newDiagnosticFixture()
	ctx := context.Background()

	// Push the concept past the attempt cap so nothing remains eligible.
	for i := 0; i < MaxAttempts+1; i++ {
		if _, err := f.svc.RecordResponse(ctx, domain.ResponseEvent{
			UserID: "u1", Concept: "gravity", Outcome: domain.OutcomeIncorrect, Difficulty: 0.5,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	if _, err := f.svc.NextQuestion(ctx, "u1"); !errors.Is(err, ErrNothingToAsk) {
		t.Fatalf("expected ErrNothingToAsk, got %v", err)
	}

	batch, err := f.svc.NextBatch(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("empty plan should not error: %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("expected empty batch, got %d questions", len(batch))
	}
}

func TestProfile(t *testing.T) {
	f := newDiagnosticFixture()
	ctx := context.Background()

	if _, err := f.svc.RecordResponse(ctx, domain.ResponseEvent{
		UserID: "u1", Concept: "gravity", Outcome: domain.OutcomeCorrect, Difficulty: 0.5,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	profile, err := f.svc.Profile(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	sum, ok := profile.Concepts["gravity"]
	if !ok {
		t.Fatalf("profile missing gravity summary")
	}
	if sum.Attempts != 1 || !sum.Seen {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if len(profile.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(profile.History))
	}

	if _, err := f.svc.Profile(ctx, "ghost", 0); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}
