package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jiaranai/learninglab/internal/domain"
	"github.com/jiaranai/learninglab/internal/store"
)

var (
	ErrUnknownUser  = errors.New("unknown user")
	ErrNothingToAsk = errors.New("no eligible concepts")
)

// maxGenerateConcurrency bounds parallel question generation calls so a
// batch request cannot stampede the LLM provider.
const maxGenerateConcurrency = 4

// DiagnosticService runs the adaptive assessment loop: generate questions
// from content, record responses into belief state, and pick what to ask
// next.
type DiagnosticService struct {
	beliefs  *store.BeliefStore
	concepts *ConceptService
	attempts domain.AttemptStore
	llm      domain.LLMClient
	updater  BeliefUpdater
	selector Selector
	logger   *zap.Logger
}

func NewDiagnosticService(
	beliefs *store.BeliefStore,
	concepts *ConceptService,
	attempts domain.AttemptStore,
	llmClient domain.LLMClient,
	logger *zap.Logger,
) *DiagnosticService {
	return &DiagnosticService{
		beliefs:  beliefs,
		concepts: concepts,
		attempts: attempts,
		llm:      llmClient,
		updater:  NewBeliefUpdater(NewLikelihoodModel()),
		selector: NewSelector(),
		logger:   logger,
	}
}

// GenerateFromContent turns uploaded study material into diagnostic
// questions and registers every referenced concept in the catalog.
func (s *DiagnosticService) GenerateFromContent(ctx context.Context, content string, count int) ([]domain.GeneratedQuestion, error) {
	if count <= 0 {
		count = DefaultBatchSize
	}
	if count > MaxBatchSize {
		count = MaxBatchSize
	}

	questions, err := s.llm.GenerateQuestions(ctx, content, count)
	if err != nil {
		return nil, fmt.Errorf("generate diagnostic questions: %w", err)
	}

	out := make([]domain.GeneratedQuestion, 0, len(questions))
	for _, q := range questions {
		concept, err := s.concepts.Resolve(ctx, q.Concept, q.Group, q.Difficulty)
		if err != nil {
			s.logger.Warn("skipping question with unresolvable concept",
				zap.String("concept", q.Concept), zap.Error(err))
			continue
		}
		q.Concept = concept.Key
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable questions generated")
	}
	s.logger.Info("diagnostic questions generated", zap.Int("count", len(out)))
	return out, nil
}

// RecordResponse folds one answer into the user's belief state and persists
// the attempt. Unsure responses leave both the belief and the counters
// untouched.
func (s *DiagnosticService) RecordResponse(ctx context.Context, ev domain.ResponseEvent) (domain.ConceptState, error) {
	if !domain.ValidOutcome(string(ev.Outcome)) {
		return domain.ConceptState{}, fmt.Errorf("invalid response outcome %q", ev.Outcome)
	}

	concept, err := s.concepts.Resolve(ctx, ev.Concept, "", ev.Difficulty)
	if err != nil {
		return domain.ConceptState{}, err
	}

	difficulty := ClampDifficulty(ev.Difficulty)

	state := s.beliefs.Mutate(ev.UserID, concept.Key, func(st *domain.ConceptState) {
		if ev.Outcome == domain.OutcomeUnsure {
			return
		}
		st.Belief = s.updater.Posterior(st.Belief, ev.Outcome, difficulty)
		st.Attempts++
		if ev.Outcome == domain.OutcomeCorrect {
			st.Correct++
		}
	})

	if ev.Outcome != domain.OutcomeUnsure {
		attempt := &domain.Attempt{
			UserID:     ev.UserID,
			Concept:    concept.Key,
			Outcome:    ev.Outcome,
			Difficulty: difficulty,
			Belief:     state.Belief,
		}
		if err := s.attempts.Record(ctx, attempt); err != nil {
			// Belief state is already updated; history is best effort.
			s.logger.Warn("recording attempt failed",
				zap.String("user_id", ev.UserID),
				zap.String("concept", concept.Key),
				zap.Error(err))
		}
	}

	s.logger.Info("response recorded",
		zap.String("user_id", ev.UserID),
		zap.String("concept", concept.Key),
		zap.String("outcome", string(ev.Outcome)),
		zap.Float64("estimated_ability", state.Belief.Mean()))
	return state, nil
}

// candidateStates merges the concept catalog into the user's belief
// snapshot. Catalog concepts the user has never answered enter at the
// uniform prior, so they carry maximal uncertainty and compete for
// exploration; a brand-new user is a valid candidate pool, not an error.
func (s *DiagnosticService) candidateStates(ctx context.Context, userID string) map[string]domain.ConceptState {
	states := s.beliefs.Snapshot(userID)

	catalog, err := s.concepts.List(ctx)
	if err != nil {
		s.logger.Warn("listing concept catalog failed, ranking answered concepts only",
			zap.Error(err))
		return states
	}
	for _, c := range catalog {
		if _, ok := states[c.Key]; !ok {
			states[c.Key] = domain.ConceptState{Belief: domain.UniformBelief()}
		}
	}
	return states
}

// NextQuestion picks the single best concept to probe and generates a
// question at the user's estimated ability.
func (s *DiagnosticService) NextQuestion(ctx context.Context, userID string) (*domain.QuestionItem, error) {
	ranked := s.selector.RankConcepts(s.candidateStates(ctx, userID))
	if len(ranked) == 0 {
		return nil, ErrNothingToAsk
	}

	q, err := s.generateFor(ctx, userID, ranked[0])
	if err != nil {
		return nil, err
	}
	return q, nil
}

// NextBatch builds an adaptive question batch. The first wave over distinct
// concepts fans out concurrently; round-robin repeats fill the remainder.
func (s *DiagnosticService) NextBatch(ctx context.Context, userID string, count int) ([]domain.QuestionItem, error) {
	plan := s.selector.BatchConcepts(s.candidateStates(ctx, userID), count)
	if len(plan) == 0 {
		return []domain.QuestionItem{}, nil
	}

	questions := make([]*domain.QuestionItem, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxGenerateConcurrency)
	for i, cs := range plan {
		i, cs := i, cs
		g.Go(func() error {
			q, err := s.generateFor(gctx, userID, cs)
			if err != nil {
				// A single failed generation only shrinks the batch.
				s.logger.Warn("question generation failed",
					zap.String("concept", cs.Concept), zap.Error(err))
				return nil
			}
			questions[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Every failed generation shrinks the batch; an empty batch is a
	// valid result.
	out := make([]domain.QuestionItem, 0, len(plan))
	for _, q := range questions {
		if q != nil {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *DiagnosticService) generateFor(ctx context.Context, userID string, cs ConceptScore) (*domain.QuestionItem, error) {
	// Target difficulty tracks the current ability estimate so questions
	// stay near the edge of the learner's competence.
	q, err := s.llm.GenerateQuestion(ctx, domain.QuestionRequest{
		Concept:          cs.Concept,
		TargetDifficulty: ClampDifficulty(cs.EstimatedAbility),
	})
	if err != nil {
		return nil, fmt.Errorf("generate question for %q: %w", cs.Concept, err)
	}
	s.beliefs.MarkAsked(userID, cs.Concept, time.Now())
	return q, nil
}

// UserProfile is the per-user diagnostic report.
type UserProfile struct {
	UserID   string                          `json:"user_id"`
	Concepts map[string]domain.BeliefSummary `json:"concepts"`
	History  []domain.Attempt                `json:"history,omitempty"`
}

// Profile reports belief summaries and recent attempt history for a user.
func (s *DiagnosticService) Profile(ctx context.Context, userID string, historyLimit int) (*UserProfile, error) {
	if !s.beliefs.HasUser(userID) {
		return nil, ErrUnknownUser
	}

	profile := &UserProfile{
		UserID:   userID,
		Concepts: s.beliefs.Summarize(userID),
	}

	if historyLimit > 0 {
		history, err := s.attempts.ListByUser(ctx, userID, historyLimit)
		if err != nil {
			s.logger.Warn("loading attempt history failed",
				zap.String("user_id", userID), zap.Error(err))
		} else {
			profile.History = history
		}
	}
	return profile, nil
}

// MasterySummary condenses a user's belief state into a short prompt hint
// for the classroom lecture.
func (s *DiagnosticService) MasterySummary(userID string) string {
	summaries := s.beliefs.Summarize(userID)
	if len(summaries) == 0 {
		return ""
	}

	var weak, strong []string
	for concept, sum := range summaries {
		if sum.EstimatedAbility < 0.4 {
			weak = append(weak, concept)
		} else if sum.EstimatedAbility >= MasteryThreshold {
			strong = append(strong, concept)
		}
	}

	switch {
	case len(weak) > 0:
		return fmt.Sprintf(" The student is struggling with: %s. Spend extra time there.", joinSorted(weak))
	case len(strong) > 0:
		return fmt.Sprintf(" The student already masters: %s. Build on that foundation.", joinSorted(strong))
	default:
		return ""
	}
}

func joinSorted(items []string) string {
	sort.Strings(items)
	return strings.Join(items, ", ")
}
