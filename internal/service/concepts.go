package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/jiaranai/learninglab/internal/domain"
	"github.com/jiaranai/learninglab/internal/store"
)

const (
	// SimilarityCutoff is the minimum embedding similarity for treating a
	// generated concept name as an existing catalog entry.
	SimilarityCutoff = 0.7
)

// ConceptService maintains the concept catalog and folds near-duplicate
// concept names produced by the model into existing entries.
type ConceptService struct {
	concepts domain.ConceptStore
	embedder domain.EmbeddingClient
	logger   *zap.Logger
}

func NewConceptService(concepts domain.ConceptStore, embedder domain.EmbeddingClient, logger *zap.Logger) *ConceptService {
	return &ConceptService{concepts: concepts, embedder: embedder, logger: logger}
}

// Resolve maps a free-form concept name to a catalog key. Resolution order:
// exact key match, then embedding similarity against the catalog, then a new
// entry under the slugified name.
func (s *ConceptService) Resolve(ctx context.Context, name, group string, difficulty float64) (*domain.Concept, error) {
	key := Slugify(name)
	if key == "" {
		return nil, fmt.Errorf("concept name %q produces an empty key", name)
	}

	existing, err := s.concepts.GetByKey(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup concept %q: %w", key, err)
	}

	embedding, err := s.embedder.Embed(ctx, name)
	if err != nil {
		s.logger.Warn("concept embedding failed, skipping similarity match",
			zap.String("concept", name), zap.Error(err))
	} else {
		similar, err := s.concepts.FindSimilar(ctx, embedding, SimilarityCutoff, 1)
		if err != nil {
			return nil, fmt.Errorf("similarity lookup for %q: %w", name, err)
		}
		if len(similar) > 0 {
			s.logger.Info("concept folded into similar catalog entry",
				zap.String("concept", name),
				zap.String("match", similar[0].Key),
				zap.Float32("score", similar[0].Score))
			return &similar[0].Concept, nil
		}
	}

	c := &domain.Concept{
		Key:         key,
		Title:       strings.TrimSpace(name),
		Description: group,
		Difficulty:  ClampDifficulty(difficulty),
		Embedding:   embedding,
	}
	if err := s.concepts.Upsert(ctx, c); err != nil {
		return nil, fmt.Errorf("create concept %q: %w", key, err)
	}
	s.logger.Info("concept created", zap.String("key", key), zap.String("group", group))
	return c, nil
}

// List returns the full concept catalog.
func (s *ConceptService) List(ctx context.Context) ([]domain.Concept, error) {
	return s.concepts.List(ctx)
}

// Slugify lowercases a concept name and collapses every non-alphanumeric
// run into a single underscore.
func Slugify(name string) string {
	var sb strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			sb.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(sb.String(), "_")
}
