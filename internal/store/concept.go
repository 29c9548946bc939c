package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jiaranai/learninglab/internal/domain"
)

type ConceptStore struct {
	db *pgxpool.Pool
}

func NewConceptStore(db *pgxpool.Pool) *ConceptStore {
	return &ConceptStore{db: db}
}

func (s *ConceptStore) Upsert(ctx context.Context, c *domain.Concept) error {
	var embedding *pgvector.Vector
	if len(c.Embedding) > 0 {
		v := pgvector.NewVector(c.Embedding)
		embedding = &v
	}

	if c.Difficulty == 0 {
		c.Difficulty = domain.DefaultDifficulty
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO concepts (key, title, description, difficulty, embedding)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (key) DO UPDATE
		 SET title = EXCLUDED.title,
		     description = EXCLUDED.description,
		     difficulty = EXCLUDED.difficulty,
		     embedding = COALESCE(EXCLUDED.embedding, concepts.embedding),
		     updated_at = NOW()
		 RETURNING created_at, updated_at`,
		c.Key, c.Title, c.Description, c.Difficulty, embedding,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (s *ConceptStore) GetByKey(ctx context.Context, key string) (*domain.Concept, error) {
	c := &domain.Concept{}
	err := s.db.QueryRow(ctx,
		`SELECT key, title, description, difficulty, created_at, updated_at
		 FROM concepts WHERE key = $1`,
		key,
	).Scan(&c.Key, &c.Title, &c.Description, &c.Difficulty, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ConceptStore) List(ctx context.Context) ([]domain.Concept, error) {
	rows, err := s.db.Query(ctx,
		`SELECT key, title, description, difficulty, created_at, updated_at
		 FROM concepts ORDER BY key`,
	)
	if err != nil {
		return nil, fmt.Errorf("list concepts query: %w", err)
	}
	defer rows.Close()

	var concepts []domain.Concept
	for rows.Next() {
		var c domain.Concept
		if err := rows.Scan(&c.Key, &c.Title, &c.Description, &c.Difficulty, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan concept row: %w", err)
		}
		concepts = append(concepts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list concepts rows: %w", err)
	}
	return concepts, nil
}

func (s *ConceptStore) FindSimilar(ctx context.Context, embedding []float32, threshold float32, limit int) ([]domain.ConceptWithScore, error) {
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT key, title, description, difficulty, created_at, updated_at,
		        1 - (embedding <=> $1) AS score
		 FROM concepts
		 WHERE embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $2
		 ORDER BY score DESC
		 LIMIT $3`,
		vec, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("find similar query: %w", err)
	}
	defer rows.Close()

	var results []domain.ConceptWithScore
	for rows.Next() {
		var cs domain.ConceptWithScore
		err := rows.Scan(&cs.Key, &cs.Title, &cs.Description, &cs.Difficulty, &cs.CreatedAt, &cs.UpdatedAt, &cs.Score)
		if err != nil {
			return nil, fmt.Errorf("scan find similar row: %w", err)
		}
		results = append(results, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find similar rows: %w", err)
	}
	return results, nil
}
