package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jiaranai/learninglab/internal/domain"
)

type AttemptStore struct {
	db *pgxpool.Pool
}

func NewAttemptStore(db *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) Record(ctx context.Context, a *domain.Attempt) error {
	belief, err := json.Marshal(a.Belief)
	if err != nil {
		return fmt.Errorf("marshal belief: %w", err)
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO attempts (user_id, concept, outcome, difficulty, belief)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		a.UserID, a.Concept, a.Outcome, a.Difficulty, belief,
	).Scan(&a.ID, &a.CreatedAt)
}

func (s *AttemptStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Attempt, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, concept, outcome, difficulty, belief, created_at
		 FROM attempts WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts query: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		var belief []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.Concept, &a.Outcome, &a.Difficulty, &belief, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}
		if len(belief) > 0 {
			if err := json.Unmarshal(belief, &a.Belief); err != nil {
				return nil, fmt.Errorf("unmarshal belief: %w", err)
			}
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts rows: %w", err)
	}
	return attempts, nil
}
