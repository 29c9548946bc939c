package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jiaranai/learninglab/internal/domain"
)

type RenderTaskStore struct {
	db *pgxpool.Pool
}

func NewRenderTaskStore(db *pgxpool.Pool) *RenderTaskStore {
	return &RenderTaskStore{db: db}
}

func (s *RenderTaskStore) Create(ctx context.Context, t *domain.RenderTask) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO render_tasks (id, prompt, scene_name, status, message, quality)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		t.ID, t.Prompt, t.SceneName, t.Status, t.Message, t.Quality,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (s *RenderTaskStore) Get(ctx context.Context, id string) (*domain.RenderTask, error) {
	t := &domain.RenderTask{}
	err := s.db.QueryRow(ctx,
		`SELECT id, prompt, scene_name, status, message, result_url, error_detail, error_category, quality, created_at, updated_at
		 FROM render_tasks WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Prompt, &t.SceneName, &t.Status, &t.Message, &t.ResultURL, &t.ErrorDetail, &t.ErrorCategory, &t.Quality, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *RenderTaskStore) Update(ctx context.Context, t *domain.RenderTask) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE render_tasks
		 SET status = $1, message = $2, result_url = $3, error_detail = $4, error_category = $5, updated_at = NOW()
		 WHERE id = $6`,
		t.Status, t.Message, t.ResultURL, t.ErrorDetail, t.ErrorCategory, t.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimPending flips the oldest pending task to processing inside a single
// statement. SKIP LOCKED lets multiple workers poll without contending.
func (s *RenderTaskStore) ClaimPending(ctx context.Context) (*domain.RenderTask, error) {
	t := &domain.RenderTask{}
	err := s.db.QueryRow(ctx,
		`UPDATE render_tasks
		 SET status = $1, updated_at = NOW()
		 WHERE id = (
		     SELECT id FROM render_tasks
		     WHERE status = $2
		     ORDER BY created_at
		     FOR UPDATE SKIP LOCKED
		     LIMIT 1
		 )
		 RETURNING id, prompt, scene_name, status, message, result_url, error_detail, error_category, quality, created_at, updated_at`,
		domain.TaskProcessing, domain.TaskPending,
	).Scan(&t.ID, &t.Prompt, &t.SceneName, &t.Status, &t.Message, &t.ResultURL, &t.ErrorDetail, &t.ErrorCategory, &t.Quality, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *RenderTaskStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM render_tasks
		 WHERE created_at < $1 AND status IN ($2, $3, $4)`,
		cutoff, domain.TaskSucceeded, domain.TaskFailed, domain.TaskCancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("delete old tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *RenderTaskStore) TrimToNewest(ctx context.Context, max int) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM render_tasks
		 WHERE status IN ($1, $2, $3) AND id NOT IN (
		     SELECT id FROM render_tasks ORDER BY created_at DESC LIMIT $4
		 )`,
		domain.TaskSucceeded, domain.TaskFailed, domain.TaskCancelled, max,
	)
	if err != nil {
		return 0, fmt.Errorf("trim tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}
