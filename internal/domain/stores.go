package domain

import (
	"context"
	"time"
)

type ConceptStore interface {
	Upsert(ctx context.Context, c *Concept) error
	GetByKey(ctx context.Context, key string) (*Concept, error)
	List(ctx context.Context) ([]Concept, error)
	// FindSimilar returns concepts whose name embeddings are within the
	// cosine-similarity threshold of the query embedding, best first.
	FindSimilar(ctx context.Context, embedding []float32, threshold float32, limit int) ([]ConceptWithScore, error)
}

type ConceptWithScore struct {
	Concept
	Score float32 `json:"score"`
}

type AttemptStore interface {
	Record(ctx context.Context, a *Attempt) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Attempt, error)
}

type RenderTaskStore interface {
	Create(ctx context.Context, t *RenderTask) error
	Get(ctx context.Context, id string) (*RenderTask, error)
	Update(ctx context.Context, t *RenderTask) error
	// ClaimPending atomically moves the oldest pending task to processing
	// and returns it, or ErrNotFound when the queue is empty.
	ClaimPending(ctx context.Context) (*RenderTask, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// TrimToNewest deletes terminal tasks beyond the newest max.
	TrimToNewest(ctx context.Context, max int) (int64, error)
}

type SessionStore interface {
	Save(ctx context.Context, s *ClassroomSession) error
	Get(ctx context.Context, id string) (*ClassroomSession, error)
	DeleteExpired(ctx context.Context, ttl time.Duration) (int, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type LLMClient interface {
	GenerateQuestions(ctx context.Context, content string, count int) ([]GeneratedQuestion, error)
	GenerateQuestion(ctx context.Context, req QuestionRequest) (*QuestionItem, error)
	ClassroomTurn(ctx context.Context, prompt TurnPrompt) (*TurnPayload, error)
	Lecture(ctx context.Context, topic string, masteryHint string, roster []Persona) ([]TurnPayload, error)
	SummarizeDiscussion(ctx context.Context, previous string, recent []string) (string, error)
	GenerateScene(ctx context.Context, prompt string) (*SceneCode, error)
}

type Renderer interface {
	// Render compiles scene source into a video and returns the path of
	// the produced file relative to the videos directory.
	Render(ctx context.Context, scene SceneCode, quality RenderQuality) (string, error)
}
