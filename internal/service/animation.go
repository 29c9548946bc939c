package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jiaranai/learninglab/internal/domain"
	"github.com/jiaranai/learninglab/internal/store"
)

const (
	MinPromptLength = 5
	MaxPromptLength = 2000

	// MaxStoredTasks bounds the finished-task backlog kept for status
	// polling.
	MaxStoredTasks = 50

	// TaskRetention is how long finished tasks stay queryable.
	TaskRetention = 24 * time.Hour

	defaultPollInterval    = 2 * time.Second
	defaultTaskCleanupTick = time.Hour
)

var ErrInvalidPrompt = errors.New("invalid animation prompt")

// suspiciousPatterns are prompt fragments that suggest an attempt to drive
// the generated code outside of rendering.
var suspiciousPatterns = []string{
	"rm -rf",
	"system(",
	"subprocess",
	"exec(",
	"--dangerous",
	"os.remove",
}

// AnimationService queues animation prompts, turns them into scene code,
// and renders them through a background worker.
type AnimationService struct {
	tasks    domain.RenderTaskStore
	llm      domain.LLMClient
	renderer domain.Renderer
	logger   *zap.Logger

	scenesDir   string
	videoPrefix string

	pollInterval time.Duration
	cleanupTick  time.Duration
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

func NewAnimationService(tasks domain.RenderTaskStore, llmClient domain.LLMClient, renderer domain.Renderer, scenesDir string, logger *zap.Logger) *AnimationService {
	return &AnimationService{
		tasks:        tasks,
		llm:          llmClient,
		renderer:     renderer,
		logger:       logger,
		scenesDir:    scenesDir,
		videoPrefix:  "/animations/video/",
		pollInterval: defaultPollInterval,
		cleanupTick:  defaultTaskCleanupTick,
		stopCh:       make(chan struct{}),
	}
}

func (s *AnimationService) SetPollInterval(d time.Duration) {
	s.pollInterval = d
}

// ValidatePrompt rejects prompts that are too short, too long, or contain
// fragments aimed at escaping the renderer.
func ValidatePrompt(prompt string) error {
	trimmed := strings.TrimSpace(prompt)
	if len(trimmed) < MinPromptLength {
		return fmt.Errorf("%w: too short", ErrInvalidPrompt)
	}
	if len(trimmed) > MaxPromptLength {
		return fmt.Errorf("%w: too long", ErrInvalidPrompt)
	}
	lower := strings.ToLower(trimmed)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%w: contains disallowed pattern %q", ErrInvalidPrompt, pattern)
		}
	}
	return nil
}

// Generate validates a prompt and enqueues a render task. The returned task
// is pending; callers poll Status for progress.
func (s *AnimationService) Generate(ctx context.Context, prompt string, quality domain.RenderQuality) (*domain.RenderTask, error) {
	if err := ValidatePrompt(prompt); err != nil {
		return nil, err
	}
	if quality == "" {
		quality = domain.QualityLow
	}
	if !domain.ValidQuality(quality) {
		return nil, fmt.Errorf("%w: unknown quality %q", ErrInvalidPrompt, quality)
	}

	task := &domain.RenderTask{
		ID:      uuid.NewString(),
		Prompt:  strings.TrimSpace(prompt),
		Status:  domain.TaskPending,
		Message: "queued for rendering",
		Quality: quality,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("enqueue render task: %w", err)
	}
	s.logger.Info("render task queued",
		zap.String("task_id", task.ID),
		zap.String("quality", string(quality)))
	return task, nil
}

// Status returns the current state of a render task.
func (s *AnimationService) Status(ctx context.Context, taskID string) (*domain.RenderTask, error) {
	return s.tasks.Get(ctx, taskID)
}

// ErrTaskNotCancellable rejects cancellation of tasks the worker has
// already picked up or finished.
var ErrTaskNotCancellable = errors.New("task is not pending")

// Cancel withdraws a pending task from the queue. Tasks already claimed by
// the worker run to completion.
func (s *AnimationService) Cancel(ctx context.Context, taskID string) (*domain.RenderTask, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.TaskPending {
		return nil, fmt.Errorf("%w: status %q", ErrTaskNotCancellable, task.Status)
	}

	task.Status = domain.TaskCancelled
	task.Message = "cancelled before rendering"
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("cancel render task: %w", err)
	}
	s.logger.Info("render task cancelled", zap.String("task_id", taskID))
	return task, nil
}

// Scenes lists the scene scripts available for re-rendering.
func (s *AnimationService) Scenes() ([]string, error) {
	entries, err := os.ReadDir(s.scenesDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read scenes dir: %w", err)
	}

	var scenes []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".py") {
			continue
		}
		scenes = append(scenes, strings.TrimSuffix(e.Name(), ".py"))
	}
	return scenes, nil
}

// RenderExisting enqueues a render of an already saved scene script,
// skipping code generation.
func (s *AnimationService) RenderExisting(ctx context.Context, sceneName string, quality domain.RenderQuality) (*domain.RenderTask, error) {
	if sceneName == "" || strings.ContainsAny(sceneName, "/\\.") {
		return nil, fmt.Errorf("%w: bad scene name %q", ErrInvalidPrompt, sceneName)
	}
	if _, err := os.Stat(filepath.Join(s.scenesDir, sceneName+".py")); err != nil {
		return nil, fmt.Errorf("scene %q not found: %w", sceneName, err)
	}
	if quality == "" {
		quality = domain.QualityLow
	}
	if !domain.ValidQuality(quality) {
		return nil, fmt.Errorf("%w: unknown quality %q", ErrInvalidPrompt, quality)
	}

	task := &domain.RenderTask{
		ID:        uuid.NewString(),
		SceneName: sceneName,
		Status:    domain.TaskPending,
		Message:   "queued for rendering",
		Quality:   quality,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("enqueue render task: %w", err)
	}
	return task, nil
}

// Start launches the render worker and the retention sweeper.
func (s *AnimationService) Start() {
	s.wg.Add(2)

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		s.logger.Info("render worker started", zap.Duration("poll_interval", s.pollInterval))
		for {
			select {
			case <-ticker.C:
				s.drainQueue()
			case <-s.stopCh:
				s.logger.Info("render worker stopped")
				return
			}
		}
	}()

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cleanupTick)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.cleanup()
			case <-s.stopCh:
				return
			}
		}
	}()
}

func (s *AnimationService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// drainQueue claims and processes pending tasks until the queue is empty.
func (s *AnimationService) drainQueue() {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		task, err := s.tasks.ClaimPending(ctx)
		if err != nil {
			cancel()
			if !errors.Is(err, store.ErrNotFound) {
				s.logger.Error("claiming render task failed", zap.Error(err))
			}
			return
		}
		s.process(ctx, task)
		cancel()
	}
}

// process runs one claimed task end to end and records the outcome.
func (s *AnimationService) process(ctx context.Context, task *domain.RenderTask) {
	s.logger.Info("processing render task", zap.String("task_id", task.ID))

	scene, err := s.resolveScene(ctx, task)
	if err != nil {
		s.fail(ctx, task, err)
		return
	}

	rel, err := s.renderer.Render(ctx, *scene, task.Quality)
	if err != nil {
		s.fail(ctx, task, fmt.Errorf("rendering: %w", err))
		return
	}

	task.Status = domain.TaskSucceeded
	task.Message = "render complete"
	task.SceneName = scene.ClassName
	task.ResultURL = s.videoPrefix + filepath.ToSlash(rel)
	task.ErrorDetail = ""
	task.ErrorCategory = ""
	if err := s.tasks.Update(ctx, task); err != nil {
		s.logger.Error("persisting task success failed",
			zap.String("task_id", task.ID), zap.Error(err))
		return
	}
	s.logger.Info("render task finished",
		zap.String("task_id", task.ID),
		zap.String("result_url", task.ResultURL))
}

func (s *AnimationService) resolveScene(ctx context.Context, task *domain.RenderTask) (*domain.SceneCode, error) {
	if task.SceneName != "" && task.Prompt == "" {
		source, err := os.ReadFile(filepath.Join(s.scenesDir, task.SceneName+".py"))
		if err != nil {
			return nil, fmt.Errorf("read scene script: %w", err)
		}
		return &domain.SceneCode{ClassName: task.SceneName, Source: string(source)}, nil
	}

	scene, err := s.llm.GenerateScene(ctx, task.Prompt)
	if err != nil {
		return nil, fmt.Errorf("code generation: %w", err)
	}
	return scene, nil
}

func (s *AnimationService) fail(ctx context.Context, task *domain.RenderTask, cause error) {
	task.Status = domain.TaskFailed
	task.Message = "render failed"
	task.ErrorDetail = cause.Error()
	task.ErrorCategory = categorizeError(cause)
	if err := s.tasks.Update(ctx, task); err != nil {
		s.logger.Error("persisting task failure failed",
			zap.String("task_id", task.ID), zap.Error(err))
	}
	s.logger.Warn("render task failed",
		zap.String("task_id", task.ID),
		zap.String("category", string(task.ErrorCategory)),
		zap.Error(cause))
}

// categorizeError maps a failure to a coarse category clients can branch on.
func categorizeError(err error) domain.ErrorCategory {
	if err == nil {
		return domain.ErrCatUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, ErrInvalidPrompt):
		return domain.ErrCatValidation
	case strings.Contains(msg, "code generation"):
		return domain.ErrCatCodeGen
	case strings.Contains(msg, "api returned status"), strings.Contains(msg, "request failed"):
		return domain.ErrCatAPI
	case strings.Contains(msg, "render"):
		return domain.ErrCatRendering
	case strings.Contains(msg, "read scene script"), strings.Contains(msg, "permission"), strings.Contains(msg, "no such file"):
		return domain.ErrCatSystem
	default:
		return domain.ErrCatUnknown
	}
}

func (s *AnimationService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if n, err := s.tasks.DeleteOlderThan(ctx, time.Now().Add(-TaskRetention)); err != nil {
		s.logger.Error("task retention sweep failed", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("old render tasks removed", zap.Int64("count", n))
	}

	if n, err := s.tasks.TrimToNewest(ctx, MaxStoredTasks); err != nil {
		s.logger.Error("task trim failed", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("render task backlog trimmed", zap.Int64("count", n))
	}
}
