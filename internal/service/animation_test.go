package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jiaranai/learninglab/internal/domain"
	"github.com/jiaranai/learninglab/internal/llm"
	"github.com/jiaranai/learninglab/internal/render"
	"github.com/jiaranai/learninglab/internal/store"
)

type animationFixture struct {
	svc      *AnimationService
	tasks    *mockTaskStore
	llm      *llm.MockClient
	renderer *render.MockRenderer
}

func newAnimationFixture(t *testing.T) *animationFixture {
	t.Helper()
	tasks := newMockTaskStore()
	mockLLM := llm.NewMockClient()
	renderer := render.NewMockRenderer()
	svc := NewAnimationService(tasks, mockLLM, renderer, t.TempDir(), zap.NewNop())
	return &animationFixture{svc: svc, tasks: tasks, llm: mockLLM, renderer: renderer}
}

func TestValidatePrompt(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		wantErr bool
	}{
		{"valid", "Animate a bouncing ball", false},
		{"too short", "hey", true},
		{"too long", strings.Repeat("a", MaxPromptLength+1), true},
		{"rm -rf", "draw a circle then rm -rf /", true},
		{"subprocess", "use subprocess to render", true},
		{"exec call", "exec('import os')", true},
		{"os.remove", "animate os.remove in action", true},
		{"case insensitive", "Draw then RM -RF everything", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrompt(tt.prompt)
			if tt.wantErr && !errors.Is(err, ErrInvalidPrompt) {
				t.Fatalf("expected ErrInvalidPrompt, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestGenerateQueuesTask(t *testing.T) {
	f := newAnimationFixture(t)

	task, err := f.svc.Generate(context.Background(), "Animate a rotating square", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if task.Status != domain.TaskPending {
		t.Fatalf("new task should be pending, got %s", task.Status)
	}
	if task.Quality != domain.QualityLow {
		t.Fatalf("empty quality should default to low, got %s", task.Quality)
	}
	if task.ID == "" {
		t.Fatalf("task needs an ID")
	}
}

func TestGenerateRejectsBadQuality(t *testing.T) {
	f := newAnimationFixture(t)
	if _, err := f.svc.Generate(context.Background(), "Animate a square", "ultra"); !errors.Is(err, ErrInvalidPrompt) {
		t.Fatalf("expected ErrInvalidPrompt for bad quality, got %v", err)
	}
}

func TestCancelPendingTask(t *testing.T) {
	f := newAnimationFixture(t)
	ctx := context.Background()

	task, err := f.svc.Generate(ctx, "Animate a pendulum swinging", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, task.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.TaskCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if !cancelled.Status.Terminal() {
		t.Fatalf("cancelled must be terminal")
	}

	// A cancelled task never reaches the worker.
	if _, err := f.tasks.ClaimPending(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("queue should be empty after cancel, got %v", err)
	}

	// Cancelling twice, or cancelling a running task, is rejected.
	if _, err := f.svc.Cancel(ctx, task.ID); !errors.Is(err, ErrTaskNotCancellable) {
		t.Fatalf("expected ErrTaskNotCancellable, got %v", err)
	}
	if _, err := f.svc.Cancel(ctx, "no-such-task"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProcessSuccess(t *testing.T) {
	f := newAnimationFixture(t)
	ctx := context.Background()

	task, err := f.svc.Generate(ctx, "Animate a circle being drawn", domain.QualityMedium)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claimed, err := f.tasks.ClaimPending(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	f.svc.process(ctx, claimed)

	final, err := f.svc.Status(ctx, task.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if final.Status != domain.TaskSucceeded {
		t.Fatalf("expected success, got %s (%s)", final.Status, final.ErrorDetail)
	}
	if !strings.HasPrefix(final.ResultURL, "/animations/video/") {
		t.Fatalf("result URL should be under the video route, got %q", final.ResultURL)
	}
	if final.SceneName != "MockScene" {
		t.Fatalf("scene name should come from generated code, got %q", final.SceneName)
	}
}

func TestProcessCodeGenFailure(t *testing.T) {
	f := newAnimationFixture(t)
	ctx := context.Background()

	task, _ := f.svc.Generate(ctx, "Animate a triangle", domain.QualityLow)
	f.llm.GenerateSceneError = errors.New("model refused")

	claimed, _ := f.tasks.ClaimPending(ctx)
	f.svc.process(ctx, claimed)

	final, err := f.svc.Status(ctx, task.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if final.Status != domain.TaskFailed {
		t.Fatalf("expected failure, got %s", final.Status)
	}
	if final.ErrorCategory != domain.ErrCatCodeGen {
		t.Fatalf("expected code_generation category, got %s", final.ErrorCategory)
	}
}

func TestProcessRenderFailure(t *testing.T) {
	f := newAnimationFixture(t)
	ctx := context.Background()

	task, _ := f.svc.Generate(ctx, "Animate a pendulum", domain.QualityLow)
	f.renderer.RenderError = errors.New("manim render failed for scene")

	claimed, _ := f.tasks.ClaimPending(ctx)
	f.svc.process(ctx, claimed)

	final, _ := f.svc.Status(ctx, task.ID)
	if final.Status != domain.TaskFailed {
		t.Fatalf("expected failure, got %s", final.Status)
	}
	if final.ErrorCategory != domain.ErrCatRendering {
		t.Fatalf("expected rendering category, got %s", final.ErrorCategory)
	}
}

func TestScenesAndRenderExisting(t *testing.T) {
	f := newAnimationFixture(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(f.svc.scenesDir, "DrawTriangle.py"), []byte("from manim import *\n\nclass DrawTriangle(Scene):\n    pass\n"), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}

	scenes, err := f.svc.Scenes()
	if err != nil {
		t.Fatalf("scenes: %v", err)
	}
	if len(scenes) != 1 || scenes[0] != "DrawTriangle" {
		t.Fatalf("expected [DrawTriangle], got %v", scenes)
	}

	task, err := f.svc.RenderExisting(ctx, "DrawTriangle", domain.QualityLow)
	if err != nil {
		t.Fatalf("render existing: %v", err)
	}

	claimed, _ := f.tasks.ClaimPending(ctx)
	f.svc.process(ctx, claimed)

	final, _ := f.svc.Status(ctx, task.ID)
	if final.Status != domain.TaskSucceeded {
		t.Fatalf("expected success, got %s (%s)", final.Status, final.ErrorDetail)
	}
	// Existing scenes skip code generation entirely.
	if len(f.llm.GenerateSceneCalls) != 0 {
		t.Fatalf("render existing should not call the model")
	}
}

func TestRenderExistingRejectsTraversal(t *testing.T) {
	f := newAnimationFixture(t)
	for _, name := range []string{"", "../etc/passwd", "a/b", "scene.py"} {
		if _, err := f.svc.RenderExisting(context.Background(), name, domain.QualityLow); err == nil {
			t.Fatalf("scene name %q should be rejected", name)
		}
	}
}
