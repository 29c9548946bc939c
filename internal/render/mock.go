package render

import (
	"context"
	"path/filepath"

	"github.com/jiaranai/learninglab/internal/domain"
)

// MockRenderer is a configurable renderer for testing.
type MockRenderer struct {
	RenderResult string
	RenderError  error

	RenderCalls []domain.SceneCode
}

func NewMockRenderer() *MockRenderer {
	return &MockRenderer{}
}

func (r *MockRenderer) Render(ctx context.Context, scene domain.SceneCode, quality domain.RenderQuality) (string, error) {
	r.RenderCalls = append(r.RenderCalls, scene)
	if r.RenderError != nil {
		return "", r.RenderError
	}
	if r.RenderResult != "" {
		return r.RenderResult, nil
	}
	return filepath.Join("videos", scene.ClassName, "480p15", scene.ClassName+".mp4"), nil
}
