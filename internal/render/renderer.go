// Package render shells out to the manim CLI to turn generated scene source
// into video files.
package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jiaranai/learninglab/internal/domain"
)

const DefaultRenderTimeout = 5 * time.Minute

type qualitySetting struct {
	flag string
	dir  string
}

// Manim quality flags and the output directory names they produce.
var qualitySettings = map[domain.RenderQuality]qualitySetting{
	domain.QualityLow:    {flag: "-ql", dir: "480p15"},
	domain.QualityMedium: {flag: "-qm", dir: "720p30"},
	domain.QualityHigh:   {flag: "-qh", dir: "1080p60"},
}

// CLIRenderer writes scene source to the scenes directory and invokes the
// manim binary. Rendered videos land under mediaDir following manim's
// <media_dir>/videos/<script>/<quality>/<stem>.mp4 layout.
type CLIRenderer struct {
	bin       string
	scenesDir string
	mediaDir  string
	timeout   time.Duration
	logger    *zap.Logger
}

func NewCLIRenderer(bin, scenesDir, mediaDir string, logger *zap.Logger) *CLIRenderer {
	if bin == "" {
		bin = "manim"
	}
	return &CLIRenderer{
		bin:       bin,
		scenesDir: scenesDir,
		mediaDir:  mediaDir,
		timeout:   DefaultRenderTimeout,
		logger:    logger,
	}
}

func (r *CLIRenderer) Render(ctx context.Context, scene domain.SceneCode, quality domain.RenderQuality) (string, error) {
	setting, ok := qualitySettings[quality]
	if !ok {
		return "", fmt.Errorf("invalid render quality %q", quality)
	}

	if err := os.MkdirAll(r.scenesDir, 0o755); err != nil {
		return "", fmt.Errorf("create scenes dir: %w", err)
	}
	if err := os.MkdirAll(r.mediaDir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	scriptPath := filepath.Join(r.scenesDir, scene.ClassName+".py")
	if err := os.WriteFile(scriptPath, []byte(scene.Source), 0o644); err != nil {
		return "", fmt.Errorf("write scene script: %w", err)
	}

	// A timestamped stem keeps re-renders of the same scene from
	// overwriting each other.
	stem := fmt.Sprintf("%s_%s", scene.ClassName, time.Now().Format("20060102_150405"))

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.bin,
		setting.flag,
		scriptPath,
		scene.ClassName,
		"-o", stem,
		"--media_dir", r.mediaDir,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.logger.Warn("manim render failed",
			zap.String("scene", scene.ClassName),
			zap.Error(err),
			zap.ByteString("output", out))
		return "", fmt.Errorf("manim render failed for scene %q: %w (output: %s)", scene.ClassName, err, out)
	}

	rel := filepath.Join("videos", scene.ClassName, setting.dir, stem+".mp4")
	if _, err := os.Stat(filepath.Join(r.mediaDir, rel)); err != nil {
		return "", fmt.Errorf("rendered video not found at %s: %w", rel, err)
	}

	r.logger.Info("scene rendered",
		zap.String("scene", scene.ClassName),
		zap.String("quality", string(quality)),
		zap.String("video", rel))
	return rel, nil
}
