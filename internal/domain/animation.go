package domain

import "time"

// TaskStatus is the lifecycle state of a render task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskSucceeded  TaskStatus = "succeeded"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether a status is final.
func (s TaskStatus) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed || s == TaskCancelled
}

// ErrorCategory classifies why a render task failed, so callers can tell a
// bad prompt from a broken renderer.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation"
	ErrCatAPI        ErrorCategory = "api"
	ErrCatCodeGen    ErrorCategory = "code_generation"
	ErrCatRendering  ErrorCategory = "rendering"
	ErrCatSystem     ErrorCategory = "system"
	ErrCatUnknown    ErrorCategory = "unknown"
)

// RenderQuality selects the renderer's speed/fidelity trade-off.
type RenderQuality string

const (
	QualityLow    RenderQuality = "low"
	QualityMedium RenderQuality = "medium"
	QualityHigh   RenderQuality = "high"
)

// ValidQuality reports whether q is a recognised quality level.
func ValidQuality(q RenderQuality) bool {
	switch q {
	case QualityLow, QualityMedium, QualityHigh:
		return true
	}
	return false
}

// RenderTask is one queued animation job. ResultURL is set only on success;
// ErrorDetail and ErrorCategory only on failure.
type RenderTask struct {
	ID            string        `json:"task_id"`
	Prompt        string        `json:"prompt"`
	SceneName     string        `json:"scene_name,omitempty"`
	Status        TaskStatus    `json:"status"`
	Message       string        `json:"message,omitempty"`
	ResultURL     string        `json:"result_url,omitempty"`
	ErrorDetail   string        `json:"error,omitempty"`
	ErrorCategory ErrorCategory `json:"error_category,omitempty"`
	Quality       RenderQuality `json:"quality"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// SceneCode is generated animation source ready to hand to the renderer.
type SceneCode struct {
	ClassName string `json:"class_name"`
	Source    string `json:"source"`
}
