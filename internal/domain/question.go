package domain

import (
	"time"
)

// ResponseOutcome is the graded result of a learner answering a question.
type ResponseOutcome string

const (
	OutcomeCorrect   ResponseOutcome = "correct"
	OutcomeIncorrect ResponseOutcome = "incorrect"
	// OutcomeUnsure records an attempt without shifting belief.
	OutcomeUnsure ResponseOutcome = "unsure"
)

func ValidOutcome(o string) bool {
	switch ResponseOutcome(o) {
	case OutcomeCorrect, OutcomeIncorrect, OutcomeUnsure:
		return true
	}
	return false
}

const (
	// DefaultDifficulty is used when upstream content omits a difficulty.
	DefaultDifficulty = 0.5
	// MinQuestionDifficulty and MaxQuestionDifficulty bound what the
	// generator is asked to produce. The likelihood model itself accepts
	// the full [0,1] range.
	MinQuestionDifficulty = 0.1
	MaxQuestionDifficulty = 0.9
)

// QuestionItem is one two-option diagnostic question, produced by the
// question generator and immutable once issued.
type QuestionItem struct {
	Concept       string  `json:"concept"`
	Question      string  `json:"question"`
	OptionA       string  `json:"option_a"`
	OptionB       string  `json:"option_b"`
	CorrectAnswer string  `json:"correct_answer"`
	Explanation   string  `json:"explanation"`
	Difficulty    float64 `json:"difficulty"`
}

// GeneratedQuestion is a QuestionItem as it comes back from content
// analysis, carrying the broader concept group the generator assigned.
type GeneratedQuestion struct {
	QuestionItem
	Group string `json:"group"`
}

// ResponseEvent is one graded answer submission flowing into the belief
// updater. Transient; not retained beyond producing the next snapshot.
type ResponseEvent struct {
	UserID     string          `json:"user_id"`
	Concept    string          `json:"concept"`
	Outcome    ResponseOutcome `json:"response"`
	Difficulty float64         `json:"difficulty"`
}

// Concept is a catalog entry for one concept group. The embedding, when
// present, is used to resolve free-form concept names from generated content
// back to existing catalog keys.
type Concept struct {
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Difficulty  float64   `json:"difficulty"`
	Embedding   []float32 `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// QuestionRequest is the selector's output: ask the generator for one
// question on Concept calibrated at TargetDifficulty.
type QuestionRequest struct {
	Concept          string  `json:"concept"`
	TargetDifficulty float64 `json:"target_difficulty"`
}

// Attempt is one logged response event together with the belief snapshot it
// produced, kept for display history. Belief state itself lives only in the
// in-memory store; this log is the orchestration layer's record.
type Attempt struct {
	ID         int64              `json:"id"`
	UserID     string             `json:"user_id"`
	Concept    string             `json:"concept"`
	Outcome    ResponseOutcome    `json:"outcome"`
	Difficulty float64            `json:"difficulty"`
	Belief     BeliefDistribution `json:"belief"`
	CreatedAt  time.Time          `json:"created_at"`
}
