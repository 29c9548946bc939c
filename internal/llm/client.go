package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jiaranai/learninglab/internal/domain"
)

type promptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completer is the provider-specific half of a client: one round trip to a
// chat completion endpoint.
type completer interface {
	complete(ctx context.Context, messages []promptMessage, temp float32) (string, error)
}

// Client implements the high-level generation operations on top of any
// provider completer. Prompt construction and response parsing are the same
// regardless of vendor.
type Client struct {
	c completer
}

func (c *Client) GenerateQuestions(ctx context.Context, content string, count int) ([]domain.GeneratedQuestion, error) {
	messages := []promptMessage{
		{Role: "system", Content: "You are an expert in educational content analysis and question generation. Strictly adhere to the requested JSON format. Ensure group names are well-chosen umbrella terms."},
		{Role: "user", Content: fmt.Sprintf(questionBatchPrompt, count, content)},
	}

	result, err := c.c.complete(ctx, messages, 0.7)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	result = stripFences(result)

	var items []domain.GeneratedQuestion
	if err := json.Unmarshal([]byte(result), &items); err != nil {
		return nil, fmt.Errorf("parse questions result: %w (raw: %s)", err, result)
	}

	for i := range items {
		sanitizeQuestion(&items[i].QuestionItem)
	}
	return items, nil
}

func (c *Client) GenerateQuestion(ctx context.Context, req domain.QuestionRequest) (*domain.QuestionItem, error) {
	messages := []promptMessage{
		{Role: "user", Content: fmt.Sprintf(singleQuestionPrompt, req.Concept, req.Concept, req.TargetDifficulty, req.Concept)},
	}

	result, err := c.c.complete(ctx, messages, 0.7)
	if err != nil {
		return nil, fmt.Errorf("generate question: %w", err)
	}
	result = stripFences(result)

	var item domain.QuestionItem
	if err := json.Unmarshal([]byte(result), &item); err != nil {
		return nil, fmt.Errorf("parse question result: %w (raw: %s)", err, result)
	}
	if item.Concept == "" {
		item.Concept = req.Concept
	}
	sanitizeQuestion(&item)
	return &item, nil
}

func (c *Client) ClassroomTurn(ctx context.Context, prompt domain.TurnPrompt) (*domain.TurnPayload, error) {
	recent := "No recent student comments yet."
	if len(prompt.RecentComments) > 0 {
		recent = strings.Join(prompt.RecentComments, "\n")
	}

	messages := []promptMessage{
		{Role: "user", Content: fmt.Sprintf(classroomTurnPrompt, rosterText(prompt.Roster), prompt.Summary, recent, prompt.UserMessage)},
	}

	result, err := c.c.complete(ctx, messages, 0.8)
	if err != nil {
		return nil, fmt.Errorf("classroom turn: %w", err)
	}
	result = stripFences(result)

	var payload domain.TurnPayload
	if err := json.Unmarshal([]byte(result), &payload); err != nil {
		return nil, fmt.Errorf("parse turn result: %w (raw: %s)", err, result)
	}
	if payload.Teacher == "" {
		return nil, fmt.Errorf("turn result missing teacher line (raw: %s)", result)
	}
	return &payload, nil
}

func (c *Client) Lecture(ctx context.Context, topic string, masteryHint string, roster []domain.Persona) ([]domain.TurnPayload, error) {
	instruction := fmt.Sprintf("Simulate the start of a lecture on %q.", topic)
	if masteryHint != "" {
		instruction += " " + masteryHint
	}

	messages := []promptMessage{
		{Role: "user", Content: fmt.Sprintf(lecturePrompt, "", instruction)},
	}

	result, err := c.c.complete(ctx, messages, 0.7)
	if err != nil {
		return nil, fmt.Errorf("lecture: %w", err)
	}
	result = stripFences(result)

	var payload struct {
		Turns []domain.TurnPayload `json:"turns"`
	}
	if err := json.Unmarshal([]byte(result), &payload); err != nil {
		return nil, fmt.Errorf("parse lecture result: %w (raw: %s)", err, result)
	}
	if len(payload.Turns) == 0 {
		return nil, fmt.Errorf("lecture result has no turns (raw: %s)", result)
	}
	return payload.Turns, nil
}

func (c *Client) SummarizeDiscussion(ctx context.Context, previous string, recent []string) (string, error) {
	messages := []promptMessage{
		{Role: "user", Content: fmt.Sprintf(summaryPrompt, previous, strings.Join(recent, "\n"))},
	}

	result, err := c.c.complete(ctx, messages, 0.4)
	if err != nil {
		return "", fmt.Errorf("summarize discussion: %w", err)
	}
	return result, nil
}

func (c *Client) GenerateScene(ctx context.Context, prompt string) (*domain.SceneCode, error) {
	messages := []promptMessage{
		{Role: "user", Content: fmt.Sprintf(scenePrompt, prompt)},
	}

	result, err := c.c.complete(ctx, messages, 0.3)
	if err != nil {
		return nil, fmt.Errorf("generate scene: %w", err)
	}
	result = stripPythonFences(result)

	name := sceneClassName(result)
	if name == "" {
		return nil, fmt.Errorf("scene result has no class definition (raw: %s)", truncate(result, 200))
	}
	return &domain.SceneCode{ClassName: name, Source: result}, nil
}

// stripFences removes markdown code fences around a JSON payload.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func stripPythonFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```python")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// sanitizeQuestion normalises model output: difficulty clamped into range,
// invalid correct answers defaulted to "a".
func sanitizeQuestion(q *domain.QuestionItem) {
	if q.Difficulty == 0 {
		q.Difficulty = domain.DefaultDifficulty
	}
	if q.Difficulty < domain.MinQuestionDifficulty {
		q.Difficulty = domain.MinQuestionDifficulty
	}
	if q.Difficulty > domain.MaxQuestionDifficulty {
		q.Difficulty = domain.MaxQuestionDifficulty
	}
	q.CorrectAnswer = strings.ToLower(strings.TrimSpace(q.CorrectAnswer))
	if q.CorrectAnswer != "a" && q.CorrectAnswer != "b" {
		q.CorrectAnswer = "a"
	}
}

func rosterText(roster []domain.Persona) string {
	var sb strings.Builder
	for _, p := range roster {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", p.Name, p.Role, p.StyleCard)
	}
	return sb.String()
}

// sceneClassName extracts the first class name from generated Python source.
func sceneClassName(source string) string {
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "class ") {
			continue
		}
		rest := strings.TrimPrefix(line, "class ")
		for i, r := range rest {
			if r == '(' || r == ':' || r == ' ' {
				return rest[:i]
			}
		}
		return rest
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
