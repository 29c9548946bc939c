package llm

import (
	"context"
	"fmt"

	"github.com/jiaranai/learninglab/internal/domain"
)

// MockClient is a configurable LLM client for testing.
// Set the response fields to control what each method returns.
type MockClient struct {
	GenerateQuestionsResponse   []domain.GeneratedQuestion
	GenerateQuestionsError      error
	GenerateQuestionResponse    *domain.QuestionItem
	GenerateQuestionError       error
	ClassroomTurnResponse       *domain.TurnPayload
	ClassroomTurnError          error
	LectureResponse             []domain.TurnPayload
	LectureError                error
	SummarizeDiscussionResponse string
	SummarizeDiscussionError    error
	GenerateSceneResponse       *domain.SceneCode
	GenerateSceneError          error

	// Call tracking for assertions
	GenerateQuestionsCalls   []string
	GenerateQuestionCalls    []domain.QuestionRequest
	ClassroomTurnCalls       []domain.TurnPrompt
	LectureCalls             []string
	SummarizeDiscussionCalls []string
	GenerateSceneCalls       []string
}

func NewMockClient() *MockClient {
	return &MockClient{
		GenerateQuestionsResponse: []domain.GeneratedQuestion{
			{
				QuestionItem: domain.QuestionItem{
					Concept:       "photosynthesis",
					Question:      "What does a plant primarily absorb to power photosynthesis?",
					OptionA:       "Light energy",
					OptionB:       "Sound waves",
					CorrectAnswer: "a",
					Explanation:   "Chlorophyll captures light energy to drive the reaction.",
					Difficulty:    0.3,
				},
				Group: "Plant Biology",
			},
		},
		GenerateQuestionResponse: &domain.QuestionItem{
			Concept:       "photosynthesis",
			Question:      "Which gas do plants release during photosynthesis?",
			OptionA:       "Oxygen",
			OptionB:       "Carbon dioxide",
			CorrectAnswer: "a",
			Explanation:   "Photosynthesis splits water and releases oxygen.",
			Difficulty:    0.5,
		},
		ClassroomTurnResponse: &domain.TurnPayload{
			Teacher: "Let's break this down step by step.",
			Students: []domain.StudentLine{
				{Name: "Aurora", Text: "A most enlightening explanation."},
				{Name: "Ryota", Text: "Oh, that makes sense now!"},
				{Name: "James", Text: "But what happens at night?"},
			},
		},
		LectureResponse: []domain.TurnPayload{
			{
				Teacher: "Picture this: a leaf is a tiny solar-powered factory.",
				Students: []domain.StudentLine{
					{Name: "Aurora", Text: "An elegant comparison."},
					{Name: "Ryota", Text: "Factories! Cool!"},
					{Name: "James", Text: "What is the raw material?"},
				},
			},
			{
				Teacher: "The raw materials are water, carbon dioxide, and light.",
				Students: []domain.StudentLine{
					{Name: "Aurora", Text: "I shall remember that."},
					{Name: "Ryota", Text: "Got it!"},
					{Name: "James", Text: "And the product is sugar?"},
				},
			},
			{
				Teacher: "Exactly, glucose, plus the oxygen we breathe.",
				Students: []domain.StudentLine{
					{Name: "Aurora", Text: "Splendid."},
					{Name: "Ryota", Text: "Thanks, plants!"},
					{Name: "James", Text: "Now I see why it matters."},
				},
			},
		},
		SummarizeDiscussionResponse: "Mock summary of the classroom discussion.",
		GenerateSceneResponse: &domain.SceneCode{
			ClassName: "MockScene",
			Source:    "from manim import *\n\nclass MockScene(Scene):\n    def construct(self):\n        circle = Circle()\n        self.play(Create(circle))\n        self.wait()\n",
		},
	}
}

func (c *MockClient) GenerateQuestions(ctx context.Context, content string, count int) ([]domain.GeneratedQuestion, error) {
	c.GenerateQuestionsCalls = append(c.GenerateQuestionsCalls, content)
	if c.GenerateQuestionsError != nil {
		return nil, c.GenerateQuestionsError
	}
	return c.GenerateQuestionsResponse, nil
}

func (c *MockClient) GenerateQuestion(ctx context.Context, req domain.QuestionRequest) (*domain.QuestionItem, error) {
	c.GenerateQuestionCalls = append(c.GenerateQuestionCalls, req)
	if c.GenerateQuestionError != nil {
		return nil, c.GenerateQuestionError
	}
	if c.GenerateQuestionResponse != nil {
		q := *c.GenerateQuestionResponse
		q.Concept = req.Concept
		q.Difficulty = req.TargetDifficulty
		if q.Difficulty < domain.MinQuestionDifficulty {
			q.Difficulty = domain.MinQuestionDifficulty
		}
		if q.Difficulty > domain.MaxQuestionDifficulty {
			q.Difficulty = domain.MaxQuestionDifficulty
		}
		q.Question = fmt.Sprintf("Which statement about %s is accurate?", req.Concept)
		return &q, nil
	}
	return nil, nil
}

func (c *MockClient) ClassroomTurn(ctx context.Context, prompt domain.TurnPrompt) (*domain.TurnPayload, error) {
	c.ClassroomTurnCalls = append(c.ClassroomTurnCalls, prompt)
	if c.ClassroomTurnError != nil {
		return nil, c.ClassroomTurnError
	}
	return c.ClassroomTurnResponse, nil
}

func (c *MockClient) Lecture(ctx context.Context, topic string, masteryHint string, roster []domain.Persona) ([]domain.TurnPayload, error) {
	c.LectureCalls = append(c.LectureCalls, topic)
	if c.LectureError != nil {
		return nil, c.LectureError
	}
	return c.LectureResponse, nil
}

func (c *MockClient) SummarizeDiscussion(ctx context.Context, previous string, recent []string) (string, error) {
	c.SummarizeDiscussionCalls = append(c.SummarizeDiscussionCalls, previous)
	if c.SummarizeDiscussionError != nil {
		return "", c.SummarizeDiscussionError
	}
	return c.SummarizeDiscussionResponse, nil
}

func (c *MockClient) GenerateScene(ctx context.Context, prompt string) (*domain.SceneCode, error) {
	c.GenerateSceneCalls = append(c.GenerateSceneCalls, prompt)
	if c.GenerateSceneError != nil {
		return nil, c.GenerateSceneError
	}
	return c.GenerateSceneResponse, nil
}

// Reset clears all tracked calls.
func (c *MockClient) Reset() {
	c.GenerateQuestionsCalls = nil
	c.GenerateQuestionCalls = nil
	c.ClassroomTurnCalls = nil
	c.LectureCalls = nil
	c.SummarizeDiscussionCalls = nil
	c.GenerateSceneCalls = nil
}
