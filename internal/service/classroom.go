package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jiaranai/learninglab/internal/domain"
)

const (
	// DefaultSessionTTL is how long an idle classroom survives before
	// cleanup.
	DefaultSessionTTL = time.Hour

	defaultCleanupInterval = 10 * time.Minute

	// recentCommentWindow is how many trailing student lines feed back
	// into the next turn prompt.
	recentCommentWindow = 5
)

// ClassroomService drives the simulated classroom: lecture generation,
// user-driven turns, rolling summaries, and session expiry.
type ClassroomService struct {
	sessions    domain.SessionStore
	llm         domain.LLMClient
	diagnostics *DiagnosticService
	logger      *zap.Logger

	ttl             time.Duration
	cleanupInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

func NewClassroomService(sessions domain.SessionStore, llmClient domain.LLMClient, diagnostics *DiagnosticService, logger *zap.Logger) *ClassroomService {
	return &ClassroomService{
		sessions:        sessions,
		llm:             llmClient,
		diagnostics:     diagnostics,
		logger:          logger,
		ttl:             DefaultSessionTTL,
		cleanupInterval: defaultCleanupInterval,
		stopCh:          make(chan struct{}),
	}
}

func (s *ClassroomService) SetTTL(d time.Duration) {
	s.ttl = d
}

// Start opens a session on a topic and generates the opening lecture. A
// failing model degrades to a canned lecture rather than an error.
func (s *ClassroomService) Start(ctx context.Context, topic, userID string) (*domain.ClassroomSession, []domain.Turn, error) {
	sess := domain.NewClassroomSession(topic)

	var hint string
	if userID != "" && s.diagnostics != nil {
		hint = s.diagnostics.MasterySummary(userID)
	}

	payloads, err := s.llm.Lecture(ctx, topic, hint, sess.Personas)
	if err != nil {
		s.logger.Warn("lecture generation failed, using fallback",
			zap.String("topic", topic), zap.Error(err))
		payloads = fallbackLecture(topic)
	}

	sess.Phase = domain.PhaseLecture
	turns := s.appendTurns(sess, payloads)
	s.updateSummary(ctx, sess, turns)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("save session: %w", err)
	}
	s.logger.Info("classroom session started",
		zap.String("session_id", sess.ID),
		zap.String("topic", topic),
		zap.Int("turns", len(turns)))
	return sess, turns, nil
}

// NextTurn feeds a user message into a running session and returns the
// scripted classroom reaction.
func (s *ClassroomService) NextTurn(ctx context.Context, sessionID, userMessage string) (*domain.Turn, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.AddMessages([]domain.ClassMessage{{
		Author:    "User",
		Text:      userMessage,
		Timestamp: time.Now(),
	}})

	payload, err := s.llm.ClassroomTurn(ctx, domain.TurnPrompt{
		Summary:        sess.Summary,
		RecentComments: recentStudentComments(sess),
		Roster:         sess.Personas,
		UserMessage:    userMessage,
	})
	if err != nil {
		s.logger.Warn("turn generation failed, using fallback",
			zap.String("session_id", sessionID), zap.Error(err))
		payload = fallbackTurn(userMessage)
	}

	turns := s.appendTurns(sess, []domain.TurnPayload{*payload})
	s.updateSummary(ctx, sess, turns)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &turns[0], nil
}

// ContinueLecture extends the lecture in a running session, building on the
// rolling summary.
func (s *ClassroomService) ContinueLecture(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	hint := ""
	if sess.Summary != "" {
		hint = fmt.Sprintf("Context of the discussion so far: %s. Continue the lecture building on that.", sess.Summary)
	}

	payloads, err := s.llm.Lecture(ctx, sess.Topic, hint, sess.Personas)
	if err != nil {
		s.logger.Warn("lecture continuation failed, using fallback",
			zap.String("session_id", sessionID), zap.Error(err))
		payloads = fallbackLecture(sess.Topic)
	}

	sess.Phase = domain.PhaseLecture
	turns := s.appendTurns(sess, payloads)
	s.updateSummary(ctx, sess, turns)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return turns, nil
}

// Session returns a running session by ID.
func (s *ClassroomService) Session(ctx context.Context, sessionID string) (*domain.ClassroomSession, error) {
	return s.sessions.Get(ctx, sessionID)
}

// ErrInvalidPhase rejects phase changes that are unknown or move against
// the session arc.
var ErrInvalidPhase = fmt.Errorf("invalid session phase")

// SetPhase advances a session along its arc (warmup -> lecture -> quiz ->
// wrap). The lesson driver calls this when it moves the class on; phases
// never move backwards.
func (s *ClassroomService) SetPhase(ctx context.Context, sessionID string, phase domain.SessionPhase) (*domain.ClassroomSession, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !sess.Phase.CanAdvanceTo(phase) {
		return nil, fmt.Errorf("%w: %q -> %q", ErrInvalidPhase, sess.Phase, phase)
	}

	sess.Phase = phase
	sess.LastActive = time.Now()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.logger.Info("classroom phase advanced",
		zap.String("session_id", sessionID),
		zap.String("phase", string(phase)))
	return sess, nil
}

// appendTurns converts model payloads into transcript messages, dropping
// student lines from names outside the roster.
func (s *ClassroomService) appendTurns(sess *domain.ClassroomSession, payloads []domain.TurnPayload) []domain.Turn {
	teacher := sess.Teacher()
	now := time.Now()

	turns := make([]domain.Turn, 0, len(payloads))
	for _, p := range payloads {
		turn := domain.Turn{Teacher: p.Teacher}
		msgs := []domain.ClassMessage{{
			Author:    teacher.Name,
			Text:      p.Teacher,
			Timestamp: now,
			AvatarURL: teacher.AvatarURL,
		}}
		for _, line := range p.Students {
			if !sess.InRoster(line.Name) || line.Name == teacher.Name {
				s.logger.Debug("dropping off-roster student line", zap.String("name", line.Name))
				continue
			}
			msg := domain.ClassMessage{
				Author:    line.Name,
				Text:      line.Text,
				Timestamp: now,
				AvatarURL: sess.AvatarFor(line.Name),
			}
			turn.Students = append(turn.Students, msg)
			msgs = append(msgs, msg)
		}
		sess.AddMessages(msgs)
		turns = append(turns, turn)
	}
	sess.LastActive = now
	return turns
}

// updateSummary refreshes the rolling summary. On model failure the new
// dialogue is appended verbatim so later turns still see the context.
func (s *ClassroomService) updateSummary(ctx context.Context, sess *domain.ClassroomSession, turns []domain.Turn) {
	var lines []string
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", sess.Teacher().Name, t.Teacher))
		for _, st := range t.Students {
			lines = append(lines, fmt.Sprintf("%s: %s", st.Author, st.Text))
		}
	}
	if len(lines) == 0 {
		return
	}

	summary, err := s.llm.SummarizeDiscussion(ctx, sess.Summary, lines)
	if err != nil {
		s.logger.Warn("summary update failed, appending raw dialogue", zap.Error(err))
		summary = truncate(sess.Summary+"\n"+fmt.Sprintf("Discussed: %s", lines[0]), 2000)
	}
	sess.Summary = summary
}

func recentStudentComments(sess *domain.ClassroomSession) []string {
	teacher := sess.Teacher().Name
	var comments []string
	for i := len(sess.Transcript) - 1; i >= 0 && len(comments) < recentCommentWindow; i-- {
		msg := sess.Transcript[i]
		if msg.Author == teacher || msg.Author == "User" {
			continue
		}
		comments = append(comments, fmt.Sprintf("%s: %s", msg.Author, msg.Text))
	}
	// Reverse into chronological order.
	for i, j := 0, len(comments)-1; i < j; i, j = i+1, j-1 {
		comments[i], comments[j] = comments[j], comments[i]
	}
	return comments
}

func fallbackTurn(userMessage string) *domain.TurnPayload {
	return &domain.TurnPayload{
		Teacher: fmt.Sprintf("Let's break this down step by step. The question about %q is worth exploring. First, we need the basic concepts. Second, we look at how they apply in different contexts. Finally, we see why it matters in the real world.", truncate(userMessage, 60)),
		Students: []domain.StudentLine{
			{Name: "Aurora", Text: "A most intriguing question indeed."},
			{Name: "Ryota", Text: "Yeah, I was wondering about that too!"},
			{Name: "James", Text: "Could you give us an example?"},
		},
	}
}

func fallbackLecture(topic string) []domain.TurnPayload {
	return []domain.TurnPayload{
		{
			Teacher: fmt.Sprintf("Welcome, class! Today we explore %s. Let's break it down step by step.", topic),
			Students: []domain.StudentLine{
				{Name: "Aurora", Text: "I am prepared to take notes."},
				{Name: "Ryota", Text: "Sounds exciting!"},
				{Name: "James", Text: "I have so many questions already."},
			},
		},
		{
			Teacher: fmt.Sprintf("First, the core idea behind %s, and why it matters in everyday life.", topic),
			Students: []domain.StudentLine{
				{Name: "Aurora", Text: "A solid foundation is essential."},
				{Name: "Ryota", Text: "Got it so far!"},
				{Name: "James", Text: "How does this connect to what we learned before?"},
			},
		},
		{
			Teacher: "Excellent question! Connections are exactly how deep understanding forms. Let's look at a concrete example together.",
			Students: []domain.StudentLine{
				{Name: "Aurora", Text: "Examples clarify everything."},
				{Name: "Ryota", Text: "Examples are the best part!"},
				{Name: "Horse", Text: "neigh"},
			},
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StartCleanup launches the background session expiry worker.
func (s *ClassroomService) StartCleanup() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()

		s.logger.Info("session cleanup worker started", zap.Duration("ttl", s.ttl))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				n, err := s.sessions.DeleteExpired(ctx, s.ttl)
				cancel()
				if err != nil {
					s.logger.Error("session cleanup failed", zap.Error(err))
				} else if n > 0 {
					s.logger.Info("expired sessions removed", zap.Int("count", n))
				}
			case <-s.stopCh:
				s.logger.Info("session cleanup worker stopped")
				return
			}
		}
	}()
}

func (s *ClassroomService) StopCleanup() {
	close(s.stopCh)
	s.wg.Wait()
}
