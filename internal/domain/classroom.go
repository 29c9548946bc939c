package domain

import (
	"time"

	"github.com/google/uuid"
)

// PersonaRole distinguishes who a classroom character is.
type PersonaRole string

const (
	RoleTeacher PersonaRole = "teacher"
	RoleStudent PersonaRole = "student"
	RoleMascot  PersonaRole = "mascot"
)

// Persona is a character that can speak in the classroom. StyleCard is a
// short prompt snippet that steers the language model; VoiceID is reserved
// for TTS.
type Persona struct {
	Name      string      `json:"name"`
	Role      PersonaRole `json:"role"`
	StyleCard string      `json:"-"`
	VoiceID   string      `json:"-"`
	AvatarURL string      `json:"avatar_url,omitempty"`
}

// FixedPersonas returns the fixed eight-character roster: one teacher, six
// students, one mascot.
func FixedPersonas() []Persona {
	const base = "/assets/characters"
	return []Persona{
		{Name: "Jiaran", Role: RoleTeacher, StyleCard: "warm, clear, Socratic, uses scaffolding: breaks complex ideas into steps, explains why they matter, sometimes uses bullets or analogies", VoiceID: "alloy", AvatarURL: base + "/Jiaran.png"},
		{Name: "Aurora", Role: RoleStudent, StyleCard: "royal, competitive, formal speech", VoiceID: "nova", AvatarURL: base + "/Aurora.png"},
		{Name: "Ryota", Role: RoleStudent, StyleCard: "friendly schoolboy energy", VoiceID: "shimmer", AvatarURL: base + "/Ryota.png"},
		{Name: "James", Role: RoleStudent, StyleCard: "curious, eager to learn", VoiceID: "breeze", AvatarURL: base + "/James.png"},
		{Name: "Victor", Role: RoleStudent, StyleCard: "heroic hype-man", VoiceID: "surge", AvatarURL: base + "/Victor.png"},
		{Name: "Supernut", Role: RoleStudent, StyleCard: "pun-loving parody superhero", VoiceID: "echo", AvatarURL: base + "/supernut.png"},
		{Name: "Skibidi", Role: RoleStudent, StyleCard: "chaotic toilet-head humor", VoiceID: "glitch", AvatarURL: base + "/skibidi.png"},
		{Name: "Horse", Role: RoleMascot, StyleCard: "says only 'neigh' or the horse emoji", VoiceID: "neigh", AvatarURL: base + "/James.png"},
	}
}

// ClassMessage is a single line of dialogue from a persona or the user.
type ClassMessage struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// Turn is one scripted lecture beat: a teacher statement and the student
// reactions to it.
type Turn struct {
	Teacher  string         `json:"teacher"`
	Students []ClassMessage `json:"students"`
}

// SessionPhase tracks where a classroom session is in its arc.
type SessionPhase string

const (
	PhaseWarmup  SessionPhase = "warmup"
	PhaseLecture SessionPhase = "lecture"
	PhaseQuiz    SessionPhase = "quiz"
	PhaseWrap    SessionPhase = "wrap"
)

// phaseRank orders the session arc warmup -> lecture -> quiz -> wrap.
func phaseRank(p SessionPhase) int {
	switch p {
	case PhaseWarmup:
		return 0
	case PhaseLecture:
		return 1
	case PhaseQuiz:
		return 2
	case PhaseWrap:
		return 3
	}
	return -1
}

// ValidPhase reports whether p is a recognised session phase.
func ValidPhase(p SessionPhase) bool {
	return phaseRank(p) >= 0
}

// CanAdvanceTo reports whether a session may move from p to next. The arc
// only moves forward; skipping a phase is allowed, going back is not.
func (p SessionPhase) CanAdvanceTo(next SessionPhase) bool {
	return ValidPhase(next) && phaseRank(next) > phaseRank(p)
}

// ClassroomSession is one live classroom instance; it holds all state
// between turns.
type ClassroomSession struct {
	ID         string         `json:"id"`
	Topic      string         `json:"topic"`
	Personas   []Persona      `json:"personas"`
	Transcript []ClassMessage `json:"transcript"`
	Phase      SessionPhase   `json:"phase"`
	// Summary is a rolling conversation summary fed back into prompts so
	// turns build on earlier discussion without replaying the transcript.
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// NewClassroomSession creates a session with the fixed roster. Sessions
// start in warmup and move to lecture once the opening lecture lands.
func NewClassroomSession(topic string) *ClassroomSession {
	now := time.Now()
	return &ClassroomSession{
		ID:         uuid.NewString(),
		Topic:      topic,
		Personas:   FixedPersonas(),
		Phase:      PhaseWarmup,
		CreatedAt:  now,
		LastActive: now,
	}
}

// AddMessages appends a batch of dialogue lines to the transcript.
func (s *ClassroomSession) AddMessages(msgs []ClassMessage) {
	s.Transcript = append(s.Transcript, msgs...)
}

// Teacher returns the teacher persona, falling back to the first roster
// entry if the roster is malformed.
func (s *ClassroomSession) Teacher() Persona {
	for _, p := range s.Personas {
		if p.Role == RoleTeacher {
			return p
		}
	}
	return s.Personas[0]
}

// AvatarFor returns the avatar URL for a persona name, or empty when the
// name is not in the roster.
func (s *ClassroomSession) AvatarFor(name string) string {
	for _, p := range s.Personas {
		if p.Name == name {
			return p.AvatarURL
		}
	}
	return ""
}

// InRoster reports whether a persona name belongs to the session roster.
func (s *ClassroomSession) InRoster(name string) bool {
	for _, p := range s.Personas {
		if p.Name == name {
			return true
		}
	}
	return false
}

// TurnPrompt carries everything the language model needs to script the next
// classroom turn.
type TurnPrompt struct {
	Summary        string
	RecentComments []string
	Roster         []Persona
	UserMessage    string
}

// StudentLine is one student's reply inside a generated turn.
type StudentLine struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// TurnPayload is the structured result of one classroom turn generation.
type TurnPayload struct {
	Teacher  string        `json:"teacher"`
	Students []StudentLine `json:"students"`
}
