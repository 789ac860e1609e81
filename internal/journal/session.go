package journal

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pulpa-work/pulpa/pkg/provider/chat"
)

// Profile is the journaling user's context: who they are for the chat
// prompt, plus the language and voice their session runs in.
type Profile struct {
	FullName string
	Role     string
	Goals    string
	Language string
	VoiceID  string
}

// Session is the in-memory conversation of one journaling sitting: the
// backing conversation row (created lazily on the first transcribed turn)
// and the history handed to the chat provider. Safe for concurrent use.
type Session struct {
	mu             sync.Mutex
	conversationID uuid.UUID
	history        []chat.Message
}

// NewSession returns an empty session with no backing conversation yet.
func NewSession() *Session {
	return &Session{}
}

// ConversationID returns the backing conversation, or uuid.Nil before the
// first turn is persisted.
func (s *Session) ConversationID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Bind attaches the session to a persisted conversation.
func (s *Session) Bind(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = id
}

// History returns a copy of the conversation so far, oldest first.
func (s *Session) History() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Append records one turn in the in-memory history.
func (s *Session) Append(role chat.Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, chat.Message{Role: role, Content: text})
}

// Len reports the number of turns held in memory.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Clear detaches the conversation and drops the history, readying the
// session for the next sitting.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = uuid.Nil
	s.history = nil
}
