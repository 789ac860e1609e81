// Package store defines the persistence contract for journaling
// conversations: an append-only log of alternating user and model turns,
// grouped into conversations that each carry at most one summary.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("store: conversation not found")

// Role identifies the author of a persisted turn.
type Role string

const (
	// RoleUser marks a transcribed user turn.
	RoleUser Role = "user"
	// RoleModel marks an AI reply turn.
	RoleModel Role = "model"
)

// Turn is one persisted message of a conversation.
type Turn struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           Role
	Text           string
	CreatedAt      time.Time
}

// Conversation is one journaling session: its turns oldest first, plus the
// summary written when the session is finished. Summary is empty until then.
type Conversation struct {
	ID        uuid.UUID
	StartedAt time.Time
	Summary   string
	Turns     []Turn
}

// Store persists conversations and their turns.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// CreateConversation starts a new empty conversation.
	CreateConversation(ctx context.Context) (Conversation, error)

	// AppendTurn appends one turn to a conversation and returns it with its
	// assigned ID and timestamp. Returns ErrNotFound for an unknown
	// conversation.
	AppendTurn(ctx context.Context, conversationID uuid.UUID, role Role, text string) (Turn, error)

	// Conversation loads one conversation with all its turns.
	// Returns ErrNotFound when it does not exist.
	Conversation(ctx context.Context, id uuid.UUID) (Conversation, error)

	// Conversations lists conversations newest first, each with its turns.
	// A non-empty searchTerm restricts the result to conversations whose
	// turns or summary match it.
	Conversations(ctx context.Context, searchTerm string) ([]Conversation, error)

	// SetSummary records the finished-session summary for a conversation.
	// Returns ErrNotFound for an unknown conversation.
	SetSummary(ctx context.Context, conversationID uuid.UUID, summary string) error

	// Close releases the store's resources.
	Close() error
}

// Summariser condenses a finished conversation into one saved line. It is
// defined here so store implementations and the session controller share the
// contract without depending on a concrete summarisation backend.
type Summariser interface {
	// Summarise returns a first-person, single-sentence summary of the turns
	// in the given language.
	Summarise(ctx context.Context, turns []Turn, language string) (string, error)
}
