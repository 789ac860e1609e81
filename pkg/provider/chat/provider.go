// Package chat defines the conversational reply provider used by the turn
// pipeline and the session summariser.
//
// The provider receives the full alternating turn history plus the newest
// user message and produces the next reflective reply. History uses the
// user/model role pair so a conversation round-trips through storage without
// role translation; backends map "model" to whatever their API calls the
// assistant side.
package chat

import "context"

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks a transcribed user turn.
	RoleUser Role = "user"
	// RoleModel marks an AI reply turn.
	RoleModel Role = "model"
)

// Message is one turn of conversation history.
type Message struct {
	Role    Role
	Content string
}

// Profile carries the journaling user's context, woven into the system
// prompt so replies stay personally relevant without the user restating who
// they are every session.
type Profile struct {
	// FullName is how the assistant may address the user.
	FullName string
	// Role is the user's occupation or life role.
	Role string
	// Goals describes what the user wants from their reflection practice.
	Goals string
}

// Request is a single reply request.
type Request struct {
	// History is the prior conversation, oldest first, alternating
	// user/model. Empty messages are skipped by providers.
	History []Message

	// UserMessage is the newest transcribed user turn.
	UserMessage string

	// Language is the BCP-47 tag replies must be written in, e.g. "es-AR".
	Language string

	// Profile is the user's journaling context. Zero-value fields fall back
	// to neutral placeholders in the prompt.
	Profile Profile

	// SystemPrompt, when non-empty, replaces the provider's built-in
	// reflective-interviewer persona. The summariser uses this to run its own
	// prompt through the same backend.
	SystemPrompt string

	// MaxTokens caps the reply length. Zero means provider default.
	MaxTokens int
}

// Provider produces conversational replies.
type Provider interface {
	// Reply returns the next assistant turn for the request. A reply is
	// always text; safety refusals surface as an in-language apology string
	// rather than an error so the conversation can continue.
	Reply(ctx context.Context, req Request) (string, error)

	// Name identifies the provider for logs and metrics.
	Name() string
}
