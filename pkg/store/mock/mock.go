// Package mock provides a test double for the store.Store interface.
//
// Use Store in unit tests to verify what the pipeline and session controller
// persist, and to inject failures on any operation. All fields are safe to
// set before calling any method.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulpa-work/pulpa/pkg/store"
)

// AppendTurnCall records a single invocation of AppendTurn.
type AppendTurnCall struct {
	// ConversationID is the conversation passed to AppendTurn.
	ConversationID uuid.UUID
	// Role is the role passed to AppendTurn.
	Role store.Role
	// Text is the turn text passed to AppendTurn.
	Text string
}

// SetSummaryCall records a single invocation of SetSummary.
type SetSummaryCall struct {
	// ConversationID is the conversation passed to SetSummary.
	ConversationID uuid.UUID
	// Summary is the summary passed to SetSummary.
	Summary string
}

// Store is a mock implementation of store.Store. It keeps appended turns in
// memory so tests can assert on the persisted conversation shape. Set Err
// fields to inject failures.
type Store struct {
	mu sync.Mutex

	// CreateErr, if non-nil, is returned by CreateConversation.
	CreateErr error

	// AppendErr, if non-nil, is returned by AppendTurn.
	AppendErr error

	// ListErr, if non-nil, is returned by Conversations.
	ListErr error

	// SummaryErr, if non-nil, is returned by SetSummary.
	SummaryErr error

	// AppendTurnCalls records every invocation of AppendTurn in order.
	AppendTurnCalls []AppendTurnCall

	// SetSummaryCalls records every invocation of SetSummary in order.
	SetSummaryCalls []SetSummaryCall

	// CreateCount is the number of times CreateConversation was called.
	CreateCount int

	// CloseCount is the number of times Close was called.
	CloseCount int

	conversations map[uuid.UUID]*store.Conversation
}

// CreateConversation implements store.Store.
func (s *Store) CreateConversation(_ context.Context) (store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateCount++
	if s.CreateErr != nil {
		return store.Conversation{}, s.CreateErr
	}
	if s.conversations == nil {
		s.conversations = make(map[uuid.UUID]*store.Conversation)
	}
	c := store.Conversation{ID: uuid.New(), StartedAt: time.Now()}
	s.conversations[c.ID] = &c
	return c, nil
}

// AppendTurn implements store.Store.
func (s *Store) AppendTurn(_ context.Context, conversationID uuid.UUID, role store.Role, text string) (store.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AppendTurnCalls = append(s.AppendTurnCalls, AppendTurnCall{
		ConversationID: conversationID,
		Role:           role,
		Text:           text,
	})
	if s.AppendErr != nil {
		return store.Turn{}, s.AppendErr
	}
	c, ok := s.conversations[conversationID]
	if !ok {
		return store.Turn{}, store.ErrNotFound
	}
	t := store.Turn{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Text:           text,
		CreatedAt:      time.Now(),
	}
	c.Turns = append(c.Turns, t)
	return t, nil
}

// Conversation implements store.Store.
func (s *Store) Conversation(_ context.Context, id uuid.UUID) (store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return store.Conversation{}, store.ErrNotFound
	}
	out := *c
	out.Turns = append([]store.Turn(nil), c.Turns...)
	return out, nil
}

// Conversations implements store.Store. The search term is ignored; tests
// that need search behavior use store.MemStore instead.
func (s *Store) Conversations(_ context.Context, _ string) ([]store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]store.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		cc := *c
		cc.Turns = append([]store.Turn(nil), c.Turns...)
		out = append(out, cc)
	}
	return out, nil
}

// SetSummary implements store.Store.
func (s *Store) SetSummary(_ context.Context, conversationID uuid.UUID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SetSummaryCalls = append(s.SetSummaryCalls, SetSummaryCall{
		ConversationID: conversationID,
		Summary:        summary,
	})
	if s.SummaryErr != nil {
		return s.SummaryErr
	}
	c, ok := s.conversations[conversationID]
	if !ok {
		return store.ErrNotFound
	}
	c.Summary = summary
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCount++
	return nil
}

// Reset clears all recorded calls and stored conversations. Thread-safe.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AppendTurnCalls = nil
	s.SetSummaryCalls = nil
	s.CreateCount = 0
	s.CloseCount = 0
	s.conversations = nil
}

var _ store.Store = (*Store)(nil)
