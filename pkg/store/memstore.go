package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for tests and offline runs. Data does not
// survive the process.
type MemStore struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]*Conversation
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{conversations: make(map[uuid.UUID]*Conversation)}
}

// CreateConversation implements Store.
func (m *MemStore) CreateConversation(_ context.Context) (Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := Conversation{
		ID:        uuid.New(),
		StartedAt: time.Now(),
	}
	m.conversations[c.ID] = &c
	return snapshot(&c), nil
}

// AppendTurn implements Store.
func (m *MemStore) AppendTurn(_ context.Context, conversationID uuid.UUID, role Role, text string) (Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[conversationID]
	if !ok {
		return Turn{}, ErrNotFound
	}
	t := Turn{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Text:           text,
		CreatedAt:      time.Now(),
	}
	c.Turns = append(c.Turns, t)
	return t, nil
}

// Conversation implements Store.
func (m *MemStore) Conversation(_ context.Context, id uuid.UUID) (Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return snapshot(c), nil
}

// Conversations implements Store. Search is a case-insensitive substring
// match over turn text and summaries.
func (m *MemStore) Conversations(_ context.Context, searchTerm string) ([]Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(searchTerm))
	var out []Conversation
	for _, c := range m.conversations {
		if term != "" && !matches(c, term) {
			continue
		}
		out = append(out, snapshot(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

// SetSummary implements Store.
func (m *MemStore) SetSummary(_ context.Context, conversationID uuid.UUID, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	c.Summary = summary
	return nil
}

// Close implements Store.
func (m *MemStore) Close() error {
	return nil
}

func matches(c *Conversation, term string) bool {
	if strings.Contains(strings.ToLower(c.Summary), term) {
		return true
	}
	for _, t := range c.Turns {
		if strings.Contains(strings.ToLower(t.Text), term) {
			return true
		}
	}
	return false
}

func snapshot(c *Conversation) Conversation {
	out := *c
	out.Turns = append([]Turn(nil), c.Turns...)
	return out
}

var _ Store = (*MemStore)(nil)
