package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulpa-work/pulpa/pkg/store"
)

// Store is the PostgreSQL-backed conversation store. It holds a single
// [pgxpool.Pool]; all methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store, establishes a connection pool to the database at dsn
// and runs [Migrate] to ensure the schema exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// CreateConversation implements [store.Store].
func (s *Store) CreateConversation(ctx context.Context) (store.Conversation, error) {
	const q = `
		INSERT INTO conversations (id)
		VALUES ($1)
		RETURNING started_at`

	c := store.Conversation{ID: uuid.New()}
	if err := s.pool.QueryRow(ctx, q, c.ID).Scan(&c.StartedAt); err != nil {
		return store.Conversation{}, fmt.Errorf("postgres store: create conversation: %w", err)
	}
	return c, nil
}

// AppendTurn implements [store.Store].
func (s *Store) AppendTurn(ctx context.Context, conversationID uuid.UUID, role store.Role, text string) (store.Turn, error) {
	const q = `
		INSERT INTO turns (id, conversation_id, role, text)
		SELECT $1, id, $3, $4 FROM conversations WHERE id = $2
		RETURNING created_at`

	t := store.Turn{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Text:           text,
	}
	err := s.pool.QueryRow(ctx, q, t.ID, conversationID, role, text).Scan(&t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Turn{}, store.ErrNotFound
	}
	if err != nil {
		return store.Turn{}, fmt.Errorf("postgres store: append turn: %w", err)
	}
	return t, nil
}

// Conversation implements [store.Store].
func (s *Store) Conversation(ctx context.Context, id uuid.UUID) (store.Conversation, error) {
	const q = `
		SELECT id, started_at, summary
		FROM   conversations
		WHERE  id = $1`

	var c store.Conversation
	err := s.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.StartedAt, &c.Summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Conversation{}, store.ErrNotFound
	}
	if err != nil {
		return store.Conversation{}, fmt.Errorf("postgres store: load conversation: %w", err)
	}

	turns, err := s.turnsFor(ctx, []uuid.UUID{id})
	if err != nil {
		return store.Conversation{}, err
	}
	c.Turns = turns[id]
	return c, nil
}

// Conversations implements [store.Store]. A non-empty searchTerm is passed to
// plainto_tsquery over both turn text and summaries, so no special operator
// syntax is required.
func (s *Store) Conversations(ctx context.Context, searchTerm string) ([]store.Conversation, error) {
	q := `
		SELECT id, started_at, summary
		FROM   conversations
		ORDER  BY started_at DESC`
	args := []any{}
	if searchTerm != "" {
		q = `
		SELECT DISTINCT c.id, c.started_at, c.summary
		FROM   conversations c
		LEFT   JOIN turns t ON t.conversation_id = c.id
		WHERE  to_tsvector('simple', c.summary) @@ plainto_tsquery('simple', $1)
		   OR  to_tsvector('simple', t.text)    @@ plainto_tsquery('simple', $1)
		ORDER  BY c.started_at DESC`
		args = append(args, searchTerm)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list conversations: %w", err)
	}
	convs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Conversation, error) {
		var c store.Conversation
		err := row.Scan(&c.ID, &c.StartedAt, &c.Summary)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan conversations: %w", err)
	}
	if len(convs) == 0 {
		return []store.Conversation{}, nil
	}

	ids := make([]uuid.UUID, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	turns, err := s.turnsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		convs[i].Turns = turns[convs[i].ID]
	}
	return convs, nil
}

// SetSummary implements [store.Store].
func (s *Store) SetSummary(ctx context.Context, conversationID uuid.UUID, summary string) error {
	const q = `UPDATE conversations SET summary = $2 WHERE id = $1`

	tag, err := s.pool.Exec(ctx, q, conversationID, summary)
	if err != nil {
		return fmt.Errorf("postgres store: set summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Close implements [store.Store].
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// turnsFor loads the turns of the given conversations, chronological within
// each conversation.
func (s *Store) turnsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]store.Turn, error) {
	const q = `
		SELECT id, conversation_id, role, text, created_at
		FROM   turns
		WHERE  conversation_id = ANY($1)
		ORDER  BY created_at`

	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres store: load turns: %w", err)
	}
	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Turn, error) {
		var t store.Turn
		err := row.Scan(&t.ID, &t.ConversationID, &t.Role, &t.Text, &t.CreatedAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan turns: %w", err)
	}

	out := make(map[uuid.UUID][]store.Turn, len(ids))
	for _, t := range turns {
		out[t.ConversationID] = append(out[t.ConversationID], t)
	}
	return out, nil
}

var _ store.Store = (*Store)(nil)
