// Package postgres provides a PostgreSQL-backed implementation of the
// conversation store.
//
// Usage:
//
//	st, err := postgres.New(ctx, dsn)
//	if err != nil { … }
//	defer st.Close()
//
//	conv, _ := st.CreateConversation(ctx)
//	_, _ = st.AppendTurn(ctx, conv.ID, store.RoleUser, "Hoy fue un buen día.")
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The 'simple' FTS configuration keeps search language-neutral: journal
// entries arrive in whatever language the user reflects in.
const ddlConversations = `
CREATE TABLE IF NOT EXISTS conversations (
    id          UUID         PRIMARY KEY,
    started_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    summary     TEXT         NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS turns (
    id               UUID         PRIMARY KEY,
    conversation_id  UUID         NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
    role             TEXT         NOT NULL,
    text             TEXT         NOT NULL,
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_turns_conversation
    ON turns (conversation_id, created_at);

CREATE INDEX IF NOT EXISTS idx_turns_fts
    ON turns USING GIN (to_tsvector('simple', text));

CREATE INDEX IF NOT EXISTS idx_conversations_fts
    ON conversations USING GIN (to_tsvector('simple', summary));
`

// Migrate ensures all required tables and indexes exist. It is idempotent and
// runs automatically from New.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlConversations); err != nil {
		return fmt.Errorf("migrate conversations: %w", err)
	}
	return nil
}
