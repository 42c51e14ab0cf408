package db

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               UUID PRIMARY KEY,
	questions        TEXT[] NOT NULL,
	question_count   INTEGER NOT NULL,
	status           TEXT NOT NULL DEFAULT 'running',
	progress_claude  INTEGER NOT NULL DEFAULT 0,
	progress_chatgpt INTEGER NOT NULL DEFAULT 0,
	progress_gemini  INTEGER NOT NULL DEFAULT 0,
	active_platform  TEXT,
	done_platforms   TEXT[] NOT NULL DEFAULT '{}',
	audit_errors     JSONB NOT NULL DEFAULT '[]',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS responses (
	id               UUID PRIMARY KEY,
	session_id       UUID NOT NULL REFERENCES sessions(id),
	platform         TEXT NOT NULL,
	question_index   INTEGER NOT NULL,
	question         TEXT NOT NULL,
	answer           TEXT NOT NULL DEFAULT '',
	is_error         BOOLEAN NOT NULL DEFAULT FALSE,
	response_time_ms INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_responses_session
	ON responses (session_id, platform, question_index);
`

// EnsureSchema creates the tables and indexes if they do not exist.
func (c *Client) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
