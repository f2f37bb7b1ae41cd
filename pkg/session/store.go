package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id        TEXT PRIMARY KEY,
	pending_decision  TEXT NOT NULL DEFAULT 'none',
	continuation_flag TEXT NOT NULL DEFAULT 'none',
	created_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS messages (
	session_id   TEXT NOT NULL,
	seq          INTEGER NOT NULL,
	role         TEXT NOT NULL,
	content      TEXT NOT NULL,
	tool_calls   TEXT,
	tool_call_id TEXT,
	tool_name    TEXT,
	is_error     INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, seq)
);
`

// Store persists sessions in SQLite. A commit is durable before Commit
// returns. Commits for distinct session ids do not block one another;
// serializing turns for the same session id is the caller's responsibility.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the session database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("session database path is required")
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize session schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Session store opened")

	return &Store{db: db}, nil
}

// validateSessionID rejects ids that cannot be safely used as keys.
func validateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if strings.Contains(id, "\x00") {
		return fmt.Errorf("session id cannot contain null bytes")
	}
	return nil
}

// Load returns the session for id, or an empty session if unseen.
func (st *Store) Load(ctx context.Context, id string) (*Session, error) {
	if err := validateSessionID(id); err != nil {
		return nil, err
	}

	sess := NewSession(id)

	row := st.db.QueryRowContext(ctx,
		`SELECT pending_decision, continuation_flag FROM sessions WHERE session_id = ?`, id)
	err := row.Scan(&sess.PendingDecision, &sess.ContinuationFlag)
	if err == sql.ErrNoRows {
		return sess, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	rows, err := st.db.QueryContext(ctx,
		`SELECT role, content, tool_calls, tool_call_id, tool_name, is_error, created_at
		 FROM messages WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			msg       Message
			toolCalls sql.NullString
			callID    sql.NullString
			toolName  sql.NullString
			isError   int
		)
		if err := rows.Scan(&msg.Role, &msg.Content, &toolCalls, &callID, &toolName, &isError, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message for %s: %w", id, err)
		}
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to decode tool calls for %s: %w", id, err)
			}
		}
		msg.ToolCallID = callID.String
		msg.ToolName = toolName.String
		msg.IsError = isError != 0
		sess.Transcript = append(sess.Transcript, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript for %s: %w", id, err)
	}

	sess.persisted = len(sess.Transcript)

	log.Debug().
		Str("session_id", id).
		Int("messages", len(sess.Transcript)).
		Msg("Session loaded")

	return sess, nil
}

// Commit durably writes the session: routing flags plus any transcript
// messages appended since it was loaded. The continuation invariant is
// enforced here rather than trusted from callers.
func (st *Store) Commit(ctx context.Context, sess *Session) error {
	if sess == nil {
		return fmt.Errorf("session is required")
	}
	if err := validateSessionID(sess.ID); err != nil {
		return err
	}
	if sess.ContinuationFlag == ContinuationAwaiting && !ValidDecision(sess.PendingDecision) {
		return fmt.Errorf("session %s awaits confirmation but pending decision is %q", sess.ID, sess.PendingDecision)
	}

	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin commit for %s: %w", sess.ID, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, pending_decision, continuation_flag, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			pending_decision = excluded.pending_decision,
			continuation_flag = excluded.continuation_flag,
			updated_at = excluded.updated_at`,
		sess.ID, sess.PendingDecision, sess.ContinuationFlag, now, now)
	if err != nil {
		return fmt.Errorf("failed to write session row for %s: %w", sess.ID, err)
	}

	for i := sess.persisted; i < len(sess.Transcript); i++ {
		msg := sess.Transcript[i]
		if msg.Role == "" {
			return fmt.Errorf("message %d for %s has empty role", i, sess.ID)
		}

		var toolCalls any
		if len(msg.ToolCalls) > 0 {
			data, err := json.Marshal(msg.ToolCalls)
			if err != nil {
				return fmt.Errorf("failed to encode tool calls for %s: %w", sess.ID, err)
			}
			toolCalls = string(data)
		}

		isError := 0
		if msg.IsError {
			isError = 1
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, seq, role, content, tool_calls, tool_call_id, tool_name, is_error, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, i, msg.Role, msg.Content, toolCalls, msg.ToolCallID, msg.ToolName, isError, msg.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to write message %d for %s: %w", i, sess.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", sess.ID, err)
	}

	appended := len(sess.Transcript) - sess.persisted
	sess.persisted = len(sess.Transcript)

	log.Debug().
		Str("session_id", sess.ID).
		Int("appended", appended).
		Str("continuation", sess.ContinuationFlag).
		Msg("Session committed")

	return nil
}

// ListSessions returns all known session ids.
func (st *Store) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := st.db.QueryContext(ctx, `SELECT session_id FROM sessions ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database.
func (st *Store) Close() error {
	return st.db.Close()
}
