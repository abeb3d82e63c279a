package sqlite

import (
	"context"
	"database/sql"

	"github.com/buddyagent/buddy/pkg/models"
)

// DefaultListLimit bounds ListSessions when the caller passes no limit.
const DefaultListLimit = 20

// SessionStore provides session-scoped database operations: session
// metadata, the chat log, the model-message snapshot, the protocol event
// log, and the todo blobs.
type SessionStore struct {
	store *Store
}

// NewSessionStore creates a session store over the shared Store.
func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{store: store}
}

// ListSessions returns sessions ordered by most recent activity.
// limit <= 0 applies DefaultListLimit.
func (s *SessionStore) ListSessions(ctx context.Context, limit int) ([]*models.Session, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	const query = `
		SELECT session_id, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC
		LIMIT ?
	`
	rows, err := s.store.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	defer rows.Close()

	sessions := []*models.Session{}
	for rows.Next() {
		var sess models.Session
		if err := rows.Scan(&sess.SessionID, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, storageErr("scan session", err)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, storageErr("list sessions", rows.Err())
}

// GetSession returns the session record, or (nil, nil) when the id has
// never been written. Absence is not an error.
func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	const query = `
		SELECT session_id, created_at, updated_at
		FROM sessions
		WHERE session_id = ?
		LIMIT 1
	`
	var sess models.Session
	err := s.store.QueryRowContext(ctx, query, sessionID).Scan(
		&sess.SessionID, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get session", err)
	}
	return &sess, nil
}

// DeleteSession removes a session and, via foreign keys, its chat
// messages, model-message snapshot, and events. Unknown ids are a no-op.
func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	const query = `DELETE FROM sessions WHERE session_id = ?`
	_, err := s.store.ExecContext(ctx, query, sessionID)
	return storageErr("delete session", err)
}

// LoadChatMessages returns the chat log in insertion order. Unknown
// sessions yield an empty slice.
func (s *SessionStore) LoadChatMessages(ctx context.Context, sessionID string) ([]*models.ChatMessage, error) {
	const query = `
		SELECT id, role, content, created_at
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY id
	`
	rows, err := s.store.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, storageErr("load chat messages", err)
	}
	defer rows.Close()

	messages := []*models.ChatMessage{}
	for rows.Next() {
		msg := models.ChatMessage{SessionID: sessionID}
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, storageErr("scan chat message", err)
		}
		messages = append(messages, &msg)
	}
	return messages, storageErr("load chat messages", rows.Err())
}

// AppendChatMessage appends one immutable chat log row, creating the
// session on first write. The upsert and insert commit together.
func (s *SessionStore) AppendChatMessage(ctx context.Context, sessionID, role, content string) error {
	now := nowUTC()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return storageErr("append chat message", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertSession(ctx, tx, sessionID, now); err != nil {
		return storageErr("upsert session", err)
	}

	const query = `
		INSERT INTO chat_messages (session_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query, sessionID, role, content, now); err != nil {
		return storageErr("insert chat message", err)
	}

	return storageErr("append chat message", tx.Commit())
}
