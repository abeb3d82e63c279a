package sqlite

import (
	"context"

	json "github.com/goccy/go-json"
)

// LoadMessages returns the model-message snapshot for a session as opaque
// JSON payloads in message_index order. The store never interprets the
// model client's wire format.
func (s *SessionStore) LoadMessages(ctx context.Context, sessionID string) ([]json.RawMessage, error) {
	const query = `
		SELECT message_json
		FROM messages
		WHERE session_id = ?
		ORDER BY message_index
	`
	rows, err := s.store.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, storageErr("load messages", err)
	}
	defer rows.Close()

	payloads := []json.RawMessage{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, storageErr("scan message", err)
		}
		payloads = append(payloads, json.RawMessage(raw))
	}
	return payloads, storageErr("load messages", rows.Err())
}

// LoadMessagePayloads returns the same snapshot decoded into generic
// objects, for callers that want to inspect payloads without committing to
// a message schema.
func (s *SessionStore) LoadMessagePayloads(ctx context.Context, sessionID string) ([]map[string]any, error) {
	raws, err := s.LoadMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	payloads := make([]map[string]any, 0, len(raws))
	for _, raw := range raws {
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, storageErr("decode message payload", err)
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

// SaveMessages replaces the session's model-message snapshot wholesale.
// Callers pass the complete desired history each time; elements that do
// not encode to a JSON object are silently dropped before insert. The
// delete and re-insert commit in one transaction.
func (s *SessionStore) SaveMessages(ctx context.Context, sessionID string, messages []any) error {
	encoded := make([][]byte, 0, len(messages))
	for _, msg := range messages {
		raw, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if !isJSONObject(raw) {
			continue
		}
		encoded = append(encoded, raw)
	}

	now := nowUTC()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return storageErr("save messages", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertSession(ctx, tx, sessionID, now); err != nil {
		return storageErr("upsert session", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return storageErr("delete old messages", err)
	}

	const insert = `
		INSERT INTO messages (session_id, message_index, message_json, created_at)
		VALUES (?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return storageErr("prepare insert message", err)
	}
	defer stmt.Close()

	for i, raw := range encoded {
		if _, err := stmt.ExecContext(ctx, sessionID, i, string(raw), now); err != nil {
			return storageErr("insert message", err)
		}
	}

	return storageErr("save messages", tx.Commit())
}
