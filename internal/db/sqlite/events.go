package sqlite

import (
	"context"

	json "github.com/goccy/go-json"
)

// EventTypeUnknown is recorded when a payload carries no "kind" discriminator.
const EventTypeUnknown = "unknown"

// LoadEvents returns the protocol event log for a session as opaque JSON
// payloads in event_index order.
func (s *SessionStore) LoadEvents(ctx context.Context, sessionID string) ([]json.RawMessage, error) {
	const query = `
		SELECT payload_json
		FROM events
		WHERE session_id = ?
		ORDER BY event_index
	`
	rows, err := s.store.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, storageErr("load events", err)
	}
	defer rows.Close()

	payloads := []json.RawMessage{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, storageErr("scan event", err)
		}
		payloads = append(payloads, json.RawMessage(raw))
	}
	return payloads, storageErr("load events", rows.Err())
}

// NextEventIndex returns the index the caller should use for the next
// append: 0 for a session with no events, max+1 otherwise. The store does
// not allocate indices on append; single-writer-per-session deployments
// call this before every AppendEvent.
func (s *SessionStore) NextEventIndex(ctx context.Context, sessionID string) (int64, error) {
	const query = `
		SELECT COALESCE(MAX(event_index) + 1, 0)
		FROM events
		WHERE session_id = ?
	`
	var next int64
	if err := s.store.QueryRowContext(ctx, query, sessionID).Scan(&next); err != nil {
		return 0, storageErr("next event index", err)
	}
	return next, nil
}

// AppendEvent inserts one protocol event at the caller-supplied index,
// creating the session on first write. The event type is taken from the
// payload's "kind" field, falling back to EventTypeUnknown.
func (s *SessionStore) AppendEvent(ctx context.Context, sessionID string, eventIndex int64, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return storageErr("encode event payload", err)
	}

	eventType := EventTypeUnknown
	var discriminator struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &discriminator); err == nil && discriminator.Kind != "" {
		eventType = discriminator.Kind
	}

	now := nowUTC()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return storageErr("append event", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertSession(ctx, tx, sessionID, now); err != nil {
		return storageErr("upsert session", err)
	}

	const insert = `
		INSERT INTO events (session_id, event_index, event_type, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, insert, sessionID, eventIndex, eventType, string(raw), now); err != nil {
		return storageErr("insert event", err)
	}

	return storageErr("append event", tx.Commit())
}
