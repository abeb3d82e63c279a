package sqlite

import (
	"context"
	"database/sql"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/buddyagent/buddy/pkg/models"
)

// LoadTodos returns the raw entries of the todo list persisted under
// scope. The store does not validate entries; the todo manager filters and
// shapes them. An unknown scope yields an empty list, and a blob that no
// longer parses as a JSON array is treated as empty rather than failing
// the read.
func (s *SessionStore) LoadTodos(ctx context.Context, scope string) ([]json.RawMessage, error) {
	const query = `SELECT items_json FROM todo_lists WHERE scope = ? LIMIT 1`

	var blob []byte
	err := s.store.QueryRowContext(ctx, query, scope).Scan(&blob)
	if err == sql.ErrNoRows {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, storageErr("load todos", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(blob, &entries); err != nil {
		log.Warn().Str("scope", scope).Err(err).Msg("todo blob is not a JSON array, treating as empty")
		return []json.RawMessage{}, nil
	}
	return entries, nil
}

// SaveTodos replaces the todo list for scope wholesale.
func (s *SessionStore) SaveTodos(ctx context.Context, scope string, items []models.TodoItem) error {
	if items == nil {
		items = []models.TodoItem{}
	}
	blob, err := json.Marshal(items)
	if err != nil {
		return storageErr("encode todos", err)
	}

	now := nowUTC()
	const query = `
		INSERT INTO todo_lists (scope, items_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(scope) DO UPDATE SET items_json = excluded.items_json, updated_at = excluded.updated_at
	`
	_, err = s.store.ExecContext(ctx, query, scope, string(blob), now, now)
	return storageErr("save todos", err)
}
