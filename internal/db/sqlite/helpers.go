package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StorageError wraps a failure of the underlying database so callers can
// distinguish store trouble from validation or conflict errors.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr wraps err in a *StorageError, passing nil through.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// nowUTC returns the current UTC time in RFC3339Nano, the timestamp format
// used across all tables.
func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// upsertSession creates the session row on first write and bumps
// updated_at on every subsequent one. created_at is only set on insert.
func upsertSession(ctx context.Context, tx *sql.Tx, sessionID, now string) error {
	const query = `
		INSERT INTO sessions (session_id, created_at, updated_at, metadata_json)
		VALUES (?, ?, ?, '{}')
		ON CONFLICT(session_id) DO UPDATE SET updated_at = excluded.updated_at
	`
	_, err := tx.ExecContext(ctx, query, sessionID, now, now)
	return err
}

// isJSONObject reports whether raw starts a JSON object once leading
// whitespace is skipped.
func isJSONObject(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}
