// Package models contains domain models for the buddy session store.
package models

import "github.com/google/uuid"

// Session represents a logical conversation tracked by the store.
// A session row exists once any write (chat message, model-message
// snapshot, or protocol event) has targeted its id.
type Session struct {
	SessionID string `db:"session_id" json:"session_id"`
	CreatedAt string `db:"created_at" json:"created_at"`
	UpdatedAt string `db:"updated_at" json:"updated_at"`
}

// ChatMessage is one entry of the human-readable conversation log.
// Rows are append-only and never mutated after insert.
type ChatMessage struct {
	ID        int64  `db:"id" json:"id"`
	SessionID string `db:"session_id" json:"session_id"`
	Role      string `db:"role" json:"role"`
	Content   string `db:"content" json:"content"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// NewSessionID returns a fresh opaque session identifier.
func NewSessionID() string {
	return "sess-" + uuid.NewString()
}
