package worker

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/buddyagent/buddy/internal/db/sqlite"
	"github.com/buddyagent/buddy/internal/worker/sse"
	"github.com/buddyagent/buddy/pkg/models"
)

// Recorder is the event-append front door for this process. The store's
// next-index/append contract is a check-then-act pair; the recorder runs
// the pair under one mutex so in-process producers cannot collide, and
// fans each appended event out to stream clients.
type Recorder struct {
	sessions *sqlite.SessionStore
	streams  *sse.Broadcaster
	mu       sync.Mutex
}

// NewRecorder creates a recorder over the session store. streams may be
// nil when no fan-out is wanted.
func NewRecorder(sessions *sqlite.SessionStore, streams *sse.Broadcaster) *Recorder {
	return &Recorder{sessions: sessions, streams: streams}
}

// Record appends one protocol event and returns the session id and the
// index it was stored at. An empty session id mints a fresh one, for
// producers that start streaming before a session exists.
func (r *Recorder) Record(ctx context.Context, sessionID string, payload any) (string, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sessionID == "" {
		sessionID = models.NewSessionID()
	}

	index, err := r.sessions.NextEventIndex(ctx, sessionID)
	if err != nil {
		return "", 0, err
	}
	if err := r.sessions.AppendEvent(ctx, sessionID, index, payload); err != nil {
		return "", 0, err
	}

	if r.streams != nil {
		if raw, err := json.Marshal(payload); err == nil {
			r.streams.Broadcast(sessionID, index, raw)
		}
	}
	return sessionID, index, nil
}
