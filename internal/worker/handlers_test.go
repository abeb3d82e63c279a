package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"

	"github.com/buddyagent/buddy/internal/config"
	"github.com/buddyagent/buddy/internal/db/sqlite"
)

// WorkerSuite is a test suite for the inspection API.
type WorkerSuite struct {
	suite.Suite
	svc      *Service
	sessions *sqlite.SessionStore
	cleanup  func()
}

func (s *WorkerSuite) SetupTest() {
	store, err := sqlite.Open(filepath.Join(s.T().TempDir(), "sessions.db"))
	s.Require().NoError(err)

	cfg := config.Default()
	cfg.ListLimit = 2

	s.svc = New(cfg, store, "test")
	s.sessions = sqlite.NewSessionStore(store)
	s.cleanup = func() { _ = store.Close() }
}

func (s *WorkerSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

// request performs an HTTP request against the router and decodes the
// JSON response body.
func (s *WorkerSuite) request(method, target, body string) (int, map[string]any) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.svc.Router().ServeHTTP(rec, req)

	var doc map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &doc))
	return rec.Code, doc
}

func (s *WorkerSuite) TestHealth() {
	code, doc := s.request(http.MethodGet, "/api/health", "")
	s.Equal(http.StatusOK, code)
	s.Equal("ok", doc["status"])
	s.Equal("test", doc["version"])
	s.Equal(true, doc["ready"])
	s.NotEmpty(doc["uptime"])
}

func (s *WorkerSuite) TestListSessionsEmpty() {
	code, doc := s.request(http.MethodGet, "/api/sessions", "")
	s.Equal(http.StatusOK, code)
	s.Equal(float64(0), doc["count"])
}

func (s *WorkerSuite) TestListSessionsHonorsLimit() {
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		s.Require().NoError(s.sessions.AppendChatMessage(ctx, id, "user", "x"))
	}

	// Configured limit is 2.
	code, doc := s.request(http.MethodGet, "/api/sessions", "")
	s.Equal(http.StatusOK, code)
	s.Equal(float64(2), doc["count"])

	code, doc = s.request(http.MethodGet, "/api/sessions?limit=3", "")
	s.Equal(http.StatusOK, code)
	s.Equal(float64(3), doc["count"])
}

func (s *WorkerSuite) TestGetSessionNotFound() {
	code, doc := s.request(http.MethodGet, "/api/sessions/ghost", "")
	s.Equal(http.StatusNotFound, code)
	s.Equal("session not found", doc["error"])
}

func (s *WorkerSuite) TestGetSession() {
	ctx := context.Background()
	s.Require().NoError(s.sessions.AppendChatMessage(ctx, "sess-1", "user", "hello"))

	code, doc := s.request(http.MethodGet, "/api/sessions/sess-1", "")
	s.Equal(http.StatusOK, code)
	s.Equal("sess-1", doc["session_id"])
	s.NotEmpty(doc["created_at"])
}

func (s *WorkerSuite) TestChatMessages() {
	ctx := context.Background()
	s.Require().NoError(s.sessions.AppendChatMessage(ctx, "sess-1", "user", "hello"))
	s.Require().NoError(s.sessions.AppendChatMessage(ctx, "sess-1", "assistant", "hi"))

	code, doc := s.request(http.MethodGet, "/api/sessions/sess-1/chat", "")
	s.Equal(http.StatusOK, code)
	s.Equal(float64(2), doc["count"])

	messages := doc["messages"].([]any)
	s.Equal("hello", messages[0].(map[string]any)["content"])
}

func (s *WorkerSuite) TestModelMessages() {
	ctx := context.Background()
	s.Require().NoError(s.sessions.SaveMessages(ctx, "sess-1", []any{
		map[string]any{"role": "user", "content": "one"},
	}))

	code, doc := s.request(http.MethodGet, "/api/sessions/sess-1/messages", "")
	s.Equal(http.StatusOK, code)
	s.Equal(float64(1), doc["count"])
}

func (s *WorkerSuite) TestRecordAndListEvents() {
	code, doc := s.request(http.MethodPost, "/api/sessions/sess-1/events",
		`{"kind":"status-update","state":"working"}`)
	s.Equal(http.StatusCreated, code)
	s.Equal("sess-1", doc["session_id"])
	s.Equal(float64(0), doc["event_index"])

	code, doc = s.request(http.MethodPost, "/api/sessions/sess-1/events",
		`{"kind":"message-delta"}`)
	s.Equal(http.StatusCreated, code)
	s.Equal(float64(1), doc["event_index"])

	code, doc = s.request(http.MethodGet, "/api/sessions/sess-1/events", "")
	s.Equal(http.StatusOK, code)
	s.Equal(float64(2), doc["count"])

	events := doc["events"].([]any)
	s.Equal("status-update", events[0].(map[string]any)["kind"])
}

// TestRecordEventMintsSession: "-" as the session id asks the recorder
// for a fresh session.
func (s *WorkerSuite) TestRecordEventMintsSession() {
	code, doc := s.request(http.MethodPost, "/api/sessions/-/events", `{"kind":"status-update"}`)
	s.Equal(http.StatusCreated, code)

	id, ok := doc["session_id"].(string)
	s.Require().True(ok)
	s.True(strings.HasPrefix(id, "sess-"))
	s.NotEqual("-", id)

	sess, err := s.sessions.GetSession(context.Background(), id)
	s.NoError(err)
	s.NotNil(sess)
}

func (s *WorkerSuite) TestRecordEventRejectsNonJSON() {
	code, doc := s.request(http.MethodPost, "/api/sessions/sess-1/events", "not json")
	s.Equal(http.StatusBadRequest, code)
	s.Equal("payload must be a JSON object", doc["error"])
}

func (s *WorkerSuite) TestTodos() {
	code, doc := s.request(http.MethodGet, "/api/todos", "")
	s.Equal(http.StatusOK, code)
	s.Equal(float64(0), doc["count"])
}

func (s *WorkerSuite) TestRecorderSerializesProducers() {
	ctx := context.Background()
	rec := s.svc.Recorder()

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, _, err := rec.Record(ctx, "sess-1", map[string]any{"kind": "status-update"})
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		s.NoError(<-done)
	}

	next, err := s.sessions.NextEventIndex(ctx, "sess-1")
	s.NoError(err)
	s.Equal(int64(8), next)
}
