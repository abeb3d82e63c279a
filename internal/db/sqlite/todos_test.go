package sqlite

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"

	"github.com/buddyagent/buddy/pkg/models"
)

// TodoBlobSuite is a test suite for the scoped todo blob persistence.
type TodoBlobSuite struct {
	suite.Suite
	store    *Store
	sessions *SessionStore
	cleanup  func()
}

func (s *TodoBlobSuite) SetupTest() {
	s.store, s.cleanup = testDB(s.T())
	s.sessions = NewSessionStore(s.store)
}

func (s *TodoBlobSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func TestTodoBlobSuite(t *testing.T) {
	suite.Run(t, new(TodoBlobSuite))
}

func (s *TodoBlobSuite) TestLoadUnknownScope() {
	entries, err := s.sessions.LoadTodos(context.Background(), "default")
	s.NoError(err)
	s.Empty(entries)
}

func (s *TodoBlobSuite) TestSaveLoadRoundTrip() {
	ctx := context.Background()

	items := []models.TodoItem{
		{ID: "a", Content: "buy milk", Status: models.TodoStatusPending, Priority: models.TodoPriorityLow},
		{ID: "b", Content: "ship release", Status: models.TodoStatusInProgress, Priority: models.TodoPriorityHigh},
	}
	s.NoError(s.sessions.SaveTodos(ctx, "default", items))

	entries, err := s.sessions.LoadTodos(ctx, "default")
	s.NoError(err)
	s.Require().Len(entries, 2)

	var first models.TodoItem
	s.NoError(json.Unmarshal(entries[0], &first))
	s.Equal(items[0], first)

	// Saving replaces the whole list.
	s.NoError(s.sessions.SaveTodos(ctx, "default", nil))
	entries, err = s.sessions.LoadTodos(ctx, "default")
	s.NoError(err)
	s.Empty(entries)
}

func (s *TodoBlobSuite) TestScopesAreIndependent() {
	ctx := context.Background()

	s.NoError(s.sessions.SaveTodos(ctx, "default", []models.TodoItem{
		{ID: "a", Content: "x", Status: models.TodoStatusPending, Priority: models.TodoPriorityLow},
	}))
	s.NoError(s.sessions.SaveTodos(ctx, "other", []models.TodoItem{
		{ID: "b", Content: "y", Status: models.TodoStatusPending, Priority: models.TodoPriorityLow},
		{ID: "c", Content: "z", Status: models.TodoStatusPending, Priority: models.TodoPriorityLow},
	}))

	def, err := s.sessions.LoadTodos(ctx, "default")
	s.NoError(err)
	s.Len(def, 1)

	other, err := s.sessions.LoadTodos(ctx, "other")
	s.NoError(err)
	s.Len(other, 2)
}

// TestCorruptBlob verifies a blob that is no longer a JSON array reads as
// empty instead of failing.
func (s *TodoBlobSuite) TestCorruptBlob() {
	ctx := context.Background()

	_, err := s.store.ExecContext(ctx, `
		INSERT INTO todo_lists (scope, items_json, created_at, updated_at)
		VALUES ('default', 'not json at all', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	s.Require().NoError(err)

	entries, err := s.sessions.LoadTodos(ctx, "default")
	s.NoError(err)
	s.Empty(entries)
}
