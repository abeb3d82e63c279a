package tools

import (
	"context"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/buddyagent/buddy/internal/db/sqlite"
	"github.com/buddyagent/buddy/internal/todo"
)

// TodoToolsSuite is a test suite for the model-callable todo surface.
type TodoToolsSuite struct {
	suite.Suite
	registry *Registry
	cleanup  func()
}

func (s *TodoToolsSuite) SetupTest() {
	store, err := sqlite.Open(filepath.Join(s.T().TempDir(), "sessions.db"))
	s.Require().NoError(err)

	mgr := todo.NewManager(sqlite.NewSessionStore(store))
	s.registry = NewRegistry(NewTodoTools(mgr)...)
	s.cleanup = func() { _ = store.Close() }
}

func (s *TodoToolsSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func TestTodoToolsSuite(t *testing.T) {
	suite.Run(t, new(TodoToolsSuite))
}

// run executes a registered tool and decodes its JSON result.
func (s *TodoToolsSuite) run(name, args string) map[string]any {
	tool, ok := s.registry.Get(name)
	s.Require().True(ok, name)

	result, err := tool.Execute(context.Background(), json.RawMessage(args))
	s.Require().NoError(err)

	var doc map[string]any
	s.Require().NoError(json.Unmarshal([]byte(result), &doc))
	return doc
}

func (s *TodoToolsSuite) TestDefinitions() {
	defs := s.registry.Definitions()
	s.Require().Len(defs, 5)

	names := []string{}
	for _, def := range defs {
		s.Equal("function", def.Type)
		names = append(names, def.Function.Name)
	}
	s.Equal([]string{"todoread", "todoadd", "todoupdate", "tododelete", "todowrite"}, names)
}

func (s *TodoToolsSuite) TestReadEmpty() {
	doc := s.run("todoread", `{}`)
	s.Equal(true, doc["ok"])
	s.Equal(float64(0), doc["count"])
}

func (s *TodoToolsSuite) TestAddThenRead() {
	doc := s.run("todoadd", `{"todos":[{"id":"a","content":"buy milk","status":"pending","priority":"low"}]}`)
	s.Equal(true, doc["ok"])
	s.Equal(float64(1), doc["count"])

	doc = s.run("todoread", `{}`)
	s.Equal(float64(1), doc["count"])
	items := doc["items"].([]any)
	s.Equal("a", items[0].(map[string]any)["id"])
}

// TestValidationSurfacesAsResult: a malformed item becomes an ok:false
// document, not a Go error, so the agent loop can relay it to the model.
func (s *TodoToolsSuite) TestValidationSurfacesAsResult() {
	doc := s.run("todoadd", `{"todos":[{"id":"a","content":"x","status":"pending"}]}`)
	s.Equal(false, doc["ok"])
	s.Equal("Todo item 0 missing fields: priority", doc["error"])
}

func (s *TodoToolsSuite) TestUpdate() {
	s.run("todowrite", `{"todos":[{"id":"a","content":"buy milk","status":"pending","priority":"low"}]}`)

	doc := s.run("todoupdate", `{"id":"a","patch":{"status":"completed"}}`)
	s.Equal(true, doc["ok"])
	s.Equal("pending", doc["before"].(map[string]any)["status"])
	s.Equal("completed", doc["after"].(map[string]any)["status"])
}

func (s *TodoToolsSuite) TestUpdateUnknownPatchField() {
	s.run("todowrite", `{"todos":[{"id":"a","content":"buy milk","status":"pending","priority":"low"}]}`)

	doc := s.run("todoupdate", `{"id":"a","patch":{"owner":"me"}}`)
	s.Equal(false, doc["ok"])
	s.Contains(doc["error"], "owner")
}

func (s *TodoToolsSuite) TestUpdateUnknownID() {
	doc := s.run("todoupdate", `{"id":"ghost","patch":{"status":"completed"}}`)
	s.Equal(false, doc["ok"])
	s.Contains(doc["error"], "ghost")
}

func (s *TodoToolsSuite) TestDeleteReportsAllMissing() {
	s.run("todowrite", `{"todos":[{"id":"a","content":"buy milk","status":"pending","priority":"low"}]}`)

	doc := s.run("tododelete", `{"ids":["ghost","phantom"]}`)
	s.Equal(false, doc["ok"])
	s.Contains(doc["error"], "ghost")
	s.Contains(doc["error"], "phantom")

	doc = s.run("tododelete", `{"ids":["a"]}`)
	s.Equal(true, doc["ok"])
	s.Equal(float64(0), doc["count"])
}

func (s *TodoToolsSuite) TestWriteReplacesWholesale() {
	s.run("todowrite", `{"todos":[
		{"id":"a","content":"one","status":"pending","priority":"low"},
		{"id":"b","content":"two","status":"pending","priority":"low"}
	]}`)

	doc := s.run("todowrite", `{"todos":[{"id":"c","content":"three","status":"pending","priority":"high"}]}`)
	s.Equal(true, doc["ok"])
	s.Equal(float64(1), doc["count"])

	doc = s.run("todoread", `{}`)
	items := doc["items"].([]any)
	s.Require().Len(items, 1)
	s.Equal("c", items[0].(map[string]any)["id"])
}

func TestRegistryDedup(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	mgr := todo.NewManager(sqlite.NewSessionStore(store))
	read := &TodoReadTool{mgr: mgr}
	registry := NewRegistry(read, &TodoReadTool{mgr: mgr})

	require.Len(t, registry.Definitions(), 1)
	got, ok := registry.Get("todoread")
	require.True(t, ok)
	require.Same(t, read, got)
}
