// Package todo validates and mutates the todo list persisted by the
// session store. The store owns durability; this package owns every
// invariant about item shape and id uniqueness.
package todo

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/buddyagent/buddy/pkg/models"
)

// DefaultScope is the single scope this design uses. The store interface
// permits more, so the scope stays a constructor argument.
const DefaultScope = "default"

// Store is the persistence surface the manager needs.
type Store interface {
	LoadTodos(ctx context.Context, scope string) ([]json.RawMessage, error)
	SaveTodos(ctx context.Context, scope string, items []models.TodoItem) error
}

// Manager mutates one scope's todo list. Mutations are serialized behind a
// mutex; the load-validate-save cycle must not interleave within a process.
type Manager struct {
	store Store
	scope string
	mu    sync.Mutex
}

// NewManager creates a manager bound to DefaultScope.
func NewManager(store Store) *Manager {
	return NewManagerForScope(store, DefaultScope)
}

// NewManagerForScope creates a manager bound to the given scope.
func NewManagerForScope(store Store, scope string) *Manager {
	return &Manager{store: store, scope: scope}
}

// GetTodos loads the persisted list, dropping any entry that is not a
// JSON object. Corrupt or partial entries never fail the read.
func (m *Manager) GetTodos(ctx context.Context) ([]models.TodoItem, error) {
	entries, err := m.store.LoadTodos(ctx, m.scope)
	if err != nil {
		return nil, err
	}

	items := []models.TodoItem{}
	for _, entry := range entries {
		trimmed := bytes.TrimLeft(entry, " \t\r\n")
		if len(trimmed) == 0 || trimmed[0] != '{' {
			continue
		}
		var item models.TodoItem
		if err := json.Unmarshal(entry, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// ReplaceTodos validates every item plus overall id uniqueness, then
// persists the list verbatim.
func (m *Manager) ReplaceTodos(ctx context.Context, todos []models.TodoItem) ([]models.TodoItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := validateItems(todos); err != nil {
		return nil, err
	}
	if dupes := duplicateIDs(todos); len(dupes) > 0 {
		return nil, conflictf("duplicate todo ids: %s", strings.Join(dupes, ", "))
	}

	if err := m.store.SaveTodos(ctx, m.scope, todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// AddTodos validates the new items and appends them after the existing
// ones. An id that collides with a stored item (or an earlier new one) is
// renamed deterministically: "id", "id-2", "id-3", ... Existing items are
// never overwritten.
func (m *Manager) AddTodos(ctx context.Context, todos []models.TodoItem) ([]models.TodoItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := validateItems(todos); err != nil {
		return nil, err
	}

	current, err := m.GetTodos(ctx)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool, len(current))
	for _, item := range current {
		taken[item.ID] = true
	}

	updated := append([]models.TodoItem{}, current...)
	for _, item := range todos {
		id := item.ID
		for n := 2; taken[id]; n++ {
			id = fmt.Sprintf("%s-%d", item.ID, n)
		}
		taken[id] = true
		item.ID = id
		updated = append(updated, item)
	}

	if err := m.store.SaveTodos(ctx, m.scope, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateTodo merges the patch over the item with the given id,
// re-validates the merged result, and persists the full list. The
// returned TodoUpdate carries the item before and after the mutation for
// diffing by the caller.
func (m *Manager) UpdateTodo(ctx context.Context, id string, patch models.TodoPatch) (*models.TodoUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.TrimSpace(id) == "" {
		return nil, validationf("todo id cannot be empty")
	}
	if patch.Empty() {
		return nil, validationf("todo patch cannot be empty")
	}

	current, err := m.GetTodos(ctx)
	if err != nil {
		return nil, err
	}

	index := -1
	for i, item := range current {
		if item.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, conflictf("todo not found: %s", id)
	}

	before := current[index]
	after := before
	if patch.Content != nil {
		after.Content = *patch.Content
	}
	if patch.Status != nil {
		after.Status = *patch.Status
	}
	if patch.Priority != nil {
		after.Priority = *patch.Priority
	}
	if err := validateItem(after, index); err != nil {
		return nil, err
	}

	current[index] = after
	if err := m.store.SaveTodos(ctx, m.scope, current); err != nil {
		return nil, err
	}
	return &models.TodoUpdate{Before: before, After: after, Todos: current}, nil
}

// DeleteTodos removes the items with the given ids and persists the rest.
// Every requested id must exist; unknown ids are reported together so the
// caller sees the full set at once.
func (m *Manager) DeleteTodos(ctx context.Context, ids []string) ([]models.TodoItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(ids) == 0 {
		return nil, validationf("todo ids cannot be empty")
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, validationf("todo id cannot be empty")
		}
	}

	current, err := m.GetTodos(ctx)
	if err != nil {
		return nil, err
	}

	stored := make(map[string]bool, len(current))
	for _, item := range current {
		stored[item.ID] = true
	}

	requested := make(map[string]bool, len(ids))
	missing := []string{}
	for _, id := range ids {
		if requested[id] {
			continue
		}
		requested[id] = true
		if !stored[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, conflictf("todo ids not found: %s", strings.Join(missing, ", "))
	}

	updated := []models.TodoItem{}
	for _, item := range current {
		if !requested[item.ID] {
			updated = append(updated, item)
		}
	}

	if err := m.store.SaveTodos(ctx, m.scope, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func validateItems(items []models.TodoItem) error {
	for i, item := range items {
		if err := validateItem(item, i); err != nil {
			return err
		}
	}
	return nil
}

// validateItem enforces the item shape: all four fields present, enums in
// range, id and content non-empty after trimming. Messages name the
// offending index so a model reading the tool result can self-correct.
func validateItem(item models.TodoItem, index int) error {
	missing := []string{}
	if item.Content == "" {
		missing = append(missing, "content")
	}
	if item.Status == "" {
		missing = append(missing, "status")
	}
	if item.Priority == "" {
		missing = append(missing, "priority")
	}
	if item.ID == "" {
		missing = append(missing, "id")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return validationf("Todo item %d missing fields: %s", index, strings.Join(missing, ", "))
	}

	if !item.Status.Valid() {
		return validationf("Todo item %d has invalid status '%s'", index, item.Status)
	}
	if !item.Priority.Valid() {
		return validationf("Todo item %d has invalid priority '%s'", index, item.Priority)
	}
	if strings.TrimSpace(item.Content) == "" {
		return validationf("Todo item %d content cannot be empty", index)
	}
	if strings.TrimSpace(item.ID) == "" {
		return validationf("Todo item %d id cannot be empty", index)
	}
	return nil
}

func duplicateIDs(items []models.TodoItem) []string {
	seen := make(map[string]int, len(items))
	dupes := []string{}
	for _, item := range items {
		seen[item.ID]++
		if seen[item.ID] == 2 {
			dupes = append(dupes, item.ID)
		}
	}
	return dupes
}
