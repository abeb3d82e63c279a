package tools

import (
	"bytes"
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/buddyagent/buddy/internal/todo"
	"github.com/buddyagent/buddy/pkg/models"
)

var todoItemSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":       map[string]any{"type": "string"},
		"content":  map[string]any{"type": "string"},
		"status":   map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "completed", "cancelled"}},
		"priority": map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
	},
	"required": []string{"id", "content", "status", "priority"},
}

var todoListSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"todos": map[string]any{
			"type":  "array",
			"items": todoItemSchema,
		},
	},
	"required": []string{"todos"},
}

// NewTodoTools returns the five todo tools wired to one manager.
func NewTodoTools(mgr *todo.Manager) []Tool {
	return []Tool{
		&TodoReadTool{mgr: mgr},
		&TodoAddTool{mgr: mgr},
		&TodoUpdateTool{mgr: mgr},
		&TodoDeleteTool{mgr: mgr},
		&TodoWriteTool{mgr: mgr},
	}
}

// TodoReadTool reads the current todo list.
type TodoReadTool struct {
	mgr *todo.Manager
}

func (t *TodoReadTool) Name() string { return "todoread" }

func (t *TodoReadTool) Definition() ToolDef {
	return ToolDef{
		Type: "function",
		Function: ToolFunction{
			Name:        t.Name(),
			Description: "Read the current todo list",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

func (t *TodoReadTool) Execute(ctx context.Context, _ json.RawMessage) (string, error) {
	items, err := t.mgr.GetTodos(ctx)
	return toolResult(map[string]any{"items": items, "count": len(items)}, err)
}

// TodoAddTool appends items to the todo list; colliding ids are renamed
// rather than rejected.
type TodoAddTool struct {
	mgr *todo.Manager
}

func (t *TodoAddTool) Name() string { return "todoadd" }

func (t *TodoAddTool) Definition() ToolDef {
	return ToolDef{
		Type: "function",
		Function: ToolFunction{
			Name:        t.Name(),
			Description: "Add todo items to the current list",
			Parameters:  todoListSchema,
		},
	}
}

func (t *TodoAddTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Todos []models.TodoItem `json:"todos"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("todoadd args: %w", err)
	}
	items, err := t.mgr.AddTodos(ctx, in.Todos)
	return toolResult(map[string]any{"items": items, "count": len(items)}, err)
}

// TodoUpdateTool patches a single item by id. Unknown patch fields are
// rejected at the decode boundary.
type TodoUpdateTool struct {
	mgr *todo.Manager
}

func (t *TodoUpdateTool) Name() string { return "todoupdate" }

func (t *TodoUpdateTool) Definition() ToolDef {
	return ToolDef{
		Type: "function",
		Function: ToolFunction{
			Name:        t.Name(),
			Description: "Update fields of an existing todo by id",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{"type": "string"},
					"patch": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"content":  map[string]any{"type": "string"},
							"status":   map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "completed", "cancelled"}},
							"priority": map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
						},
					},
				},
				"required": []string{"id", "patch"},
			},
		},
	}
}

func (t *TodoUpdateTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		ID    string           `json:"id"`
		Patch models.TodoPatch `json:"patch"`
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return mustJSON(map[string]any{"ok": false, "error": fmt.Sprintf("todoupdate args: %s", err)}), nil
	}
	update, err := t.mgr.UpdateTodo(ctx, in.ID, in.Patch)
	if err != nil {
		return toolResult(nil, err)
	}
	return toolResult(map[string]any{
		"before": update.Before,
		"after":  update.After,
		"items":  update.Todos,
		"count":  len(update.Todos),
	}, nil)
}

// TodoDeleteTool removes items by id.
type TodoDeleteTool struct {
	mgr *todo.Manager
}

func (t *TodoDeleteTool) Name() string { return "tododelete" }

func (t *TodoDeleteTool) Definition() ToolDef {
	return ToolDef{
		Type: "function",
		Function: ToolFunction{
			Name:        t.Name(),
			Description: "Delete todo items by id",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ids": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				"required": []string{"ids"},
			},
		},
	}
}

func (t *TodoDeleteTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("tododelete args: %w", err)
	}
	items, err := t.mgr.DeleteTodos(ctx, in.IDs)
	return toolResult(map[string]any{"items": items, "count": len(items)}, err)
}

// TodoWriteTool replaces the todo list wholesale.
type TodoWriteTool struct {
	mgr *todo.Manager
}

func (t *TodoWriteTool) Name() string { return "todowrite" }

func (t *TodoWriteTool) Definition() ToolDef {
	return ToolDef{
		Type: "function",
		Function: ToolFunction{
			Name:        t.Name(),
			Description: "Create or replace the todo list",
			Parameters:  todoListSchema,
		},
	}
}

func (t *TodoWriteTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Todos []models.TodoItem `json:"todos"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("todowrite args: %w", err)
	}
	items, err := t.mgr.ReplaceTodos(ctx, in.Todos)
	return toolResult(map[string]any{"items": items, "count": len(items)}, err)
}
