// Package tools exposes the todo manager as model-callable tool
// functions. Validation and conflict failures are rendered into the
// tool's textual result so the agent loop can feed them back to the model
// instead of crashing.
package tools

import (
	"context"

	json "github.com/goccy/go-json"
)

// ToolDef describes a tool in chat-completion function-call format.
type ToolDef struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the function half of a ToolDef.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool is a function the model may call during a conversation.
type Tool interface {
	Name() string
	Definition() ToolDef
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Registry maps tool names to implementations, preserving registration order.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, ok := r.tools[t.Name()]; ok {
			continue
		}
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns every tool definition in registration order.
func (r *Registry) Definitions() []ToolDef {
	defs := make([]ToolDef, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}
