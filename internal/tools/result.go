package tools

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/buddyagent/buddy/internal/todo"
)

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"ok":false,"error":"marshal result: %s"}`, err.Error())
	}
	return string(data)
}

// toolResult maps an operation outcome to the tool's textual result.
// Validation and conflict errors become {"ok":false,...} documents;
// anything else (storage failures) propagates as a Go error.
func toolResult(ok map[string]any, err error) (string, error) {
	if err == nil {
		ok["ok"] = true
		return mustJSON(ok), nil
	}

	var validationErr *todo.ValidationError
	var conflictErr *todo.ConflictError
	if errors.As(err, &validationErr) || errors.As(err, &conflictErr) {
		return mustJSON(map[string]any{"ok": false, "error": err.Error()}), nil
	}
	return "", err
}
