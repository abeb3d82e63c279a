package models

// TodoStatus is the lifecycle state of a todo item. There is no enforced
// transition graph; any status may move to any other.
type TodoStatus string

const (
	TodoStatusPending    TodoStatus = "pending"
	TodoStatusInProgress TodoStatus = "in_progress"
	TodoStatusCompleted  TodoStatus = "completed"
	TodoStatusCancelled  TodoStatus = "cancelled"
)

// Valid reports whether the status is one of the allowed values.
func (s TodoStatus) Valid() bool {
	switch s {
	case TodoStatusPending, TodoStatusInProgress, TodoStatusCompleted, TodoStatusCancelled:
		return true
	}
	return false
}

// TodoPriority is the priority of a todo item.
type TodoPriority string

const (
	TodoPriorityLow    TodoPriority = "low"
	TodoPriorityMedium TodoPriority = "medium"
	TodoPriorityHigh   TodoPriority = "high"
)

// Valid reports whether the priority is one of the allowed values.
func (p TodoPriority) Valid() bool {
	switch p {
	case TodoPriorityLow, TodoPriorityMedium, TodoPriorityHigh:
		return true
	}
	return false
}

// TodoItem is a structured task stored under a todo scope.
type TodoItem struct {
	ID       string       `json:"id"`
	Content  string       `json:"content"`
	Status   TodoStatus   `json:"status"`
	Priority TodoPriority `json:"priority"`
}

// TodoPatch is a partial update for a single todo item. Nil fields are
// left untouched.
type TodoPatch struct {
	Content  *string       `json:"content,omitempty"`
	Status   *TodoStatus   `json:"status,omitempty"`
	Priority *TodoPriority `json:"priority,omitempty"`
}

// Empty reports whether the patch touches no fields.
func (p TodoPatch) Empty() bool {
	return p.Content == nil && p.Status == nil && p.Priority == nil
}

// TodoUpdate is the result of patching a single item: the item before and
// after the mutation plus the full list as persisted.
type TodoUpdate struct {
	Before TodoItem   `json:"before"`
	After  TodoItem   `json:"after"`
	Todos  []TodoItem `json:"todos"`
}
