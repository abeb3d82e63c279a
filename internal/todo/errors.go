package todo

import "fmt"

// ValidationError reports a malformed todo item or patch. It is always
// raised before any persistence happens.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports an operation referencing ids that do not match the
// stored list: duplicates on replace, unknown ids on update or delete.
type ConflictError struct {
	msg string
}

func (e *ConflictError) Error() string {
	return e.msg
}

func conflictf(format string, args ...any) *ConflictError {
	return &ConflictError{msg: fmt.Sprintf(format, args...)}
}
