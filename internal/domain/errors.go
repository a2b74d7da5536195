package domain

import "errors"

// ErrNotFound is returned when no todo exists with the requested id.
var ErrNotFound = errors.New("todo not found")

// ValidationError is a business-rule failure. Message is safe to show to
// API clients as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrTitleRequired = &ValidationError{Message: "Title is required"}
	ErrTitleEmpty    = &ValidationError{Message: "Title cannot be empty"}
)
