package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an id does not resolve to a stored row.
var ErrNotFound = errors.New("not found")

// ValidationError reports a missing or out-of-range input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func required(field string) error {
	return &ValidationError{Field: field, Message: "is required"}
}

func tooLong(field string, max int) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", max)}
}
