package edgar

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks arguments rejected before any network activity.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks lookups that matched nothing in the company index.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports a rejected argument. Error returns Reason verbatim so
// callers can surface it unchanged.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Is lets errors.Is(err, ErrInvalidInput) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a ticker or search text absent from the company index.
type NotFoundError struct {
	Kind  string
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Value)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
