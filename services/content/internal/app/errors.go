package app

import (
	"errors"
	"fmt"
	"strings"

	"postcraft/services/content/internal/provider"
)

// ErrNotFound is returned when a content id does not exist for the caller.
var ErrNotFound = errors.New("content not found")

// ValidationError reports missing or malformed input. Message is safe to show to clients.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// PersistenceError wraps a store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ProviderError is the upstream generation failure type.
type ProviderError = provider.Error

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
