package loader

import (
	"errors"
	"fmt"
)

// ValidationError rejects a document that is not a usable OpenAPI 3.x
// document. Field names the offending top-level field, if any.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func missingField(name string) *ValidationError {
	return &ValidationError{
		Field:   name,
		Message: fmt.Sprintf("Missing or invalid %q field", name),
	}
}

var (
	ErrInvalidURL = errors.New("invalid URL format")
	// ErrInvalidDocument wraps input that is not JSON or YAML, or that does
	// not decode into the document model.
	ErrInvalidDocument = errors.New("invalid document")
)

// StatusError is returned when a fetch gets neither 200 nor 304.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status %s", e.URL, e.Status)
}
