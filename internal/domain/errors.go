package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError marks a caller contract violation (malformed event, unknown
// notification type). It is fatal to the single operation and never swallowed.
type ValidationError struct {
	Subject string // offending entity, e.g. an event id or a type name
	Detail  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Subject, e.Detail)
}

func NewValidationError(subject, format string, args ...any) *ValidationError {
	return &ValidationError{Subject: subject, Detail: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError anywhere in its chain.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
