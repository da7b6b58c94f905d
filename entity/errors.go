// Package entity defines the records served by the CRUD endpoints and
// their validation rules.
package entity

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ValidationError reports a record that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func required(field, value string) error {
	if value == "" {
		return invalid(field, "%s must be a non-empty string", field)
	}
	return nil
}

func maxLen(field, value string, n int) error {
	if utf8.RuneCountInString(value) > n {
		return invalid(field, "%s must be at most %d characters", field, n)
	}
	return nil
}

// firstErr returns the first non-nil error.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
