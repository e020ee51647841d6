// Package validation holds the input error shared by every domain package.
package validation

import "fmt"

// Error reports a rejected input field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// New returns an *Error for field.
func New(field, reason string) *Error {
	return &Error{Field: field, Reason: reason}
}

// Required returns an *Error for a missing field.
func Required(field string) *Error {
	return &Error{Field: field, Reason: "is required"}
}
