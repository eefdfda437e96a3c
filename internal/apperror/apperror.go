// Package apperror defines the domain errors shared by every layer.
//
// Services and repositories return these; only the HTTP layer decides what
// status code each one becomes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrUpstream   = errors.New("upstream unavailable")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error

	// Fields holds per-field messages for validation errors, keyed by the
	// JSON name of the field. Field/Message above mirror the first entry.
	Fields map[string][]string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  map[string][]string{field: {message}},
	}
}

// InvalidFields builds a validation error carrying several field messages.
// The first field in sorted order populates Field and Message so callers
// that only look at one field still get something useful.
func InvalidFields(fields map[string][]string) *AppError {
	e := &AppError{Err: ErrValidation, Fields: fields, Message: "invalid input"}
	first := ""
	for name := range fields {
		if first == "" || name < first {
			first = name
		}
	}
	if first != "" && len(fields[first]) > 0 {
		e.Field = first
		e.Message = fields[first][0]
	}
	return e
}

func Conflict(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %v", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Upstream wraps a transport failure talking to GitHub. HTTP handlers map
// it to 502 Bad Gateway.
func Upstream(call string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %v", ErrUpstream, call, err),
		Message: fmt.Sprintf("GitHub %s request failed", call),
	}
}
