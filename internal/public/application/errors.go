package application

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is returned when a user has submitted too many reviews recently.
	ErrRateLimited = errors.New("too many submissions")
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSelfFollow is returned when a user tries to follow themselves.
	ErrSelfFollow = errors.New("cannot follow yourself")
	// ErrAuthRequired is returned when an operation needs a signed-in session.
	ErrAuthRequired = errors.New("authentication required")

	errPhotoStorageDisabled = errors.New("photo storage is not configured")
)

// ValidationError reports bad user input. It is raised before any I/O happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a failure of an external collaborator.
type UpstreamError struct {
	Source    string
	Retryable bool
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is an UpstreamError marked as transient.
func IsRetryable(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.Retryable
}
