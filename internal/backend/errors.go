package backend

import (
	"errors"
	"fmt"

	"field-scheduler-backend/internal/policy"
)

var (
	// ErrNotFound is returned when the record an operation targets does not
	// exist or is no longer active.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an add would violate a uniqueness rule.
	ErrDuplicate = errors.New("already exists")
	// ErrConflict is returned when a concurrent change, committed while the
	// caller waited for the change lock, invalidated the request.
	ErrConflict = errors.New("conflicting change")
	// ErrStalled is returned by mutations once a strict-mode commit has failed.
	ErrStalled = errors.New("backend stalled after a failed commit")
	// ErrYearRollover is returned by WatchYear when the wall-clock year moves
	// past the year of the open data files.
	ErrYearRollover = errors.New("data year has ended")
	// ErrNotAuthenticated is the permission error for callers without a
	// subject.
	ErrNotAuthenticated = policy.Deny("Not authenticated")
)

// PermissionError reports that the caller may not perform an operation.
type PermissionError = policy.PermissionError

// Error carries a caller-facing message and classifies it with one of the
// sentinel errors above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func notFound(message string) error { return &Error{Kind: ErrNotFound, Message: message} }

func duplicate(message string) error { return &Error{Kind: ErrDuplicate, Message: message} }

func conflict(message string) error { return &Error{Kind: ErrConflict, Message: message} }

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsPermission reports whether err is, or wraps, a PermissionError.
func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
