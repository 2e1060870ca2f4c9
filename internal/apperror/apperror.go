// Package apperror defines the error taxonomy shared by the repository,
// service and handler layers.
//
// Every error a caller may need to react to is an *AppError wrapping one of
// the sentinel values below. Handlers map sentinels to HTTP status codes with
// errors.Is, and show AppError.Message to the client. Anything that is not an
// *AppError is treated as an internal failure and never shown verbatim.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage failure")
	ErrUnavailable  = errors.New("unavailable")

	// ErrNotAllowed wraps ErrNotFound: an entity owned by someone else is
	// reported exactly like a missing one so ids cannot be enumerated.
	ErrNotAllowed = fmt.Errorf("not allowed: %w", ErrNotFound)
)

// notFoundOrNotAllowed is the single message used for ownership failures.
const notFoundOrNotAllowed = "%s not found or not authorized"

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotAllowed reports that the caller does not own the entity. The message is
// deliberately identical for missing and foreign entities.
func NotAllowed(resource string) *AppError {
	return &AppError{
		Err:     ErrNotAllowed,
		Message: fmt.Sprintf(notFoundOrNotAllowed, resource),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// ConflictMessage is Conflict with a free-form message, for conflicts that are
// not about a single id (e.g. a bulk call that produced nothing).
func ConflictMessage(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
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

// Unauthorized is returned for bad credentials. HTTP handlers map it to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Unavailable reports that a required collaborator (such as the payment
// gateway) is not configured or not reachable. HTTP handlers map it to 503.
func Unavailable(message string) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: message,
	}
}

// StorageError carries the underlying persistence failure for logging while
// exposing only a generic message.
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Cause}
}

// Storage wraps a persistence error. The returned *AppError unwraps to both
// ErrStorage and the original cause.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Err:     &StorageError{Op: op, Cause: cause},
		Message: "a storage error occurred",
	}
}

// Wrap returns err unchanged when it already belongs to the taxonomy and
// wraps it as a storage failure otherwise.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return Storage(op, err)
}
