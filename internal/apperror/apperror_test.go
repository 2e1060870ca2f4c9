package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// TABLE-DRIVEN TESTS:
// Each case is one row in the table; t.Run gives every row its own name in
// the test output so a failure points at the exact case.
func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("workout", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("name", "name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("saved workout", "abc123"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "ConflictMessage wraps ErrConflict",
			err:       ConflictMessage("nothing saved"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "NotAllowed wraps ErrNotAllowed",
			err:       NotAllowed("checklist item"),
			target:    ErrNotAllowed,
			wantMatch: true,
		},
		{
			name:      "NotAllowed also matches ErrNotFound",
			err:       NotAllowed("checklist item"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrNotAllowed",
			err:       NotFound("workout", "abc123"),
			target:    ErrNotAllowed,
			wantMatch: false,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("no active subscription"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("invalid credentials"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "Unavailable wraps ErrUnavailable",
			err:       Unavailable("payments are not configured"),
			target:    ErrUnavailable,
			wantMatch: true,
		},
		{
			name:      "Storage wraps ErrStorage",
			err:       Storage("listing workouts", errors.New("disk I/O error")),
			target:    ErrStorage,
			wantMatch: true,
		},
		{
			name:      "Storage keeps the cause in the chain",
			err:       Storage("listing workouts", context.Canceled),
			target:    context.Canceled,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed does NOT match ErrNotFound",
			err:       ValidationFailed("name", "too long"),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("catalog workout", "42"),
			wantMessage: "catalog workout not found with id 42",
		},
		{
			name:        "NotAllowed message does not reveal existence",
			err:         NotAllowed("checklist item"),
			wantMessage: "checklist item not found or not authorized",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("name", "name is required"),
			wantMessage: "name is required",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("user", "alice"),
			wantMessage: "user conflict with id alice",
		},
		{
			name:        "Storage message hides the cause",
			err:         Storage("creating workout", errors.New("UNIQUE constraint failed: users.email")),
			wantMessage: "a storage error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("workout", "abc123")
	unwrapped := err.Unwrap()

	if unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("equipment", "equipment must be a list")

	if err.Field != "equipment" {
		t.Errorf("Field = %q, want %q", err.Field, "equipment")
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		if err := Wrap("op", nil); err != nil {
			t.Errorf("Wrap(nil) = %v, want nil", err)
		}
	})

	t.Run("app errors pass through", func(t *testing.T) {
		orig := NotFound("workout", "x")
		wrapped := fmt.Errorf("context: %w", orig)
		if got := Wrap("op", wrapped); got != wrapped {
			t.Errorf("Wrap() = %v, want the original error", got)
		}
	})

	t.Run("plain errors become storage errors", func(t *testing.T) {
		got := Wrap("op", errors.New("boom"))
		if !errors.Is(got, ErrStorage) {
			t.Errorf("Wrap() = %v, want ErrStorage", got)
		}
	})
}
