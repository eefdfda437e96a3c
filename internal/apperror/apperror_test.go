package apperror

import (
	"errors"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("plan", 12),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("code", "This field is required."),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "InvalidFields wraps ErrValidation",
			err:       InvalidFields(map[string][]string{"cpu": {"This field is required."}}),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("user", 7),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Upstream wraps ErrUpstream",
			err:       Upstream("identity", errors.New("connection reset")),
			target:    ErrUpstream,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("plan", 12),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Upstream does NOT match ErrNotFound",
			err:       Upstream("repositories", errors.New("timeout")),
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
			err:         NotFound("app", 3),
			wantMessage: "app not found with id 3",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("code", "This field is required."),
			wantMessage: "This field is required.",
		},
		{
			name:        "Upstream names the call",
			err:         Upstream("token exchange", errors.New("boom")),
			wantMessage: "GitHub token exchange request failed",
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

func TestValidationFailedFields(t *testing.T) {
	err := ValidationFailed("access_token", "This field is required.")

	if err.Field != "access_token" {
		t.Errorf("Field = %q, want %q", err.Field, "access_token")
	}
	if got := err.Fields["access_token"]; len(got) != 1 || got[0] != "This field is required." {
		t.Errorf("Fields[access_token] = %v", got)
	}
}

func TestInvalidFields_FirstFieldIsDeterministic(t *testing.T) {
	err := InvalidFields(map[string][]string{
		"storage":   {"This field is required."},
		"bandwidth": {"A valid integer is required."},
	})

	if err.Field != "bandwidth" {
		t.Errorf("Field = %q, want %q", err.Field, "bandwidth")
	}
	if err.Message != "A valid integer is required." {
		t.Errorf("Message = %q", err.Message)
	}
}
