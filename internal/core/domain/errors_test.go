package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("MP-TEST-1000", "test message"),
			expected: "[MP-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("MP-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[MP-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("MP-TEST-1000", "message 1")
	err2 := NewDomainError("MP-TEST-1000", "message 2")
	err3 := NewDomainError("MP-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewDomainError("MP-TEST-1000", "wrapper").WithCause(cause)

	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}

	if errors.Unwrap(NewDomainError("MP-TEST-1000", "no cause")) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_CopiesDoNotMutate(t *testing.T) {
	original := NewDomainError("MP-TEST-1000", "original message")
	cause := fmt.Errorf("root cause")

	withDetails := original.WithDetails("more")
	withCause := original.Wrap(cause)

	if original.Details != "" || original.Cause != nil {
		t.Error("With* should not modify the original error")
	}
	if withDetails.Details != "more" {
		t.Errorf("Details = %q, want %q", withDetails.Details, "more")
	}
	if withCause.Cause != cause {
		t.Errorf("Cause = %v, want %v", withCause.Cause, cause)
	}
	if withCause.Code != original.Code || withCause.Message != original.Message {
		t.Error("code and message should be preserved")
	}
}

func TestIsDomainError(t *testing.T) {
	if !IsDomainError(ErrUnknownUser, "MP-USER-4040") {
		t.Error("IsDomainError should return true for matching code")
	}
	if IsDomainError(ErrUnknownUser, "MP-USER-9999") {
		t.Error("IsDomainError should return false for non-matching code")
	}
	if !IsDomainError(ErrUnknownUser, "") {
		t.Error("IsDomainError with empty code should match any DomainError")
	}
	if IsDomainError(fmt.Errorf("regular error"), "MP-USER-4040") {
		t.Error("IsDomainError should return false for non-DomainError")
	}

	wrapped := fmt.Errorf("wrapped: %w", ErrUnknownUser)
	if !IsDomainError(wrapped, "MP-USER-4040") {
		t.Error("IsDomainError should work with wrapped errors")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrPeerNotFound, "MP-PEER-4040"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrInvalidAmount), "MP-TXN-4001"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err  *DomainError
		code string
	}{
		{ErrDuplicateUser, "MP-USER-4090"},
		{ErrRegistrationRejected, "MP-USER-4220"},
		{ErrUnknownUser, "MP-USER-4040"},
		{ErrNotAuthenticated, "MP-AUTH-4010"},
		{ErrAlreadyLoggedIn, "MP-AUTH-4090"},
		{ErrInsufficientFunds, "MP-TXN-4020"},
		{ErrInvalidAmount, "MP-TXN-4001"},
		{ErrPeerNotFound, "MP-PEER-4040"},
		{ErrProtocolViolation, "MP-PROTO-4000"},
		{ErrConnectionLost, "MP-CONN-5030"},
		{ErrInvalidArgument, "MP-ARG-1001"},
		{ErrRateLimited, "MP-SYS-4290"},
		{ErrInternal, "MP-SYS-5000"},
	}

	seen := make(map[string]bool)
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Error code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Error message should not be empty")
			}
			if seen[tt.code] {
				t.Errorf("duplicate code %q", tt.code)
			}
			seen[tt.code] = true
		})
	}
}

func TestErrorChaining(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := ErrConnectionLost.
		WithDetails("peer bob").
		WithCause(cause)

	if err.Code != "MP-CONN-5030" {
		t.Errorf("Code = %q, want %q", err.Code, "MP-CONN-5030")
	}
	if err.Details != "peer bob" {
		t.Errorf("Details = %q", err.Details)
	}
	if !errors.Is(err, ErrConnectionLost) {
		t.Error("errors.Is should work after chaining")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
}
