package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
//
// Codes have the form MP-<AREA>-<NNNN>; the numeric part loosely follows
// HTTP status semantics so logs stay readable across components.
type DomainError struct {
	Code    string // Error code (e.g., "MP-USER-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Account Errors (USER)
// ============================================================================

var (
	// ErrDuplicateUser indicates the username is already registered.
	ErrDuplicateUser = NewDomainError("MP-USER-4090", "user already registered")

	// ErrRegistrationRejected is what a client sees for 210 FAIL, which
	// covers a taken name as well as a refused name or deposit.
	ErrRegistrationRejected = NewDomainError("MP-USER-4220", "registration rejected")

	// ErrUnknownUser indicates no account exists for the username.
	ErrUnknownUser = NewDomainError("MP-USER-4040", "unknown user")
)

// ============================================================================
// Session Errors (AUTH)
// ============================================================================

var (
	// ErrNotAuthenticated indicates the operation requires a logged-in session.
	ErrNotAuthenticated = NewDomainError("MP-AUTH-4010", "not authenticated")

	// ErrAlreadyLoggedIn indicates the local wallet already holds a login.
	ErrAlreadyLoggedIn = NewDomainError("MP-AUTH-4090", "already logged in")
)

// ============================================================================
// Transaction Errors (TXN)
// ============================================================================

var (
	// ErrInsufficientFunds indicates the sender balance does not cover the amount.
	ErrInsufficientFunds = NewDomainError("MP-TXN-4020", "insufficient funds")

	// ErrInvalidAmount indicates a zero, negative or unparsable amount.
	ErrInvalidAmount = NewDomainError("MP-TXN-4001", "invalid amount")
)

// ============================================================================
// Peer-to-peer Errors (PEER)
// ============================================================================

var (
	// ErrPeerNotFound indicates the receiver is absent from the peer directory.
	ErrPeerNotFound = NewDomainError("MP-PEER-4040", "peer not found")
)

// ============================================================================
// Transport Errors (PROTO, CONN)
// ============================================================================

var (
	// ErrProtocolViolation indicates an unparseable or out-of-sequence message.
	ErrProtocolViolation = NewDomainError("MP-PROTO-4000", "protocol violation")

	// ErrConnectionLost indicates the remote end is unreachable or closed mid-exchange.
	ErrConnectionLost = NewDomainError("MP-CONN-5030", "connection lost")
)

// ============================================================================
// Argument and System Errors (ARG, SYS)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("MP-ARG-1001", "invalid argument")

	// ErrRateLimited indicates too many requests from one address.
	ErrRateLimited = NewDomainError("MP-SYS-4290", "too many requests")

	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = NewDomainError("MP-SYS-5000", "internal error")
)
