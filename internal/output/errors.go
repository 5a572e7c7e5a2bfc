package output

import (
	"errors"
	"fmt"
)

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code       string
	Message    string
	Hint       string
	HTTPStatus int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// RequiresReauth reports whether this error invalidates stored credentials.
func (e *Error) RequiresReauth() bool {
	return RequiresReauth(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrCredentialNotFound() *Error {
	return &Error{
		Code:    CodeCredentialNotFound,
		Message: "No Claude credentials found",
		Hint:    "Sign in with the Claude app or CLI, then try again",
	}
}

func ErrCredentialInvalid(cause error) *Error {
	return &Error{
		Code:    CodeCredentialInvalid,
		Message: "Stored credentials could not be decoded",
		Cause:   cause,
	}
}

func ErrRefreshNoToken() *Error {
	return &Error{
		Code:    CodeRefreshNoToken,
		Message: "Access token expired and no refresh token is available",
		Hint:    "Sign in again to obtain a new token",
	}
}

func ErrRefreshInvalidGrant() *Error {
	return &Error{
		Code:    CodeRefreshInvalidGrant,
		Message: "Refresh token was rejected",
		Hint:    "Sign in again to re-authorize",
	}
}

func ErrRefreshHTTP(status int, msg string) *Error {
	if msg == "" {
		msg = fmt.Sprintf("Token refresh failed (HTTP %d)", status)
	}
	return &Error{
		Code:       CodeRefreshHTTP,
		Message:    msg,
		HTTPStatus: status,
	}
}

func ErrUnauthorized(provider string) *Error {
	return &Error{
		Code:       CodeUnauthorized,
		Message:    fmt.Sprintf("%s rejected the credentials", provider),
		Hint:       "Sign in again to re-authorize",
		HTTPStatus: 401,
	}
}

func ErrForbidden(provider string) *Error {
	return &Error{
		Code:       CodeForbidden,
		Message:    fmt.Sprintf("%s denied access: insufficient scope", provider),
		Hint:       "Sign in again with the required scopes",
		HTTPStatus: 403,
	}
}

func ErrSessionToken() *Error {
	return &Error{
		Code:       CodeUnauthorized,
		Message:    "Cursor session token was rejected",
		Hint:       "Run: claude-checker cursor set-token",
		HTTPStatus: 401,
	}
}

func ErrNetwork(cause error) *Error {
	return &Error{
		Code:      CodeNetwork,
		Message:   "Network error",
		Hint:      cause.Error(),
		Retryable: true,
		Cause:     cause,
	}
}

func ErrAPI(status int, msg string) *Error {
	return &Error{
		Code:       CodeAPI,
		Message:    msg,
		HTTPStatus: status,
	}
}

func ErrDecode(what string, cause error) *Error {
	return &Error{
		Code:    CodeDecode,
		Message: fmt.Sprintf("Failed to decode %s", what),
		Cause:   cause,
	}
}

// AsError attempts to convert an error to an *Error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Code:    CodeAPI,
		Message: err.Error(),
		Cause:   err,
	}
}
