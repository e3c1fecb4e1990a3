package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Run-fatal error codes: these abort before any remote call is issued.
const (
	ErrRead            ErrorCode = "READ_ERROR"
	ErrAuth            ErrorCode = "AUTH_ERROR"
	ErrDependencyCycle ErrorCode = "DEPENDENCY_CYCLE"
)

// Per-action error codes: these terminate one action and accumulate into
// the run report.
const (
	ErrTransport              ErrorCode = "TRANSPORT_ERROR"
	ErrOperationTimeout       ErrorCode = "OPERATION_TIMEOUT"
	ErrOperationFailed        ErrorCode = "OPERATION_FAILED"
	ErrDefinitionUnsupported  ErrorCode = "DEFINITION_UNSUPPORTED"
	ErrDependencyNotSatisfied ErrorCode = "DEPENDENCY_NOT_SATISFIED"
)

// ErrNoopPromotion marks the remote "nothing to deploy" signal. It is
// downgraded to an informational success, never surfaced as a failure.
const ErrNoopPromotion ErrorCode = "NOOP_PROMOTION"

// ErrRunCancelled marks a run stopped by its context. Distinct from
// ErrOperationTimeout: the remote never exhausted the poll budget, the
// caller withdrew.
const ErrRunCancelled ErrorCode = "RUN_CANCELLED"

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Identity   string    `json:"identity,omitempty"`
	Operation  string    `json:"operation,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code that produced the error.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithIdentity tags the error with the affected artifact identity.
func (e *Error) WithIdentity(id Identity) *Error {
	e.Identity = id.String()
	return e
}

// WithOperation tags the error with the remote operation id.
func (e *Error) WithOperation(operationID string) *Error {
	e.Operation = operationID
	return e
}

// AsError extracts a *Error from err's chain, if present.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode checks whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	if e, ok := AsError(err); ok {
		return e.Code == code
	}
	return false
}

// IsRunFatal reports whether err must abort the run before any remote
// call: local read failures, authentication failures, dependency cycles.
func IsRunFatal(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	switch e.Code {
	case ErrRead, ErrAuth, ErrDependencyCycle:
		return true
	}
	return false
}
