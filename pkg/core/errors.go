package core

import (
	"errors"
	"fmt"
)

// Error is the canonical error shape surfaced across the session core and
// the gateway boundary.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	Code      string    `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrAlreadyInitializing: initialize was called while a session is
	// initializing or connected. Caller error, never retried.
	ErrAlreadyInitializing ErrorType = "already_initializing"
	// ErrNotConnected: a send was attempted without an active session.
	ErrNotConnected ErrorType = "not_connected"
	// ErrRemoteConnect: the live handshake failed during initialize.
	ErrRemoteConnect ErrorType = "remote_connect_error"
	// ErrRemoteRuntime: the remote surfaced an error on an open connection.
	ErrRemoteRuntime ErrorType = "remote_runtime_error"
	// ErrRemoteClosed: the remote closed the connection.
	ErrRemoteClosed ErrorType = "remote_closed"
	// ErrStorage: a history read or write failed. Never fatal to the session.
	ErrStorage ErrorType = "storage_error"

	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrAuthentication ErrorType = "authentication_error"
	ErrNotFound       ErrorType = "not_found_error"
	ErrAPI            ErrorType = "api_error"
)

// NewAlreadyInitializingError reports a rejected concurrent initialize.
func NewAlreadyInitializingError() *Error {
	return &Error{
		Type:    ErrAlreadyInitializing,
		Message: "session initialization already in progress",
	}
}

// NewNotConnectedError reports a send attempted without an open session.
func NewNotConnectedError(op string) *Error {
	return &Error{
		Type:    ErrNotConnected,
		Message: "session not initialized",
		Param:   op,
	}
}

// NewRemoteConnectError wraps a live handshake failure.
func NewRemoteConnectError(err error) *Error {
	return &Error{
		Type:    ErrRemoteConnect,
		Message: fmt.Sprintf("live connect: %v", err),
		cause:   err,
	}
}

// NewRemoteRuntimeError wraps an error callback from an open connection.
func NewRemoteRuntimeError(err error) *Error {
	return &Error{
		Type:    ErrRemoteRuntime,
		Message: err.Error(),
		cause:   err,
	}
}

// NewStorageError wraps a history store failure.
func NewStorageError(op string, err error) *Error {
	msg := op
	if err != nil {
		msg = fmt.Sprintf("%s: %v", op, err)
	}
	return &Error{
		Type:    ErrStorage,
		Message: msg,
		cause:   err,
	}
}

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
	}
}

// NewInvalidRequestErrorWithParam creates an invalid request error with a parameter.
func NewInvalidRequestErrorWithParam(message, param string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
		Param:   param,
	}
}

// NewAuthenticationError creates an authentication error.
func NewAuthenticationError(message string) *Error {
	return &Error{
		Type:    ErrAuthentication,
		Message: message,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return &Error{
		Type:    ErrNotFound,
		Message: message,
	}
}

// NewAPIError creates a generic API error.
func NewAPIError(message string) *Error {
	return &Error{
		Type:    ErrAPI,
		Message: message,
	}
}

// IsType reports whether err is a *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Type == t
}
