package usecase

import "fmt"

type ErrorCode string

const (
	// ErrorSessionInit means no session identifier could be established;
	// every mutating operation is refused until Init succeeds.
	ErrorSessionInit ErrorCode = "SESSION_INIT"
	// ErrorValidation is a local precondition failure caught before any
	// network call; it never has side effects.
	ErrorValidation ErrorCode = "VALIDATION"
	// ErrorBackend is a non-2xx backend response.
	ErrorBackend ErrorCode = "BACKEND_ERROR"
	// ErrorConnection is a transport failure or deadline expiry; no response
	// reached the client.
	ErrorConnection ErrorCode = "CONNECTION_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
