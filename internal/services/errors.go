package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the HTTP layer can pick a status code
// without inspecting messages.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotConfigured ErrorKind = "not_configured"
	KindUpstreamAuth  ErrorKind = "upstream_auth"
	KindNotFound      ErrorKind = "not_found"
	KindUpstream      ErrorKind = "upstream"
	KindInternal      ErrorKind = "internal"
)

// ServiceError carries a user-facing message. StatusCode is the upstream
// HTTP status when the failure came from a remote API.
type ServiceError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

func newValidationError(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func newNotConfiguredError(msg string) *ServiceError {
	return &ServiceError{Kind: KindNotConfigured, Message: msg}
}

func newNotFoundError(msg string) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Message: msg}
}

func newUpstreamAuthError(msg string) *ServiceError {
	return &ServiceError{Kind: KindUpstreamAuth, Message: msg, StatusCode: 401}
}

func newUpstreamError(status int, msg string, err error) *ServiceError {
	return &ServiceError{Kind: KindUpstream, Message: msg, StatusCode: status, Err: err}
}

// KindOf reports the kind of err, or KindInternal for anything that is not
// a ServiceError.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a ServiceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
