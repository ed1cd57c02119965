package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the client services and the dashboard.
const (
	CodeAuthFailed       = "AUTH_FAILED"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeForbidden        = "FORBIDDEN"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNetwork          = "NETWORK_ERROR"
	CodeOrderRejected    = "ORDER_REJECTED"
	CodeActionRejected   = "ACTION_REJECTED"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewAuthError reports rejected credentials with a generic message.
func NewAuthError(err error) error {
	return &DomainError{
		Code:       CodeAuthFailed,
		Message:    "invalid credentials",
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewNetworkError wraps a transport failure talking to the coffee API.
func NewNetworkError(op string, err error) error {
	return &DomainError{
		Code:       CodeNetwork,
		Message:    op + " failed",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewOrderError(message string, err error) error {
	return &DomainError{
		Code:       CodeOrderRejected,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Err:        err,
	}
}

func NewActionError(message string, details map[string]any, err error) error {
	return &DomainError{
		Code:       CodeActionRejected,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Details:    details,
		Err:        err,
	}
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

// IsAuthError covers both rejected credentials and calls made without a session.
func IsAuthError(err error) bool {
	return HasCode(err, CodeAuthFailed) || HasCode(err, CodeUnauthenticated)
}

func IsValidationError(err error) bool { return HasCode(err, CodeValidationFailed) }
func IsNetworkError(err error) bool    { return HasCode(err, CodeNetwork) }
func IsOrderError(err error) bool      { return HasCode(err, CodeOrderRejected) }
func IsActionError(err error) bool     { return HasCode(err, CodeActionRejected) }
