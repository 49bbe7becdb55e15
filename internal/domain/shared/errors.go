package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code so that errors.Is works against the
// package-level sentinels even when the message was customised.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Retryable reports whether the caller may safely retry the operation.
func (e *DomainError) Retryable() bool {
	return e.Code == CodeContention
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps the original error as its cause
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error codes shared by every bounded context
const (
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeValidation             = "VALIDATION_ERROR"
	CodeForbidden              = "FORBIDDEN"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeInsufficientFunds      = "INSUFFICIENT_FUNDS"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeContention             = "CONTENTION"
	CodeIntegrityFailure       = "INTEGRITY_FAILURE"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError(CodeInvalidStateTransition, "Operation not allowed in current state")
	ErrInsufficientFunds   = NewDomainError(CodeInsufficientFunds, "Insufficient funds available")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrContention          = NewDomainError(CodeContention, "Resource is busy, please retry")
	ErrIntegrityFailure    = NewDomainError(CodeIntegrityFailure, "Operation could not be completed consistently")
)

// NewValidationError creates a validation error for malformed input
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewContentionError creates a retryable contention error around a storage failure
func NewContentionError(cause error) *DomainError {
	return WrapDomainError(CodeContention, "Resource is busy, please retry", cause)
}

// NewIntegrityError creates an integrity failure error around the paired write that failed
func NewIntegrityError(operation string, cause error) *DomainError {
	return WrapDomainError(CodeIntegrityFailure,
		fmt.Sprintf("%s could not be completed consistently", operation), cause)
}

// AsDomainError extracts a DomainError from an error chain
func AsDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// IsRetryable reports whether err carries a retryable domain error
func IsRetryable(err error) bool {
	domainErr, ok := AsDomainError(err)
	return ok && domainErr.Retryable()
}

// HasCode reports whether err carries a domain error with the given code
func HasCode(err error, code string) bool {
	domainErr, ok := AsDomainError(err)
	return ok && domainErr.Code == code
}
