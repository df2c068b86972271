package api

import (
	"errors"
	"fmt"
)

// Error is the error type surfaced by the embedding API. Code classifies the
// failure; Cause keeps the wrapped error reachable via errors.Unwrap.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// ErrorCode classifies API failures.
type ErrorCode string

const (
	ErrCodeCatalogNotFound ErrorCode = "CATALOG_NOT_FOUND"
	ErrCodeCatalogExists   ErrorCode = "CATALOG_EXISTS"
	ErrCodeTableNotFound   ErrorCode = "TABLE_NOT_FOUND"
	ErrCodeSyntax          ErrorCode = "SYNTAX_ERROR"
	ErrCodeInvalidParam    ErrorCode = "INVALID_PARAM"
	ErrCodeNotSupported    ErrorCode = "NOT_SUPPORTED"
	ErrCodeClosed          ErrorCode = "CLOSED"
	ErrCodePlanning        ErrorCode = "PLANNING"
	ErrCodeInternal        ErrorCode = "INTERNAL"
)

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an API error with an optional cause.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Errorf creates an API error from a format string.
func Errorf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps err under a code and message. Returns nil when err is nil.
func WrapError(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// IsErrorCode reports whether err, or any error it wraps, is an API error
// with the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// GetErrorCode extracts the code from an API error, or "" for other errors.
func GetErrorCode(err error) ErrorCode {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
