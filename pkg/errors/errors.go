package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrPermission   ErrorCode = "PERMISSION"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Release discovery errors
	ErrDiscovery    ErrorCode = "DISCOVERY"
	ErrNoCandidates ErrorCode = "NO_CANDIDATES"

	// Network errors
	ErrNetwork   ErrorCode = "NETWORK"
	ErrRateLimit ErrorCode = "RATE_LIMIT"

	// FileSystem errors
	ErrFileAccess    ErrorCode = "FILE_ACCESS"
	ErrFileWrite     ErrorCode = "FILE_WRITE"
	ErrSymlinkCreate ErrorCode = "SYMLINK_CREATE"
	ErrDirCreate     ErrorCode = "DIR_CREATE"
	ErrDirRemove     ErrorCode = "DIR_REMOVE"
	ErrExtract       ErrorCode = "EXTRACT"
)

// FetchError represents a structured error with code and details
type FetchError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *FetchError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *FetchError) Is(target error) bool {
	var targetErr *FetchError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new FetchError with the given code and message
func New(code ErrorCode, message string) *FetchError {
	return &FetchError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new FetchError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *FetchError {
	return &FetchError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a FetchError
func Wrap(err error, code ErrorCode, message string) *FetchError {
	if err == nil {
		return nil
	}
	return &FetchError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *FetchError {
	if err == nil {
		return nil
	}
	return &FetchError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *FetchError) WithDetail(key string, value interface{}) *FetchError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a FetchError
func GetErrorCode(err error) ErrorCode {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Code
	}
	return ErrUnknown
}
