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

	// Pre-run errors, these abort before any spec is attempted
	ErrUnsupportedPlatform  ErrorCode = "UNSUPPORTED_PLATFORM"
	ErrConflictingToolchain ErrorCode = "CONFLICTING_TOOLCHAIN"
	ErrConcurrentRun        ErrorCode = "CONCURRENT_RUN"

	// Manifest and plan errors
	ErrManifestLoad      ErrorCode = "MANIFEST_LOAD"
	ErrManifestParse     ErrorCode = "MANIFEST_PARSE"
	ErrManifestInvalid   ErrorCode = "MANIFEST_INVALID"
	ErrCyclicDependency  ErrorCode = "CYCLIC_DEPENDENCY"
	ErrConflictingSpec   ErrorCode = "CONFLICTING_SPEC"
	ErrUnknownDependency ErrorCode = "UNKNOWN_DEPENDENCY"

	// Per-spec errors, recoverable under continue-on-error
	ErrManagerInstall ErrorCode = "MANAGER_INSTALL"
	ErrIndexUpdate    ErrorCode = "INDEX_UPDATE"
	ErrInstall        ErrorCode = "INSTALL"
	ErrTimeout        ErrorCode = "TIMEOUT"
	ErrHookExecute    ErrorCode = "HOOK_EXECUTE"
	ErrPatch          ErrorCode = "PATCH"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// State store errors
	ErrStateLoad  ErrorCode = "STATE_LOAD"
	ErrStateWrite ErrorCode = "STATE_WRITE"
)

// SysupError represents a structured error with code and details
type SysupError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *SysupError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *SysupError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *SysupError) Is(target error) bool {
	var targetErr *SysupError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new SysupError with the given code and message
func New(code ErrorCode, message string) *SysupError {
	return &SysupError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new SysupError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *SysupError {
	return &SysupError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a SysupError
func Wrap(err error, code ErrorCode, message string) *SysupError {
	if err == nil {
		return nil
	}
	return &SysupError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *SysupError {
	if err == nil {
		return nil
	}
	return &SysupError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *SysupError) WithDetail(key string, value interface{}) *SysupError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var sysupErr *SysupError
	if errors.As(err, &sysupErr) {
		return sysupErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a SysupError
func GetErrorCode(err error) ErrorCode {
	var sysupErr *SysupError
	if errors.As(err, &sysupErr) {
		return sysupErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a SysupError
func GetErrorDetails(err error) map[string]interface{} {
	var sysupErr *SysupError
	if errors.As(err, &sysupErr) {
		return sysupErr.Details
	}
	return nil
}
