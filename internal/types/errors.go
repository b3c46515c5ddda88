package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a namespaced error code for orchestration errors.
type ErrorCode string

// Persistence error codes. Store and event-log write failures are fatal to a
// run; callers must not continue past them.
const (
	DB_OPEN_FAILED      ErrorCode = "DB_OPEN_FAILED"
	DB_MIGRATION_FAILED ErrorCode = "DB_MIGRATION_FAILED"
	STORE_WRITE_FAILED  ErrorCode = "STORE_WRITE_FAILED"
	STORE_READ_FAILED   ErrorCode = "STORE_READ_FAILED"
	EVENT_APPEND_FAILED ErrorCode = "EVENT_APPEND_FAILED"
)

// Mission and scheduling error codes.
const (
	MISSION_NOT_FOUND   ErrorCode = "MISSION_NOT_FOUND"
	MISSION_INVALID     ErrorCode = "MISSION_INVALID"
	GRAPH_CYCLE         ErrorCode = "GRAPH_CYCLE"
	CAPABILITY_UNBOUND  ErrorCode = "CAPABILITY_UNBOUND"
	RUN_ALREADY_ACTIVE  ErrorCode = "RUN_ALREADY_ACTIVE"
	CONFIG_LOAD_FAILED  ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_INVALID      ErrorCode = "CONFIG_INVALID"
	APPROVAL_NOT_FOUND  ErrorCode = "APPROVAL_NOT_FOUND"
	SPECIALIST_FAILED   ErrorCode = "SPECIALIST_FAILED"
	NO_CANDIDATES       ErrorCode = "NO_CANDIDATES"
	REVISION_EXHAUSTED  ErrorCode = "REVISION_EXHAUSTED"
	ESCALATION_REQUIRED ErrorCode = "ESCALATION_REQUIRED"
)

// CoreError is a structured error with a namespaced code, message, and
// optional cause. Retryable marks transient failures.
type CoreError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error formats as "[CODE] message" or "[CODE] message: cause".
func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is matches by error code against another CoreError.
func (e *CoreError) Is(target error) bool {
	var coreErr *CoreError
	if errors.As(target, &coreErr) {
		return e.Code == coreErr.Code
	}
	return false
}

// NewError creates a non-retryable CoreError.
func NewError(code ErrorCode, message string) *CoreError {
	return &CoreError{Code: code, Message: message}
}

// NewRetryableError creates a retryable CoreError for transient failures.
func NewRetryableError(code ErrorCode, message string) *CoreError {
	return &CoreError{Code: code, Message: message, Retryable: true}
}

// WrapError creates a non-retryable CoreError wrapping an existing error.
func WrapError(code ErrorCode, message string, cause error) *CoreError {
	return &CoreError{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the ErrorCode from err, or empty when err is not a CoreError.
func CodeOf(err error) ErrorCode {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	return ""
}
