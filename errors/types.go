package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Session registry errors
	ErrCodeSpawnFailed     ErrorCode = "SPAWN_FAILED"
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeIOFailed        ErrorCode = "IO_FAILED"

	// Sandbox errors
	ErrCodeRepoNotFound     ErrorCode = "REPO_NOT_FOUND"
	ErrCodeWorktreeFailed   ErrorCode = "WORKTREE_FAILED"
	ErrCodeWorktreeNotFound ErrorCode = "WORKTREE_NOT_FOUND"

	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// Command execution errors
	ErrCodeCommandFailed ErrorCode = "COMMAND_FAILED"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// PaddockError represents a structured error with context
type PaddockError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *PaddockError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *PaddockError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *PaddockError) WithDetail(key string, value interface{}) *PaddockError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *PaddockError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new PaddockError
func New(code ErrorCode, message string) *PaddockError {
	return &PaddockError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a PaddockError
func Wrap(err error, code ErrorCode, message string) *PaddockError {
	return &PaddockError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific PaddockError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	pErr, ok := err.(*PaddockError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return pErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	pErr, ok := err.(*PaddockError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return pErr.Code
}
