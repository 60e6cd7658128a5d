package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error that ended an exploration early.
//
// Runtime errors include:
//   - Cancelled: the Explore context was cancelled or timed out
//   - Reporter failed: a Reporter returned an error for a semistate
//   - Invalid setup: the model's setup names unknown roles
//   - Invalid limits: the limits would prune every state
//
// A branch that merely contributes no solutions is not an error.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeCancelled indicates the exploration context ended.
	ErrCodeCancelled RuntimeErrorCode = "CANCELLED"

	// ErrCodeReporterFailed indicates a reporter could not record a state.
	ErrCodeReporterFailed RuntimeErrorCode = "REPORTER_FAILED"

	// ErrCodeInvalidSetup indicates the setup runs cannot be instantiated.
	ErrCodeInvalidSetup RuntimeErrorCode = "INVALID_SETUP"

	// ErrCodeInvalidLimits indicates unusable limits.
	ErrCodeInvalidLimits RuntimeErrorCode = "INVALID_LIMITS"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsCancelled returns true if the exploration was cancelled.
// Uses errors.As to handle wrapped errors.
func IsCancelled(err error) bool {
	return hasCode(err, ErrCodeCancelled)
}

// IsReporterError returns true if a reporter failed.
func IsReporterError(err error) bool {
	return hasCode(err, ErrCodeReporterFailed)
}

// IsSetupError returns true if the setup or limits were invalid.
func IsSetupError(err error) bool {
	return hasCode(err, ErrCodeInvalidSetup) || hasCode(err, ErrCodeInvalidLimits)
}

// NewCancelledError creates a RuntimeError for a cancelled exploration.
func NewCancelledError(states int64, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCancelled,
		Message: "exploration cancelled",
		Details: map[string]string{"states": fmt.Sprintf("%d", states)},
		Err:     cause,
	}
}

// NewReporterError creates a RuntimeError for a failed reporter.
func NewReporterError(seq int64, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeReporterFailed,
		Message: fmt.Sprintf("reporter failed at semistate %d", seq),
		Details: map[string]string{"seq": fmt.Sprintf("%d", seq)},
		Err:     cause,
	}
}

// NewSetupError creates a RuntimeError for an unusable setup.
func NewSetupError(message string, cause error) *RuntimeError {
	return &RuntimeError{Code: ErrCodeInvalidSetup, Message: message, Err: cause}
}
