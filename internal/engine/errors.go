package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a call the engine could not hand to the registry at all.
// Such calls are rejected before the journal; registry failures are not
// RuntimeErrors, they are outcomes.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Action is the requested action name, when known.
	Action string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownAction indicates no such action exists.
	ErrCodeUnknownAction RuntimeErrorCode = "UNKNOWN_ACTION"

	// ErrCodeInvalidArgs indicates missing or mistyped arguments.
	ErrCodeInvalidArgs RuntimeErrorCode = "INVALID_ARGS"

	// ErrCodeInvalidEpoch indicates a negative epoch.
	ErrCodeInvalidEpoch RuntimeErrorCode = "INVALID_EPOCH"

	// ErrCodeStateCorrupt indicates the persisted state failed validation.
	ErrCodeStateCorrupt RuntimeErrorCode = "STATE_CORRUPT"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s: %s (action=%s)", e.Code, e.Message, e.Action)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownAction reports whether err is an unknown-action error.
// Uses errors.As to handle wrapped errors.
func IsUnknownAction(err error) bool {
	return hasCode(err, ErrCodeUnknownAction)
}

// IsInvalidArgs reports whether err is an argument error.
func IsInvalidArgs(err error) bool {
	return hasCode(err, ErrCodeInvalidArgs)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewUnknownActionError creates a RuntimeError for an unknown action.
func NewUnknownActionError(action string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownAction,
		Message: "no such action",
		Action:  action,
	}
}

// NewInvalidArgsError wraps an argument decoding failure.
func NewInvalidArgsError(action string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidArgs,
		Message: err.Error(),
		Action:  action,
	}
}
