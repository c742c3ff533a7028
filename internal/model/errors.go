package model

import (
	"errors"
	"fmt"
)

// ValidationErrorCode categorizes input validation failures.
type ValidationErrorCode string

const (
	// ErrCodeInvalidTrigger indicates an unparseable trigger key name.
	ErrCodeInvalidTrigger ValidationErrorCode = "INVALID_TRIGGER_SYNTAX"

	// ErrCodeInvalidNumber indicates a numeric field outside its allowed range.
	ErrCodeInvalidNumber ValidationErrorCode = "INVALID_NUMERIC_INPUT"

	// ErrCodeInvalidAction indicates an unknown action kind or a key action
	// without key text.
	ErrCodeInvalidAction ValidationErrorCode = "INVALID_ACTION"
)

// ValidationError reports a single rejected field. The prior value of the
// field is left untouched by whoever receives it.
type ValidationError struct {
	Code    ValidationErrorCode
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalidNumber(field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:    ErrCodeInvalidNumber,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

func invalidTrigger(field string, err error) *ValidationError {
	return &ValidationError{
		Code:    ErrCodeInvalidTrigger,
		Field:   field,
		Message: err.Error(),
		Err:     err,
	}
}

// IsInvalidTrigger returns true if err is an INVALID_TRIGGER_SYNTAX error.
// Uses errors.As to handle wrapped errors.
func IsInvalidTrigger(err error) bool {
	return hasCode(err, ErrCodeInvalidTrigger)
}

// IsInvalidNumber returns true if err is an INVALID_NUMERIC_INPUT error.
func IsInvalidNumber(err error) bool {
	return hasCode(err, ErrCodeInvalidNumber)
}

func hasCode(err error, code ValidationErrorCode) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}
