package engine

import (
	"errors"
	"fmt"
)

// EngineError is returned by the engine's public entry points.
//
// None of these are fatal to a running engine. LISTENER_UNAVAILABLE is
// fatal at startup only, and the caller decides that.
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Message is a human-readable description.
	Message string

	// Index is the macro position involved, or -1.
	Index int

	// Err is the underlying cause, if any.
	Err error
}

// EngineErrorCode categorizes engine errors.
type EngineErrorCode string

const (
	// ErrCodeDuplicateTrigger indicates a macro trigger already owned by
	// another macro.
	ErrCodeDuplicateTrigger EngineErrorCode = "DUPLICATE_TRIGGER"

	// ErrCodeLoadFailure indicates the stored macros could not be loaded.
	// The engine continues with an empty set.
	ErrCodeLoadFailure EngineErrorCode = "PERSISTENCE_LOAD_FAILURE"

	// ErrCodeSaveFailure indicates the macros could not be saved. The
	// in-memory set stays authoritative.
	ErrCodeSaveFailure EngineErrorCode = "PERSISTENCE_SAVE_FAILURE"

	// ErrCodeListenerUnavailable indicates the global key hook could not be
	// acquired.
	ErrCodeListenerUnavailable EngineErrorCode = "LISTENER_UNAVAILABLE"

	// ErrCodeMacroNotFound indicates an index outside the macro list.
	ErrCodeMacroNotFound EngineErrorCode = "MACRO_NOT_FOUND"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Index >= 0 {
		msg += fmt.Sprintf(" (index=%d)", e.Index)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewDuplicateTriggerError reports that trigger is already bound to the
// macro at owner.
func NewDuplicateTriggerError(trigger string, owner int) *EngineError {
	return &EngineError{
		Code:    ErrCodeDuplicateTrigger,
		Message: fmt.Sprintf("trigger %q already used by another macro", trigger),
		Index:   owner,
	}
}

// NewLoadError wraps a store load failure.
func NewLoadError(err error) *EngineError {
	return &EngineError{Code: ErrCodeLoadFailure, Message: "could not load macros; starting with none", Index: -1, Err: err}
}

// NewSaveError wraps a store save failure.
func NewSaveError(err error) *EngineError {
	return &EngineError{Code: ErrCodeSaveFailure, Message: "could not save macros; changes kept in memory", Index: -1, Err: err}
}

// NewListenerError wraps a key hook failure.
func NewListenerError(err error) *EngineError {
	return &EngineError{Code: ErrCodeListenerUnavailable, Message: "cannot listen for global key events", Index: -1, Err: err}
}

// NewMacroNotFoundError reports an out-of-range macro index.
func NewMacroNotFoundError(index, count int) *EngineError {
	return &EngineError{
		Code:    ErrCodeMacroNotFound,
		Message: fmt.Sprintf("no macro at position %d (have %d)", index, count),
		Index:   index,
	}
}

// IsDuplicateTrigger returns true if err is a DUPLICATE_TRIGGER error.
// Uses errors.As to handle wrapped errors.
func IsDuplicateTrigger(err error) bool {
	return hasCode(err, ErrCodeDuplicateTrigger)
}

// IsPersistenceError returns true for both load and save failures.
func IsPersistenceError(err error) bool {
	return hasCode(err, ErrCodeLoadFailure) || hasCode(err, ErrCodeSaveFailure)
}

// IsLoadFailure returns true if err is a PERSISTENCE_LOAD_FAILURE error.
func IsLoadFailure(err error) bool {
	return hasCode(err, ErrCodeLoadFailure)
}

// IsSaveFailure returns true if err is a PERSISTENCE_SAVE_FAILURE error.
func IsSaveFailure(err error) bool {
	return hasCode(err, ErrCodeSaveFailure)
}

// IsListenerUnavailable returns true if err is a LISTENER_UNAVAILABLE error.
func IsListenerUnavailable(err error) bool {
	return hasCode(err, ErrCodeListenerUnavailable)
}

// IsMacroNotFound returns true if err is a MACRO_NOT_FOUND error.
func IsMacroNotFound(err error) bool {
	return hasCode(err, ErrCodeMacroNotFound)
}

func hasCode(err error, code EngineErrorCode) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}
