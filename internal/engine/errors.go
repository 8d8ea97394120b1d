package engine

import (
	"errors"
	"fmt"
)

// Error represents an error detected by the engine.
//
// Engine errors include:
//   - Invalid transition: an operation not allowed in the current mode
//   - Empty slot / sink unavailable: playback refused
//   - Capacity exceeded: recording hit the per-slot event limit
//   - Persistence failure: the store rejected a commit
//
// Error includes structured fields for diagnostics.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Slot is the active slot when the error occurred, 0 if not relevant.
	Slot int

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeInvalidTransition indicates an operation not allowed in the current mode.
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// ErrCodeCapacityExceeded indicates the recording reached the per-slot limit.
	ErrCodeCapacityExceeded ErrorCode = "CAPACITY_EXCEEDED"

	// ErrCodeEmptySlot indicates playback of a slot without events.
	ErrCodeEmptySlot ErrorCode = "EMPTY_SLOT"

	// ErrCodeSinkUnavailable indicates the virtual pad could not be opened.
	ErrCodeSinkUnavailable ErrorCode = "SINK_UNAVAILABLE"

	// ErrCodePersistenceFailure indicates a store read or write failed.
	ErrCodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"

	// ErrCodeIncompatibleVersion indicates a store file from another major version.
	ErrCodeIncompatibleVersion ErrorCode = "INCOMPATIBLE_VERSION"

	// ErrCodeDeviceReadFailure indicates a failed read of the physical pad.
	ErrCodeDeviceReadFailure ErrorCode = "DEVICE_READ_FAILURE"

	// ErrCodeSourceUnavailable indicates no physical pad could be opened.
	ErrCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Slot != 0 {
		msg = fmt.Sprintf("%s (slot=%d)", msg, e.Slot)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInvalidTransition returns true if err is an invalid transition error.
// Uses errors.As to handle wrapped errors.
func IsInvalidTransition(err error) bool {
	return CodeOf(err) == ErrCodeInvalidTransition
}

// IsCapacityExceeded returns true if err is a capacity error.
func IsCapacityExceeded(err error) bool {
	return CodeOf(err) == ErrCodeCapacityExceeded
}

// IsEmptySlot returns true if err reports an empty slot.
func IsEmptySlot(err error) bool {
	return CodeOf(err) == ErrCodeEmptySlot
}

// IsSinkUnavailable returns true if err reports a missing virtual pad.
func IsSinkUnavailable(err error) bool {
	return CodeOf(err) == ErrCodeSinkUnavailable
}

// IsPersistenceFailure returns true if err is a persistence error.
func IsPersistenceFailure(err error) bool {
	return CodeOf(err) == ErrCodePersistenceFailure
}

// IsIncompatibleVersion returns true if err reports a store version mismatch.
func IsIncompatibleVersion(err error) bool {
	return CodeOf(err) == ErrCodeIncompatibleVersion
}

// IsDeviceReadFailure returns true if err is a device read error.
func IsDeviceReadFailure(err error) bool {
	return CodeOf(err) == ErrCodeDeviceReadFailure
}

// IsSourceUnavailable returns true if err reports a missing physical pad.
func IsSourceUnavailable(err error) bool {
	return CodeOf(err) == ErrCodeSourceUnavailable
}

func newTransitionError(op string, mode Mode, slot int) *Error {
	return &Error{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot %s while %s", op, mode),
		Slot:    slot,
	}
}
