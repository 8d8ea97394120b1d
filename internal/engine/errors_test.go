package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/replaypad/internal/sequence"
)

func TestError_Message(t *testing.T) {
	err := &Error{Code: ErrCodeEmptySlot, Message: "no recording in slot", Slot: 4}
	assert.Equal(t, "EMPTY_SLOT: no recording in slot (slot=4)", err.Error())

	wrapped := &Error{Code: ErrCodePersistenceFailure, Message: "commit recording", Err: errors.New("disk full")}
	assert.Equal(t, "PERSISTENCE_FAILURE: commit recording: disk full", wrapped.Error())
}

func TestError_HelpersSeeThroughWrapping(t *testing.T) {
	inner := &Error{Code: ErrCodeSinkUnavailable, Message: "virtual pad unavailable"}
	err := fmt.Errorf("start: %w", inner)

	assert.True(t, IsSinkUnavailable(err))
	assert.False(t, IsEmptySlot(err))
	assert.Equal(t, ErrCodeSinkUnavailable, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestError_UnwrapReachesCause(t *testing.T) {
	err := &Error{Code: ErrCodeIncompatibleVersion, Message: "load", Err: sequence.ErrIncompatibleVersion}

	assert.True(t, IsIncompatibleVersion(err))
	assert.ErrorIs(t, err, sequence.ErrIncompatibleVersion)
}

func TestError_AllHelpers(t *testing.T) {
	tests := []struct {
		code ErrorCode
		is   func(error) bool
	}{
		{ErrCodeInvalidTransition, IsInvalidTransition},
		{ErrCodeCapacityExceeded, IsCapacityExceeded},
		{ErrCodeEmptySlot, IsEmptySlot},
		{ErrCodeSinkUnavailable, IsSinkUnavailable},
		{ErrCodePersistenceFailure, IsPersistenceFailure},
		{ErrCodeIncompatibleVersion, IsIncompatibleVersion},
		{ErrCodeDeviceReadFailure, IsDeviceReadFailure},
		{ErrCodeSourceUnavailable, IsSourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.True(t, tt.is(&Error{Code: tt.code}))
			assert.False(t, tt.is(nil))
		})
	}
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "recording", Recording.String())
	assert.Equal(t, "playing", Playing.String())
	assert.Equal(t, "unknown", Mode(9).String())
}
