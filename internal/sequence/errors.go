package sequence

import "errors"

var (
	// ErrSlotOutOfRange is returned for slot ids outside [1, max_slots].
	ErrSlotOutOfRange = errors.New("slot out of range")

	// ErrCapacityExceeded is returned when a sequence has more events than a
	// slot may hold.
	ErrCapacityExceeded = errors.New("too many events for slot")

	// ErrEmptySlot is returned when an operation needs a non-empty slot.
	ErrEmptySlot = errors.New("slot is empty")

	// ErrIncompatibleVersion is returned by Load for documents from another
	// major version.
	ErrIncompatibleVersion = errors.New("incompatible file version")

	// ErrInvalidDocument is returned for documents missing required fields.
	ErrInvalidDocument = errors.New("invalid document")
)
