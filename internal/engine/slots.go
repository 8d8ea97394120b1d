package engine

import (
	"fmt"

	"github.com/roach88/replaypad/internal/sequence"
)

// ChangeSlot moves the active slot by delta. It fails outside Idle and when
// the target is out of range.
func (e *Engine) ChangeSlot(delta int) error {
	return e.selectSlot(e.slot+delta, "change slot")
}

// GotoSlot selects slot directly. It fails outside Idle and when slot is
// out of range.
func (e *Engine) GotoSlot(slot int) error {
	return e.selectSlot(slot, "goto slot")
}

func (e *Engine) selectSlot(slot int, op string) error {
	if e.mode != Idle {
		e.logger.Debug("slot change refused", "mode", e.mode)
		return newTransitionError(op, e.mode, e.slot)
	}
	if !e.store.InRange(slot) {
		e.logger.Debug("slot out of range", "slot", slot, "max_slots", e.store.MaxSlots())
		return &Error{
			Code:    ErrCodeInvalidTransition,
			Message: fmt.Sprintf("slot %d out of range", slot),
			Slot:    e.slot,
			Err:     sequence.ErrSlotOutOfRange,
		}
	}

	e.slot = slot
	count := e.store.Len(slot)
	e.logger.Info("slot selected", "slot", slot, "events", count)
	e.notify(SlotChanged{Slot: slot, EventCount: count})
	return nil
}
