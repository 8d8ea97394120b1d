package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/replaypad/internal/device"
	"github.com/roach88/replaypad/internal/sequence"
)

type recordingState struct {
	buffer  []sequence.Event
	last    device.State
	hasLast bool
	start   time.Time
}

// StartRecording begins recording into the active slot. Only allowed while
// Idle.
func (e *Engine) StartRecording() error {
	if e.mode != Idle {
		e.logger.Warn("cannot start recording", "mode", e.mode)
		return newTransitionError("start recording", e.mode, e.slot)
	}

	e.rec = &recordingState{start: e.clock.Now()}
	e.mode = Recording
	e.logger.Info("recording started", "slot", e.slot)
	e.notify(ModeChanged{Mode: Recording, Slot: e.slot, EventCount: 0})
	return nil
}

// StopRecording commits the buffer to the active slot and returns to Idle.
// The mode returns to Idle even when the store rejects the commit.
func (e *Engine) StopRecording() error {
	if e.mode != Recording {
		return newTransitionError("stop recording", e.mode, e.slot)
	}

	events := e.rec.buffer
	e.rec = nil
	e.mode = Idle

	var result error
	if err := e.store.Set(e.slot, events, ""); err != nil {
		code := ErrCodePersistenceFailure
		if errors.Is(err, sequence.ErrCapacityExceeded) {
			code = ErrCodeCapacityExceeded
		}
		result = &Error{Code: code, Message: "commit recording", Slot: e.slot, Err: err}
		e.logger.Error("recording commit failed", "slot", e.slot, "error", err)
		e.raise(result)
	} else {
		e.logger.Info("recording stopped", "slot", e.slot, "events", len(events))
	}

	e.notify(ModeChanged{Mode: Idle, Slot: e.slot, EventCount: len(events)})
	return result
}

func (e *Engine) pollRecording(live device.State) {
	if e.justPressed(e.recordButton, live.Pressed(e.recordButton)) {
		_ = e.StopRecording()
		return
	}

	r := e.rec
	if r.hasLast && device.Equal(r.last, live, e.recordTolerance) {
		return
	}

	if len(r.buffer) >= e.store.MaxEvents() {
		e.stopAtCapacity()
		return
	}

	t := seconds(r.start, e.clock.Now())
	r.buffer = append(r.buffer, sequence.Event{Time: t, State: live})
	r.last = live
	r.hasLast = true
	e.logger.Debug("event recorded", "time", fmt.Sprintf("%.4f", t), "events", len(r.buffer))

	if len(r.buffer)%progressEvery == 0 {
		e.notify(ModeChanged{Mode: Recording, Slot: e.slot, EventCount: len(r.buffer)})
	}

	if len(r.buffer) >= e.store.MaxEvents() {
		e.stopAtCapacity()
	}
}

// stopAtCapacity raises CAPACITY_EXCEEDED and commits the buffer, which
// never holds more than the per-slot limit.
func (e *Engine) stopAtCapacity() {
	e.logger.Warn("event limit reached, stopping recording", "slot", e.slot, "max", e.store.MaxEvents())
	e.raise(&Error{
		Code:    ErrCodeCapacityExceeded,
		Message: fmt.Sprintf("recording limit of %d events reached", e.store.MaxEvents()),
		Slot:    e.slot,
	})
	_ = e.StopRecording()
}

// continueRecording re-enters Recording after interference with prefix
// already in the buffer and the clock moved back by elapsed seconds.
func (e *Engine) continueRecording(prefix []sequence.Event, elapsed float64) {
	r := &recordingState{
		buffer: make([]sequence.Event, len(prefix)),
		start:  offset(e.clock.Now(), elapsed),
	}
	copy(r.buffer, prefix)
	if len(prefix) > 0 {
		r.last = prefix[len(prefix)-1].State
		r.hasLast = true
	}

	e.rec = r
	e.mode = Recording
	e.logger.Info("recording continued", "slot", e.slot, "events", len(prefix), "offset", elapsed)
	e.notify(ModeChanged{Mode: Recording, Slot: e.slot, EventCount: len(prefix)})

	if len(r.buffer) >= e.store.MaxEvents() {
		e.stopAtCapacity()
	}
}
