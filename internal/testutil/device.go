package testutil

import (
	"errors"
	"sync"

	"github.com/roach88/replaypad/internal/device"
)

// ErrReadFailed is returned by ScriptedSource.Read while failing is set.
var ErrReadFailed = errors.New("scripted read failure")

// ScriptedSource is an input source whose live state is set by the test.
//
// Every Read returns a copy of the current state, so tests drive the engine
// by mutating the source between polls:
//
//	src.Press(0)
//	eng.Poll()
type ScriptedSource struct {
	mu        sync.Mutex
	layout    device.Layout
	state     device.State
	available bool
	failing   bool
	reads     int
}

// NewScriptedSource creates an available source with a neutral state.
func NewScriptedSource(layout device.Layout) *ScriptedSource {
	return &ScriptedSource{
		layout:    layout,
		state:     device.NewState(layout),
		available: true,
	}
}

// Available implements the engine source capability.
func (s *ScriptedSource) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// Layout implements the engine source capability.
func (s *ScriptedSource) Layout() device.Layout { return s.layout }

// Read returns the current state, or ErrReadFailed while failing.
func (s *ScriptedSource) Read() (device.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.failing {
		return device.State{}, ErrReadFailed
	}
	return s.state.Clone(), nil
}

// Reads returns how many times Read was called.
func (s *ScriptedSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// SetAvailable toggles the availability flag.
func (s *ScriptedSource) SetAvailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = v
}

// SetFailing makes subsequent reads fail until cleared.
func (s *ScriptedSource) SetFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = v
}

// Set replaces the whole live state.
func (s *ScriptedSource) Set(st device.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st.Clone()
}

// Press holds button id.
func (s *ScriptedSource) Press(id int) { s.setButton(id, true) }

// Release lets go of button id.
func (s *ScriptedSource) Release(id int) { s.setButton(id, false) }

func (s *ScriptedSource) setButton(id int, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Buttons[id] = v
}

// SetAxis sets axis i to v (raw, before normalization).
func (s *ScriptedSource) SetAxis(i int, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Axes[i] = v
}

// SetHat sets hat i.
func (s *ScriptedSource) SetHat(i int, h device.Hat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Hats[i] = h
}

// CaptureSink records every state applied to it.
type CaptureSink struct {
	mu        sync.Mutex
	available bool
	applied   []device.State
	resets    int
	applyErr  error
}

// NewCaptureSink creates an available sink.
func NewCaptureSink() *CaptureSink {
	return &CaptureSink{available: true}
}

// Available implements the engine sink capability.
func (s *CaptureSink) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// Apply records st. When an apply error is set, the state is not recorded.
func (s *CaptureSink) Apply(st device.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return s.applyErr
	}
	s.applied = append(s.applied, st.Clone())
	return nil
}

// Reset counts the call.
func (s *CaptureSink) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	return nil
}

// SetAvailable toggles the availability flag.
func (s *CaptureSink) SetAvailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = v
}

// SetApplyError makes Apply fail with err until cleared with nil.
func (s *CaptureSink) SetApplyError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyErr = err
}

// Applied returns a copy of the applied states in order.
func (s *CaptureSink) Applied() []device.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]device.State, len(s.applied))
	copy(out, s.applied)
	return out
}

// Resets returns the number of Reset calls.
func (s *CaptureSink) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// Clear forgets recorded applies and resets.
func (s *CaptureSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = nil
	s.resets = 0
}
