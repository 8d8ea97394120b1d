package evdev

import (
	"sort"

	"github.com/roach88/replaypad/internal/device"
)

// buttonOrder is the preferred index of each gamepad key. Keys a device
// reports beyond these are appended in code order.
var buttonOrder = []uint16{
	BtnSouth, BtnEast, BtnNorth, BtnWest,
	BtnTL, BtnTR, BtnSelect, BtnStart,
	BtnThumbL, BtnThumbR, BtnMode,
}

// axisOrder is the index of each axis: sticks first, then triggers.
var axisOrder = []uint16{AbsX, AbsY, AbsRX, AbsRY, AbsZ, AbsRZ}

type axis struct {
	index    int
	min, max int32
}

// Mapper folds raw events into a device.State. It is not safe for
// concurrent use.
type Mapper struct {
	buttons map[uint16]int
	axes    map[uint16]axis
	hat     bool
	hasDpad bool
	dpad    [4]bool // up, down, left, right
	state   device.State
}

// NewMapper builds a mapper for a device exposing the given key codes and
// absolute axes. Key codes outside the joystick and gamepad ranges are
// ignored. D-pad keys and the first hat axes both drive hat 0.
func NewMapper(keys []uint16, abs map[uint16]AbsInfo) *Mapper {
	m := &Mapper{
		buttons: make(map[uint16]int),
		axes:    make(map[uint16]axis),
	}

	has := make(map[uint16]bool, len(keys))
	for _, k := range keys {
		has[k] = true
	}
	next := 0
	for _, k := range buttonOrder {
		if has[k] {
			m.buttons[k] = next
			next++
		}
	}
	extra := make([]uint16, 0)
	for _, k := range keys {
		if _, ok := m.buttons[k]; ok {
			continue
		}
		switch {
		case k >= BtnDpadUp && k <= BtnDpadRight:
			m.hat = true
			m.hasDpad = true
		case k >= BtnJoystick && k <= BtnThumbR:
			extra = append(extra, k)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, k := range extra {
		m.buttons[k] = next
		next++
	}

	idx := 0
	for _, code := range axisOrder {
		info, ok := abs[code]
		if !ok {
			continue
		}
		m.axes[code] = axis{index: idx, min: info.Min, max: info.Max}
		idx++
	}
	if _, ok := abs[AbsHat0X]; ok {
		m.hat = true
	}

	layout := device.Layout{Buttons: next, Axes: idx}
	if m.hat {
		layout.Hats = 1
	}
	m.state = device.NewState(layout)
	for code, info := range abs {
		m.setAbs(code, info.Value)
	}
	return m
}

// Layout is the shape of the states the mapper produces.
func (m *Mapper) Layout() device.Layout { return m.state.Layout() }

// State returns a copy of the current state.
func (m *Mapper) State() device.State { return m.state.Clone() }

// Apply folds one event into the state. Unknown codes are ignored.
func (m *Mapper) Apply(e Event) {
	switch e.Type {
	case EvKey:
		m.setKey(e.Code, e.Value != 0)
	case EvAbs:
		m.setAbs(e.Code, e.Value)
	}
}

// SetKeys replaces every button with the given pressed set, used after the
// kernel dropped events.
func (m *Mapper) SetKeys(pressed func(code uint16) bool) {
	for code := range m.buttons {
		m.setKey(code, pressed(code))
	}
	if m.hasDpad {
		for i, code := range []uint16{BtnDpadUp, BtnDpadDown, BtnDpadLeft, BtnDpadRight} {
			m.dpad[i] = pressed(code)
		}
		m.syncDpad()
	}
}

func (m *Mapper) setKey(code uint16, down bool) {
	if i, ok := m.buttons[code]; ok {
		m.state.Buttons[i] = down
		return
	}
	if !m.hasDpad || code < BtnDpadUp || code > BtnDpadRight {
		return
	}
	m.dpad[code-BtnDpadUp] = down
	m.syncDpad()
}

func (m *Mapper) syncDpad() {
	var h device.Hat
	if m.dpad[0] {
		h[1]++
	}
	if m.dpad[1] {
		h[1]--
	}
	if m.dpad[2] {
		h[0]--
	}
	if m.dpad[3] {
		h[0]++
	}
	m.state.Hats[0] = h
}

func (m *Mapper) setAbs(code uint16, v int32) {
	switch code {
	case AbsHat0X:
		if m.hat {
			m.state.Hats[0][0] = sign(v)
		}
		return
	case AbsHat0Y:
		// Kernel hats point down for positive values.
		if m.hat {
			m.state.Hats[0][1] = -sign(v)
		}
		return
	}
	if a, ok := m.axes[code]; ok {
		m.state.Axes[a.index] = Scale(v, a.min, a.max)
	}
}

// Scale maps v from [min, max] onto [-1, 1], clamping out of range values.
// A degenerate range maps to 0.
func Scale(v, min, max int32) float64 {
	if max <= min {
		return 0
	}
	f := 2*float64(v-min)/float64(max-min) - 1
	switch {
	case f < -1:
		return -1
	case f > 1:
		return 1
	}
	return f
}

func sign(v int32) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
