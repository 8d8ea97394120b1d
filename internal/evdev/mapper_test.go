package evdev

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/replaypad/internal/device"
)

// xpadKeys is what the xpad driver reports for an Xbox controller.
var xpadKeys = []uint16{
	BtnSouth, BtnEast, BtnNorth, BtnWest, BtnTL, BtnTR,
	BtnSelect, BtnStart, BtnMode, BtnThumbL, BtnThumbR,
}

func xpadAbs() map[uint16]AbsInfo {
	stick := AbsInfo{Min: -32768, Max: 32767}
	trigger := AbsInfo{Min: 0, Max: 255}
	hat := AbsInfo{Min: -1, Max: 1}
	return map[uint16]AbsInfo{
		AbsX: stick, AbsY: stick, AbsRX: stick, AbsRY: stick,
		AbsZ: trigger, AbsRZ: trigger,
		AbsHat0X: hat, AbsHat0Y: hat,
	}
}

func TestMapper_Layout(t *testing.T) {
	m := NewMapper(xpadKeys, xpadAbs())
	assert.Equal(t, device.Layout{Buttons: 11, Axes: 6, Hats: 1}, m.Layout())
}

func TestMapper_ButtonOrder(t *testing.T) {
	m := NewMapper(xpadKeys, xpadAbs())

	tests := []struct {
		code  uint16
		index int
	}{
		{BtnSouth, 0},
		{BtnWest, 3},
		{BtnSelect, 6},
		{BtnStart, 7},
		{BtnThumbL, 8},
		{BtnThumbR, 9},
		{BtnMode, 10},
	}
	for _, tt := range tests {
		m.Apply(Event{Type: EvKey, Code: tt.code, Value: 1})
		st := m.State()
		assert.True(t, st.Pressed(tt.index), "code %#x", tt.code)
		m.Apply(Event{Type: EvKey, Code: tt.code, Value: 0})
	}
	assert.Equal(t, make([]bool, 11), m.State().Buttons)
}

func TestMapper_ExtraButtonsFollowKnownOnes(t *testing.T) {
	m := NewMapper([]uint16{BtnTR2, BtnSouth, BtnTL2, 0x10 /* KEY_Q */}, nil)

	assert.Equal(t, 3, m.Layout().Buttons)
	m.Apply(Event{Type: EvKey, Code: BtnTL2, Value: 1})
	assert.Equal(t, []bool{false, true, false}, m.State().Buttons)
}

func TestMapper_Axes(t *testing.T) {
	m := NewMapper(xpadKeys, xpadAbs())

	m.Apply(Event{Type: EvAbs, Code: AbsX, Value: 32767})
	m.Apply(Event{Type: EvAbs, Code: AbsY, Value: -32768})
	m.Apply(Event{Type: EvAbs, Code: AbsRZ, Value: 255})

	st := m.State()
	assert.InDelta(t, 1.0, st.Axes[0], 1e-9)
	assert.InDelta(t, -1.0, st.Axes[1], 1e-9)
	assert.InDelta(t, -1.0, st.Axes[4], 1e-9, "released trigger rests at -1")
	assert.InDelta(t, 1.0, st.Axes[5], 1e-9)
}

func TestMapper_InitialAbsValues(t *testing.T) {
	abs := xpadAbs()
	abs[AbsRX] = AbsInfo{Min: -32768, Max: 32767, Value: 32767}
	abs[AbsHat0Y] = AbsInfo{Min: -1, Max: 1, Value: -1}

	st := NewMapper(xpadKeys, abs).State()
	assert.InDelta(t, 1.0, st.Axes[2], 1e-9)
	assert.Equal(t, device.Hat{0, 1}, st.Hats[0])
}

func TestMapper_HatAxes(t *testing.T) {
	m := NewMapper(xpadKeys, xpadAbs())

	m.Apply(Event{Type: EvAbs, Code: AbsHat0X, Value: -1})
	m.Apply(Event{Type: EvAbs, Code: AbsHat0Y, Value: 1})
	assert.Equal(t, device.Hat{-1, -1}, m.State().Hats[0], "kernel down is hat y -1")
}

func TestMapper_DpadButtonsDriveHat(t *testing.T) {
	m := NewMapper([]uint16{BtnSouth, BtnDpadUp, BtnDpadDown, BtnDpadLeft, BtnDpadRight}, nil)
	assert.Equal(t, device.Layout{Buttons: 1, Hats: 1}, m.Layout())

	m.Apply(Event{Type: EvKey, Code: BtnDpadUp, Value: 1})
	m.Apply(Event{Type: EvKey, Code: BtnDpadRight, Value: 1})
	assert.Equal(t, device.Hat{1, 1}, m.State().Hats[0])

	m.Apply(Event{Type: EvKey, Code: BtnDpadUp, Value: 0})
	assert.Equal(t, device.Hat{1, 0}, m.State().Hats[0])
}

func TestMapper_SetKeys(t *testing.T) {
	m := NewMapper(xpadKeys, xpadAbs())
	m.Apply(Event{Type: EvKey, Code: BtnEast, Value: 1})
	m.Apply(Event{Type: EvAbs, Code: AbsHat0X, Value: 1})

	m.SetKeys(func(code uint16) bool { return code == BtnStart })

	st := m.State()
	assert.False(t, st.Pressed(1))
	assert.True(t, st.Pressed(7))
	assert.Equal(t, device.Hat{1, 0}, st.Hats[0], "axis hat is not a key")
}

func TestMapper_IgnoresUnknownEvents(t *testing.T) {
	m := NewMapper(xpadKeys, xpadAbs())
	before := m.State()

	m.Apply(Event{Type: EvKey, Code: 0x10, Value: 1})
	m.Apply(Event{Type: EvAbs, Code: 0x28, Value: 9})
	m.Apply(Event{Type: 0x04, Code: 0x04, Value: 3})

	assert.Equal(t, before, m.State())
}

func TestMapper_StateIsACopy(t *testing.T) {
	m := NewMapper(xpadKeys, xpadAbs())
	st := m.State()
	st.Buttons[0] = true

	assert.False(t, m.State().Pressed(0))
}

func TestScale(t *testing.T) {
	tests := []struct {
		name     string
		v        int32
		min, max int32
		want     float64
	}{
		{"min", 0, 0, 255, -1},
		{"max", 255, 0, 255, 1},
		{"centre", 0, -100, 100, 0},
		{"clamped high", 400, 0, 255, 1},
		{"clamped low", -5, 0, 255, -1},
		{"degenerate range", 7, 3, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Scale(tt.v, tt.min, tt.max), 1e-9)
		})
	}
}
