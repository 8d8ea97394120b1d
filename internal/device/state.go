package device

import (
	"errors"
	"fmt"
	"math"
)

const (
	// RecordTolerance is the axis tolerance used when deciding whether a new
	// sample is a recordable event. It filters stick jitter.
	RecordTolerance = 0.08

	// SignificantChangeThreshold is the axis threshold used by
	// HasSignificantChange.
	SignificantChangeThreshold = 0.05

	// StickAxes is the number of leading axes treated as stick axes. Axes at
	// or beyond this index are triggers.
	StickAxes = 4
)

// ErrUnavailable is returned by capabilities that could not be constructed.
var ErrUnavailable = errors.New("device unavailable")

// Hat is a d-pad direction pair. Each component is -1, 0 or 1; y is 1 for up.
type Hat [2]int

// X returns the horizontal component.
func (h Hat) X() int { return h[0] }

// Y returns the vertical component.
func (h Hat) Y() int { return h[1] }

// Layout is the fixed shape of a device for one session.
type Layout struct {
	Buttons int `json:"buttons"`
	Axes    int `json:"axes"`
	Hats    int `json:"hats"`
}

func (l Layout) String() string {
	return fmt.Sprintf("buttons=%d axes=%d hats=%d", l.Buttons, l.Axes, l.Hats)
}

// State is a snapshot of every control on a device.
type State struct {
	Buttons []bool    `json:"buttons"`
	Axes    []float64 `json:"axes"`
	Hats    []Hat     `json:"hats"`
}

// NewState returns a neutral state for the given layout.
func NewState(l Layout) State {
	return State{
		Buttons: make([]bool, l.Buttons),
		Axes:    make([]float64, l.Axes),
		Hats:    make([]Hat, l.Hats),
	}
}

// Layout reports the shape of s.
func (s State) Layout() Layout {
	return Layout{Buttons: len(s.Buttons), Axes: len(s.Axes), Hats: len(s.Hats)}
}

// Clone returns a deep copy of s. Nil slices come back as empty slices so a
// cloned state always serializes as arrays.
func (s State) Clone() State {
	c := State{
		Buttons: make([]bool, len(s.Buttons)),
		Axes:    make([]float64, len(s.Axes)),
		Hats:    make([]Hat, len(s.Hats)),
	}
	copy(c.Buttons, s.Buttons)
	copy(c.Axes, s.Axes)
	copy(c.Hats, s.Hats)
	return c
}

// Pressed reports whether button id is held. Out of range ids are unpressed.
func (s State) Pressed(id int) bool {
	return id >= 0 && id < len(s.Buttons) && s.Buttons[id]
}

// Hat returns hat i, or the centred hat when i is out of range.
func (s State) Hat(i int) Hat {
	if i < 0 || i >= len(s.Hats) {
		return Hat{}
	}
	return s.Hats[i]
}

// Equal reports whether a and b are equal under the given axis tolerance.
// Buttons and hats must match exactly; axes must be within tol of each other.
// States of different shapes are never equal.
func Equal(a, b State, tol float64) bool {
	if !buttonsEqual(a.Buttons, b.Buttons) {
		return false
	}
	if len(a.Axes) != len(b.Axes) {
		return false
	}
	for i := range a.Axes {
		if math.Abs(a.Axes[i]-b.Axes[i]) > tol {
			return false
		}
	}
	return hatsEqual(a.Hats, b.Hats)
}

// HasSignificantChange reports whether b differs from a by more than the
// given axis threshold, or in any button or hat.
func HasSignificantChange(a, b State, threshold float64) bool {
	return !Equal(a, b, threshold)
}

func buttonsEqual(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hatsEqual(a, b []Hat) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
