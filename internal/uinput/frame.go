package uinput

import (
	"encoding/binary"
	"log/slog"
	"math"

	"github.com/roach88/replaypad/internal/device"
	"github.com/roach88/replaypad/internal/evdev"
)

var buttonCodes = [...]uint16{
	evdev.BtnSouth, evdev.BtnEast, evdev.BtnNorth, evdev.BtnWest,
	evdev.BtnTL, evdev.BtnTR, evdev.BtnSelect, evdev.BtnStart,
	evdev.BtnThumbL, evdev.BtnThumbR,
}

var (
	stickCodes   = [...]uint16{evdev.AbsX, evdev.AbsY, evdev.AbsRX, evdev.AbsRY}
	triggerCodes = [...]uint16{evdev.AbsZ, evdev.AbsRZ}
)

const (
	stickMax   = 32767
	triggerMax = 255

	nameSize = 80
	absSlots = 64

	// struct uinput_user_dev
	userDevSize = nameSize + 8 + 4 + 4*absSlots*4

	busUSB        = 0x03
	vendorID      = 0x045e
	productID     = 0x028e
	versionNumber = 0x0110
)

// Option configures a Sink.
type Option func(*options)

type options struct {
	invertLeftY bool
	logger      *slog.Logger
}

// WithInvertLeftY negates the left stick Y axis on output.
func WithInvertLeftY(on bool) Option {
	return func(o *options) { o.invertLeftY = on }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// StickValue scales a stick axis to the virtual pad range.
func StickValue(v float64) int32 {
	return int32(math.Round(clamp(v) * stickMax))
}

// TriggerValue scales a trigger axis, which rests at -1, to 0-255.
func TriggerValue(v float64) int32 {
	t := math.Round((clamp(v) + 1) * 127.5)
	return int32(math.Min(math.Max(t, 0), triggerMax))
}

func clamp(v float64) float64 {
	return math.Min(math.Max(v, -1), 1)
}

// Frame converts st to the events that put the virtual pad in that state,
// ending with a sync report. Controls st does not have are released.
func Frame(st device.State, invertLeftY bool) []evdev.Event {
	out := make([]evdev.Event, 0, len(buttonCodes)+len(stickCodes)+len(triggerCodes)+3)

	for i, code := range buttonCodes {
		var v int32
		if st.Pressed(i) {
			v = 1
		}
		out = append(out, evdev.Event{Type: evdev.EvKey, Code: code, Value: v})
	}

	for i, code := range stickCodes {
		var v float64
		if i < len(st.Axes) {
			v = st.Axes[i]
		}
		if i == 1 && invertLeftY {
			v = -v
		}
		out = append(out, evdev.Event{Type: evdev.EvAbs, Code: code, Value: StickValue(v)})
	}

	for i, code := range triggerCodes {
		v := -1.0
		if j := len(stickCodes) + i; j < len(st.Axes) {
			v = st.Axes[j]
		}
		out = append(out, evdev.Event{Type: evdev.EvAbs, Code: code, Value: TriggerValue(v)})
	}

	hat := st.Hat(0)
	out = append(out,
		evdev.Event{Type: evdev.EvAbs, Code: evdev.AbsHat0X, Value: int32(hat.X())},
		evdev.Event{Type: evdev.EvAbs, Code: evdev.AbsHat0Y, Value: int32(-hat.Y())},
		evdev.Event{Type: evdev.EvSyn, Code: evdev.SynReport},
	)
	return out
}

// Neutral is the released state of the virtual pad.
func Neutral() device.State {
	st := device.NewState(device.Layout{Buttons: len(buttonCodes), Axes: 6, Hats: 1})
	st.Axes[4], st.Axes[5] = -1, -1
	return st
}

// userDevice encodes struct uinput_user_dev for the legacy setup write.
func userDevice(name string) []byte {
	buf := make([]byte, userDevSize)
	if len(name) > nameSize-1 {
		name = name[:nameSize-1]
	}
	copy(buf, name)

	le := binary.LittleEndian
	le.PutUint16(buf[nameSize:], busUSB)
	le.PutUint16(buf[nameSize+2:], vendorID)
	le.PutUint16(buf[nameSize+4:], productID)
	le.PutUint16(buf[nameSize+6:], versionNumber)
	// ff_effects_max stays zero.

	absmax := nameSize + 12
	absmin := absmax + 4*absSlots
	absflat := absmin + 2*4*absSlots
	set := func(base int, code uint16, v int32) {
		le.PutUint32(buf[base+4*int(code):], uint32(v))
	}
	for _, code := range stickCodes {
		set(absmin, code, -stickMax)
		set(absmax, code, stickMax)
		set(absflat, code, 128)
	}
	for _, code := range triggerCodes {
		set(absmax, code, triggerMax)
	}
	for _, code := range []uint16{evdev.AbsHat0X, evdev.AbsHat0Y} {
		set(absmin, code, -1)
		set(absmax, code, 1)
	}
	return buf
}
