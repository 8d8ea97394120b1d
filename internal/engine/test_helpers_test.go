package engine

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/replaypad/internal/device"
	"github.com/roach88/replaypad/internal/sequence"
	"github.com/roach88/replaypad/internal/testutil"
)

// testLayout mirrors a common pad: 12 buttons, 6 axes, one d-pad.
var testLayout = device.Layout{Buttons: 12, Axes: 6, Hats: 1}

const (
	recordBtn = DefaultRecordButton
	playBtn   = DefaultPlayButton
)

type rig struct {
	eng   *Engine
	src   *testutil.ScriptedSource
	sink  *testutil.CaptureSink
	clock *testutil.FakeClock
	store *sequence.Store
	notes []Notification
}

// newRig wires an engine to scripted devices, a fake clock and an
// in-memory store.
func newRig(t *testing.T, storeOpts []sequence.Option, opts ...Option) *rig {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := &rig{
		src:   testutil.NewScriptedSource(testLayout),
		sink:  testutil.NewCaptureSink(),
		clock: testutil.NewFakeClock(),
	}
	base := []sequence.Option{
		sequence.WithLogger(logger),
		sequence.WithPath(filepath.Join(t.TempDir(), sequence.DefaultFileName)),
		sequence.WithClock(r.clock.Now),
	}
	r.store = sequence.New(append(base, storeOpts...)...)

	engOpts := []Option{
		WithClock(r.clock),
		WithLogger(logger),
		WithObserver(ObserverFunc(func(n Notification) { r.notes = append(r.notes, n) })),
	}
	r.eng = New(r.src, r.sink, r.store, append(engOpts, opts...)...)
	return r
}

// advance moves the fake clock by s seconds and polls once.
func (r *rig) advance(s float64) {
	r.clock.AdvanceSeconds(s)
	r.eng.Poll()
}

// tap presses and releases button id across two polls.
func (r *rig) tap(id int) {
	r.src.Press(id)
	r.eng.Poll()
	r.src.Release(id)
	r.eng.Poll()
}

// load stores events in slot.
func (r *rig) load(t *testing.T, slot int, events []sequence.Event) {
	t.Helper()
	require.NoError(t, r.store.Set(slot, events, ""))
}

// errorsRaised returns every ErrorRaised notification.
func (r *rig) errorsRaised() []error {
	var out []error
	for _, n := range r.notes {
		if er, ok := n.(ErrorRaised); ok {
			out = append(out, er.Err)
		}
	}
	return out
}

// modeChanges returns every ModeChanged notification.
func (r *rig) modeChanges() []ModeChanged {
	var out []ModeChanged
	for _, n := range r.notes {
		if mc, ok := n.(ModeChanged); ok {
			out = append(out, mc)
		}
	}
	return out
}

// stateWith returns a neutral state with the given buttons held.
func stateWith(buttons ...int) device.State {
	st := device.NewState(testLayout)
	for _, b := range buttons {
		st.Buttons[b] = true
	}
	return st
}

// eventsAt builds one event per time, each holding a distinct button.
func eventsAt(times ...float64) []sequence.Event {
	events := make([]sequence.Event, len(times))
	for i, tm := range times {
		events[i] = sequence.Event{Time: tm, State: stateWith(i % 4)}
	}
	return events
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
