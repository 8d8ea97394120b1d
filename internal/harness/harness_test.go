package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int    { return &n }
func boolp(b bool) *bool { return &b }

func padLayout() Layout { return Layout{Buttons: 11, Axes: 2, Hats: 1} }

// quickOptions disables the warm-up and settle delay so traces stay short.
func quickOptions() Options {
	return Options{
		PollMS:   10,
		SettleMS: intp(0),
		Warmup:   &WarmupOptions{},
	}
}

func oneEventSlot(atMS int, pressed ...int) []SlotSeed {
	return []SlotSeed{{Slot: 1, Events: []SeedEvent{{AtMS: atMS, Pressed: pressed}}}}
}

func traceTypes(res *Result) []string {
	types := make([]string, len(res.Trace))
	for i, ev := range res.Trace {
		types[i] = ev.Type
	}
	return types
}

func TestRun_NilScenario(t *testing.T) {
	_, err := Run(nil)
	require.Error(t, err)
}

func TestRun_LoopPlayback(t *testing.T) {
	s := &Scenario{
		Name:    "loop",
		Layout:  padLayout(),
		Options: quickOptions(),
		Setup:   oneEventSlot(0, 0),
		Steps: []Step{
			{Call: CallStartPlayback, Loop: true, LoopCount: intp(1)},
			{Poll: 5},
		},
	}

	res, err := Run(s)
	require.NoError(t, err)
	require.True(t, res.Pass, res.Errors)

	assert.Equal(t, []string{EventMode, EventApply, EventApply, EventReset, EventMode}, traceTypes(res))
	assert.Equal(t, int64(0), res.Trace[1].AtMS)
	assert.Equal(t, int64(10), res.Trace[2].AtMS, "second pass restarts at the loop boundary")
	assert.Equal(t, "idle", res.Final.Mode)
}

func TestRun_SinkUnavailable(t *testing.T) {
	s := &Scenario{
		Name:    "no_sink",
		Layout:  padLayout(),
		Options: quickOptions(),
		Setup:   oneEventSlot(0, 0),
		Steps: []Step{
			{SinkAvailable: boolp(false)},
			{Call: CallStartPlayback, ExpectError: "SINK_UNAVAILABLE"},
		},
	}

	res, err := Run(s)
	require.NoError(t, err)
	require.True(t, res.Pass, res.Errors)
	require.Len(t, res.Trace, 1)
	assert.Equal(t, EventError, res.Trace[0].Type)
	assert.Equal(t, "SINK_UNAVAILABLE", res.Trace[0].Code)
	assert.Equal(t, "idle", res.Final.Mode)
}

func TestRun_CapacityStopsRecording(t *testing.T) {
	opts := quickOptions()
	opts.MaxEvents = 2
	s := &Scenario{
		Name:    "capacity",
		Layout:  padLayout(),
		Options: opts,
		Steps: []Step{
			{Call: CallStartRecording},
			{Press: intp(0)},
			{Poll: 1},
			{Release: intp(0)},
			{Poll: 1},
		},
	}

	res, err := Run(s)
	require.NoError(t, err)
	require.True(t, res.Pass, res.Errors)

	assert.Equal(t, []string{EventMode, EventError, EventMode}, traceTypes(res))
	assert.Equal(t, "CAPACITY_EXCEEDED", res.Trace[1].Code)
	assert.Equal(t, int64(10), res.Trace[2].AtMS)
	require.NotNil(t, res.Trace[2].Count)
	assert.Equal(t, 2, *res.Trace[2].Count)
	assert.Equal(t, map[string]int{"1": 2}, res.Final.Slots)
}

func TestRun_ReadFailureStillAppliesDueEvents(t *testing.T) {
	s := &Scenario{
		Name:    "read_failure",
		Layout:  padLayout(),
		Options: quickOptions(),
		Setup: []SlotSeed{{Slot: 1, Events: []SeedEvent{
			{AtMS: 10, Pressed: []int{0}},
			{AtMS: 20},
		}}},
		Steps: []Step{
			{Call: CallStartPlayback},
			{SourceFailing: boolp(true)},
			{Poll: 3},
		},
	}

	res, err := Run(s)
	require.NoError(t, err)
	require.True(t, res.Pass, res.Errors)

	assert.Equal(t, []string{EventMode, EventApply, EventApply, EventReset, EventMode}, traceTypes(res))
	assert.Equal(t, []int{0}, res.Trace[1].Pressed)
	assert.Nil(t, res.Trace[2].Pressed)
	assert.Equal(t, "idle", res.Final.Mode)
}

func TestRun_ManualStopAfterGrace(t *testing.T) {
	opts := quickOptions()
	opts.GraceMS = intp(0)
	s := &Scenario{
		Name:    "manual_stop",
		Layout:  padLayout(),
		Options: opts,
		Setup:   oneEventSlot(1000, 0),
		Steps: []Step{
			{Press: intp(9)},
			{Poll: 1},
			{Release: intp(9)},
			{Poll: 1},
			{Press: intp(9)},
			{Poll: 1},
		},
	}

	res, err := Run(s)
	require.NoError(t, err)
	require.True(t, res.Pass, res.Errors)

	assert.Equal(t, []string{EventMode, EventReset, EventMode}, traceTypes(res))
	assert.Equal(t, "playing", res.Trace[0].Mode)
	assert.Equal(t, int64(20), res.Trace[2].AtMS)
	assert.Equal(t, "idle", res.Final.Mode)
}

func TestRun_PlayButtonIgnoredDuringGrace(t *testing.T) {
	s := &Scenario{
		Name:    "grace",
		Layout:  padLayout(),
		Options: quickOptions(),
		Setup:   oneEventSlot(1000, 0),
		Steps: []Step{
			{Press: intp(9)},
			{Poll: 1},
			{Release: intp(9)},
			{Poll: 1},
			{Press: intp(9)},
			{Poll: 1},
		},
	}

	res, err := Run(s)
	require.NoError(t, err)
	require.True(t, res.Pass, res.Errors)
	assert.Equal(t, "playing", res.Final.Mode)
}

func TestRun_UnexpectedCallOutcome(t *testing.T) {
	s := &Scenario{
		Name:   "call_errors",
		Layout: padLayout(),
		Steps: []Step{
			{Call: CallStopPlayback},
			{Call: CallGotoSlot, Slot: 2, ExpectError: "INVALID_TRANSITION"},
			{Call: CallChangeSlot, Delta: 100, ExpectError: "EMPTY_SLOT"},
		},
		Assertions: []Assertion{{Type: AssertFinalSlot, Slot: 2}},
	}

	res, err := Run(s)
	require.NoError(t, err)
	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 3)
	assert.Contains(t, res.Errors[0], "steps[0]: unexpected error")
	assert.Contains(t, res.Errors[1], "expected error INVALID_TRANSITION, call succeeded")
	assert.Contains(t, res.Errors[2], "expected error EMPTY_SLOT, got INVALID_TRANSITION")
	assert.Equal(t, 2, res.Final.Slot, "assertions still run after failed steps")
}

func TestRun_FailedAssertionReported(t *testing.T) {
	s := &Scenario{
		Name:       "fails",
		Layout:     padLayout(),
		Steps:      []Step{{Poll: 1}},
		Assertions: []Assertion{{Type: AssertFinalSlot, Slot: 2}},
	}

	res, err := Run(s)
	require.NoError(t, err)
	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "assertions[0] (final_slot): expected slot 2, got 1")
}

func TestRun_SetupOutOfRange(t *testing.T) {
	opts := quickOptions()
	opts.MaxSlots = 2
	s := &Scenario{
		Name:    "bad_setup",
		Layout:  padLayout(),
		Options: opts,
		Setup:   []SlotSeed{{Slot: 3, Events: []SeedEvent{{AtMS: 0}}}},
		Steps:   []Step{{Poll: 1}},
	}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[0]")
}

func TestSeedEvents_SortedAndNeutral(t *testing.T) {
	events := seedEvents(padLayout().device(), []SeedEvent{
		{AtMS: 250, Hats: [][2]int{{1, 0}}},
		{AtMS: 100, Pressed: []int{2}, Axes: []float64{-1}},
	})

	require.Len(t, events, 2)
	assert.Equal(t, 0.1, events[0].Time)
	assert.True(t, events[0].State.Pressed(2))
	assert.Equal(t, []float64{-1, 0}, events[0].State.Axes)
	assert.Equal(t, 0.25, events[1].Time)
	assert.Equal(t, 1, events[1].State.Hat(0).X())
	assert.Len(t, events[1].State.Buttons, 11)
}
