package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/roach88/replaypad/internal/device"
	"github.com/roach88/replaypad/internal/engine"
	"github.com/roach88/replaypad/internal/sequence"
	"github.com/roach88/replaypad/internal/testutil"
)

// defaultPollMS is the poll step when a scenario sets none.
const defaultPollMS = 10

// runner holds the state of one scenario execution.
type runner struct {
	scenario *Scenario
	clock    *testutil.FakeClock
	source   *testutil.ScriptedSource
	sink     *traceSink
	store    *sequence.Store
	engine   *engine.Engine
	result   *Result
	pollStep time.Duration
}

// Run executes a scenario and returns the trace, the final state and the
// assertion outcome. The error is only non-nil when the scenario could not
// be set up; failed steps and assertions are reported in Result.Errors.
func Run(s *Scenario) (*Result, error) {
	if s == nil {
		return nil, errors.New("nil scenario")
	}

	r, err := newRunner(s)
	if err != nil {
		return nil, err
	}

	for i, step := range s.Steps {
		if err := r.step(step); err != nil {
			r.result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
		}
	}

	r.result.Final = r.final()

	for i, a := range s.Assertions {
		if err := checkAssertion(r.result, a); err != nil {
			r.result.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return r.result, nil
}

func newRunner(s *Scenario) (*runner, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewFakeClock()
	layout := s.Layout.device()

	r := &runner{
		scenario: s,
		clock:    clock,
		source:   testutil.NewScriptedSource(layout),
		result:   NewResult(),
		pollStep: time.Duration(defaultPollMS) * time.Millisecond,
	}
	r.sink = &traceSink{runner: r, available: true}
	if s.Options.PollMS > 0 {
		r.pollStep = time.Duration(s.Options.PollMS) * time.Millisecond
	}

	storeOpts := []sequence.Option{
		sequence.WithClock(clock.Now),
		sequence.WithLogger(logger),
	}
	if s.Options.MaxSlots > 0 {
		storeOpts = append(storeOpts, sequence.WithMaxSlots(s.Options.MaxSlots))
	}
	if s.Options.MaxEvents > 0 {
		storeOpts = append(storeOpts, sequence.WithMaxEvents(s.Options.MaxEvents))
	}
	r.store = sequence.New(storeOpts...)

	for i, seed := range s.Setup {
		if err := r.store.Set(seed.Slot, seedEvents(layout, seed.Events), seed.Name); err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	r.engine = engine.New(r.source, r.sink, r.store, r.engineOptions(logger)...)
	return r, nil
}

func (r *runner) engineOptions(logger *slog.Logger) []engine.Option {
	o := r.scenario.Options
	opts := []engine.Option{
		engine.WithClock(r.clock),
		engine.WithLogger(logger),
		engine.WithObserver(r),
	}
	if o.SettleMS != nil {
		opts = append(opts, engine.WithSettleDelay(ms(*o.SettleMS)))
	}
	if o.GraceMS != nil {
		opts = append(opts, engine.WithManualStopGrace(ms(*o.GraceMS)))
	}
	if o.Warmup != nil {
		opts = append(opts, engine.WithWarmup(engine.Warmup{
			Pulses: o.Warmup.Pulses,
			Gap:    ms(o.Warmup.GapMS),
			Settle: ms(o.Warmup.SettleMS),
		}))
	}
	loopCount := -1
	if o.LoopCount != nil {
		loopCount = *o.LoopCount
	}
	opts = append(opts, engine.WithLoop(o.Loop, loopCount))
	return opts
}

func (r *runner) step(st Step) error {
	switch {
	case st.Press != nil:
		r.source.Press(*st.Press)
	case st.Release != nil:
		r.source.Release(*st.Release)
	case st.Axis != nil:
		r.source.SetAxis(st.Axis.Index, st.Axis.Value)
	case st.Hat != nil:
		r.source.SetHat(st.Hat.Index, device.Hat{st.Hat.X, st.Hat.Y})
	case st.Poll > 0:
		for i := 0; i < st.Poll; i++ {
			r.engine.Poll()
			r.clock.Advance(r.pollStep)
		}
	case st.AdvanceMS > 0:
		r.clock.Advance(ms(st.AdvanceMS))
	case st.SourceFailing != nil:
		r.source.SetFailing(*st.SourceFailing)
	case st.SinkAvailable != nil:
		r.sink.available = *st.SinkAvailable
	case st.Call != "":
		return expectCall(r.call(st), st.ExpectError)
	}
	return nil
}

func (r *runner) call(st Step) error {
	e := r.engine
	switch st.Call {
	case CallStartRecording:
		return e.StartRecording()
	case CallStopRecording:
		return e.StopRecording()
	case CallStartPlayback:
		loopCount := -1
		if st.LoopCount != nil {
			loopCount = *st.LoopCount
		}
		return e.StartPlayback(st.Loop, loopCount)
	case CallStopPlayback:
		return e.StopPlayback("scenario")
	case CallGotoSlot:
		return e.GotoSlot(st.Slot)
	case CallChangeSlot:
		return e.ChangeSlot(st.Delta)
	case CallShutdown:
		e.Shutdown()
		return nil
	}
	return fmt.Errorf("unknown call %q", st.Call)
}

// expectCall compares a call outcome with the expected error code.
func expectCall(err error, want string) error {
	switch {
	case want == "" && err != nil:
		return fmt.Errorf("unexpected error: %w", err)
	case want != "" && err == nil:
		return fmt.Errorf("expected error %s, call succeeded", want)
	case want != "" && string(engine.CodeOf(err)) != want:
		return fmt.Errorf("expected error %s, got %s (%v)", want, engine.CodeOf(err), err)
	}
	return nil
}

// Notify records engine notifications in the trace.
func (r *runner) Notify(n engine.Notification) {
	ev := TraceEvent{AtMS: r.now()}
	switch n := n.(type) {
	case engine.ModeChanged:
		ev.Type = EventMode
		ev.Mode = n.Mode.String()
		ev.Slot = n.Slot
		ev.Count = intPtr(n.EventCount)
	case engine.SlotChanged:
		ev.Type = EventSlot
		ev.Slot = n.Slot
		ev.Count = intPtr(n.EventCount)
	case engine.ErrorRaised:
		ev.Type = EventError
		ev.Code = string(engine.CodeOf(n.Err))
	default:
		return
	}
	r.result.add(ev)
}

func (r *runner) now() int64 {
	return r.clock.Now().Sub(testutil.Epoch).Milliseconds()
}

func (r *runner) final() Final {
	f := Final{
		Mode:  r.engine.Mode().String(),
		Slot:  r.engine.Slot(),
		Slots: map[string]int{},
	}
	for _, sum := range r.store.Summary() {
		if sum.EventCount > 0 {
			f.Slots[strconv.Itoa(sum.Slot)] = sum.EventCount
		}
	}
	return f
}

// traceSink is the virtual pad of a scenario. Every write lands in the
// trace.
type traceSink struct {
	runner    *runner
	available bool
}

func (s *traceSink) Available() bool { return s.available }

func (s *traceSink) Apply(st device.State) error {
	if !s.available {
		return device.ErrUnavailable
	}
	s.runner.result.add(TraceEvent{
		AtMS:    s.runner.now(),
		Type:    EventApply,
		Pressed: pressed(st),
		Axes:    append([]float64(nil), st.Axes...),
		Hats:    append([]device.Hat(nil), st.Hats...),
	})
	return nil
}

func (s *traceSink) Reset() error {
	if !s.available {
		return device.ErrUnavailable
	}
	s.runner.result.add(TraceEvent{AtMS: s.runner.now(), Type: EventReset})
	return nil
}

func pressed(st device.State) []int {
	var ids []int
	for i, b := range st.Buttons {
		if b {
			ids = append(ids, i)
		}
	}
	return ids
}

func seedEvents(l device.Layout, seeds []SeedEvent) []sequence.Event {
	sorted := append([]SeedEvent(nil), seeds...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AtMS < sorted[j].AtMS })

	events := make([]sequence.Event, 0, len(sorted))
	for _, se := range sorted {
		st := device.NewState(l)
		for _, b := range se.Pressed {
			st.Buttons[b] = true
		}
		copy(st.Axes, se.Axes)
		for i, h := range se.Hats {
			st.Hats[i] = device.Hat(h)
		}
		events = append(events, sequence.Event{Time: float64(se.AtMS) / 1000.0, State: st})
	}
	return events
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
