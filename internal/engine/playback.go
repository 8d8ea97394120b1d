package engine

import (
	"math"
	"time"

	"github.com/roach88/replaypad/internal/device"
	"github.com/roach88/replaypad/internal/sequence"
)

type playbackState struct {
	events      []sequence.Event
	cursor      int
	start       time.Time
	baseline    device.State
	hasBaseline bool
	loop        bool
	maxLoops    int
	loops       int
}

// TimingStats summarizes how late events were applied during the last
// playback, in milliseconds.
type TimingStats struct {
	Count int
	Avg   float64
	Min   float64
	Max   float64
}

func (s *TimingStats) add(ms float64) {
	if s.Count == 0 {
		s.Min, s.Max = ms, ms
	} else {
		s.Min = math.Min(s.Min, ms)
		s.Max = math.Max(s.Max, ms)
	}
	s.Avg += (ms - s.Avg) / float64(s.Count+1)
	s.Count++
}

// TimingStats returns the scheduling statistics of the current or last
// playback.
func (e *Engine) TimingStats() TimingStats { return e.stats }

// StartPlayback replays the active slot. loopCount is the number of extra
// passes when loop is set; -1 repeats until stopped.
//
// Playback requires Idle, a non-empty slot and an available sink. Empty
// slot and sink errors are also raised to observers. On success the sink
// is warmed up before the first pass begins.
func (e *Engine) StartPlayback(loop bool, loopCount int) error {
	if e.mode != Idle {
		e.logger.Warn("cannot start playback", "mode", e.mode)
		return newTransitionError("start playback", e.mode, e.slot)
	}

	events := e.store.Get(e.slot)
	if len(events) == 0 {
		err := &Error{Code: ErrCodeEmptySlot, Message: "no recording in slot", Slot: e.slot}
		e.logger.Warn("slot is empty", "slot", e.slot)
		e.raise(err)
		return err
	}
	if !e.sink.Available() {
		err := &Error{Code: ErrCodeSinkUnavailable, Message: "virtual pad unavailable", Slot: e.slot}
		e.logger.Error("virtual pad unavailable")
		e.raise(err)
		return err
	}

	e.warmupSink()

	p := &playbackState{
		events:   events,
		start:    e.clock.Now(),
		loop:     loop,
		maxLoops: loopCount,
	}
	if live, ok := e.sample(); ok {
		p.baseline = live
		p.hasBaseline = true
	}

	e.play = p
	e.stats = TimingStats{}
	e.mode = Playing
	e.logger.Info("playback started", "slot", e.slot, "events", len(events), "loop", loop, "loop_count", loopCount)
	e.notify(ModeChanged{Mode: Playing, Slot: e.slot, EventCount: len(events)})
	return nil
}

// StopPlayback resets the sink and returns to Idle.
func (e *Engine) StopPlayback(reason string) error {
	if e.mode != Playing {
		return newTransitionError("stop playback", e.mode, e.slot)
	}

	e.resetSink()
	e.play = nil
	e.mode = Idle

	e.logger.Info("playback stopped", "slot", e.slot, "reason", reason)
	if e.stats.Count > 0 {
		e.logger.Debug("timing stats",
			"events", e.stats.Count,
			"avg_ms", e.stats.Avg,
			"min_ms", e.stats.Min,
			"max_ms", e.stats.Max,
		)
	}

	e.notify(ModeChanged{Mode: Idle, Slot: e.slot, EventCount: e.store.Len(e.slot)})
	return nil
}

func (e *Engine) warmupSink() {
	for i := 0; i < e.warmup.Pulses; i++ {
		e.resetSink()
		e.clock.Sleep(e.warmup.Gap)
	}
	e.clock.Sleep(e.warmup.Settle)
}

func (e *Engine) resetSink() {
	if err := e.sink.Reset(); err != nil {
		e.logger.Warn("virtual pad reset failed", "error", err)
	}
}

// pollPlaying applies due events, then handles the end of a pass, the
// manual abort and interference. Without a live sample only the scheduled
// work runs.
func (e *Engine) pollPlaying(live device.State, ok bool) {
	p := e.play
	elapsed := seconds(p.start, e.clock.Now())

	for p.cursor < len(p.events) {
		ev := p.events[p.cursor]
		if ev.Time > elapsed {
			break
		}
		e.stats.add((elapsed - ev.Time) * 1000)
		if err := e.sink.Apply(ev.State); err != nil {
			e.logger.Warn("apply failed", "cursor", p.cursor, "error", err)
		}
		p.cursor++
	}

	if p.cursor >= len(p.events) {
		last := p.events[len(p.events)-1].Time
		if elapsed-last >= e.settleDelay {
			if p.loop && (p.maxLoops < 0 || p.loops < p.maxLoops) {
				p.cursor = 0
				p.start = e.clock.Now()
				p.loops++
				elapsed = 0
				e.logger.Debug("playback repeat", "loop", p.loops)
			} else {
				_ = e.StopPlayback("completed")
				return
			}
		}
	}

	if !ok {
		return
	}
	if !p.hasBaseline {
		p.baseline = live
		p.hasBaseline = true
		return
	}

	if elapsed > e.manualStopGrace && e.justPressed(e.playButton, live.Pressed(e.playButton)) {
		_ = e.StopPlayback("stopped manually")
		return
	}

	if e.interferes(p.baseline, live) {
		prefix := p.events[:p.cursor]
		e.logger.Info("interference detected, continuing recording", "slot", e.slot, "played", len(prefix))
		e.resetSink()
		e.play = nil
		e.continueRecording(prefix, elapsed)
	}
}

// interferes reports whether live shows the user taking over from baseline.
// Only new button presses count, so a button held since playback started
// and then released is not interference.
func (e *Engine) interferes(baseline, live device.State) bool {
	n := min(len(baseline.Buttons), len(live.Buttons))
	for i := 0; i < n; i++ {
		if i == e.recordButton || i == e.playButton {
			continue
		}
		if !baseline.Buttons[i] && live.Buttons[i] {
			e.logger.Debug("interference", "button", i)
			return true
		}
	}

	n = min(len(baseline.Axes), len(live.Axes))
	for i := 0; i < n; i++ {
		if math.Abs(live.Axes[i]-baseline.Axes[i]) > e.interferenceThreshold {
			e.logger.Debug("interference", "axis", i)
			return true
		}
	}

	if len(baseline.Hats) != len(live.Hats) {
		return true
	}
	for i := range baseline.Hats {
		if baseline.Hats[i] != live.Hats[i] {
			e.logger.Debug("interference", "hat", i)
			return true
		}
	}
	return false
}
