package engine

import (
	"log/slog"
	"time"

	"github.com/roach88/replaypad/internal/device"
	"github.com/roach88/replaypad/internal/sequence"
)

// Source is the physical pad the engine samples.
type Source interface {
	Available() bool
	Layout() device.Layout
	Read() (device.State, error)
}

// Sink is the virtual pad the engine replays into.
type Sink interface {
	Available() bool
	Apply(device.State) error
	Reset() error
}

const (
	// DefaultRecordButton is the control that starts and stops recording.
	DefaultRecordButton = 8

	// DefaultPlayButton is the control that starts and aborts playback.
	DefaultPlayButton = 9

	// DefaultInterferenceThreshold is the axis delta against the baseline
	// that counts as the user taking over.
	DefaultInterferenceThreshold = 0.2

	// DefaultSettleDelay is the pause after the last event before a pass ends.
	DefaultSettleDelay = 200 * time.Millisecond

	// DefaultManualStopGrace is how long after a pass starts the play control
	// is ignored.
	DefaultManualStopGrace = 500 * time.Millisecond

	// progressEvery is the event interval between recording progress
	// notifications.
	progressEvery = 10
)

// Synthetic debounce ids for the d-pad slot controls.
const (
	hatUpID   = -1
	hatDownID = -2
)

// Warmup describes the sink reset pulses issued before playback.
type Warmup struct {
	Pulses int
	Gap    time.Duration
	Settle time.Duration
}

// DefaultWarmup is five resets 2ms apart followed by a 50ms pause.
var DefaultWarmup = Warmup{Pulses: 5, Gap: 2 * time.Millisecond, Settle: 50 * time.Millisecond}

// Engine is the recorder/player state machine.
//
// Thread-safety model: none. Poll and every transition method must be
// called from the same goroutine.
//
// INVARIANTS:
//   - exactly one of Idle, Recording, Playing at any time
//   - the recording buffer only exists while Recording
//   - playback bookkeeping only exists while Playing
//   - the active slot only changes while Idle
type Engine struct {
	source    Source
	sink      Sink
	store     *sequence.Store
	clock     Clock
	logger    *slog.Logger
	observers []Observer

	recordButton          int
	playButton            int
	stickDeadzone         float64
	triggerDeadzone       float64
	quantize              bool
	recordTolerance       float64
	significantChange     float64
	interferenceThreshold float64
	settleDelay           float64 // seconds
	manualStopGrace       float64 // seconds
	warmup                Warmup
	loop                  bool
	loopCount             int

	mode     Mode
	slot     int
	debounce map[int]bool

	rec  *recordingState
	play *playbackState

	// last significantly different live state and when it was seen
	lastLive  device.State
	lastInput time.Time
	sawInput  bool

	stats TimingStats
}

// Option configures an Engine.
type Option func(*Engine)

// WithControls sets the record and play control button ids.
func WithControls(record, play int) Option {
	return func(e *Engine) {
		e.recordButton = record
		e.playButton = play
	}
}

// WithDeadzones sets the stick and trigger deadzones.
func WithDeadzones(stick, trigger float64) Option {
	return func(e *Engine) {
		e.stickDeadzone = stick
		e.triggerDeadzone = trigger
	}
}

// WithQuantize enables binary quantization of axes.
func WithQuantize(enabled bool) Option {
	return func(e *Engine) { e.quantize = enabled }
}

// WithRecordTolerance sets the axis tolerance deciding recordable changes.
func WithRecordTolerance(tol float64) Option {
	return func(e *Engine) { e.recordTolerance = tol }
}

// WithSignificantChangeThreshold sets the axis delta that counts as new
// live input for InputIdle. It is independent of the record tolerance.
func WithSignificantChangeThreshold(th float64) Option {
	return func(e *Engine) { e.significantChange = th }
}

// WithInterferenceThreshold sets the axis delta that counts as interference.
func WithInterferenceThreshold(threshold float64) Option {
	return func(e *Engine) { e.interferenceThreshold = threshold }
}

// WithSettleDelay sets the pause after the last event of a pass.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Engine) { e.settleDelay = d.Seconds() }
}

// WithManualStopGrace sets how long the play control is ignored after a
// pass starts.
func WithManualStopGrace(d time.Duration) Option {
	return func(e *Engine) { e.manualStopGrace = d.Seconds() }
}

// WithWarmup sets the sink warm-up sequence.
func WithWarmup(w Warmup) Option {
	return func(e *Engine) { e.warmup = w }
}

// WithLoop sets the loop defaults used when playback starts from the play
// control. loopCount -1 is unlimited.
func WithLoop(enabled bool, loopCount int) Option {
	return func(e *Engine) {
		e.loop = enabled
		e.loopCount = loopCount
	}
}

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// New creates an idle engine on slot 1.
//
// A missing source or sink should be passed as device.Offline rather than
// nil.
func New(src Source, sink Sink, store *sequence.Store, opts ...Option) *Engine {
	e := &Engine{
		source:                src,
		sink:                  sink,
		store:                 store,
		clock:                 WallClock{},
		logger:                slog.Default(),
		recordButton:          DefaultRecordButton,
		playButton:            DefaultPlayButton,
		stickDeadzone:         0.1,
		triggerDeadzone:       0.05,
		quantize:              true,
		recordTolerance:       device.RecordTolerance,
		significantChange:     device.SignificantChangeThreshold,
		interferenceThreshold: DefaultInterferenceThreshold,
		settleDelay:           DefaultSettleDelay.Seconds(),
		manualStopGrace:       DefaultManualStopGrace.Seconds(),
		warmup:                DefaultWarmup,
		loopCount:             -1,
		mode:                  Idle,
		slot:                  1,
		debounce:              make(map[int]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe registers an observer after construction.
func (e *Engine) Subscribe(o Observer) {
	e.observers = append(e.observers, o)
}

// Mode returns the current mode.
func (e *Engine) Mode() Mode { return e.mode }

// Slot returns the active slot.
func (e *Engine) Slot() int { return e.slot }

// Store returns the sequence store.
func (e *Engine) Store() *sequence.Store { return e.store }

// EventCount returns the recording buffer size while recording, and the
// active slot's event count otherwise.
func (e *Engine) EventCount() int {
	if e.mode == Recording {
		return len(e.rec.buffer)
	}
	return e.store.Len(e.slot)
}

// Poll runs one step of the state machine. It never blocks except for the
// warm-up when the play control starts playback.
func (e *Engine) Poll() {
	live, ok := e.sample()
	if ok {
		e.trackInput(live)
	}

	switch e.mode {
	case Idle:
		if ok {
			e.pollIdle(live)
		}
	case Recording:
		if ok {
			e.pollRecording(live)
		}
	case Playing:
		e.pollPlaying(live, ok)
	}
}

// Shutdown ends any active recording (committing it) or playback.
func (e *Engine) Shutdown() {
	switch e.mode {
	case Recording:
		_ = e.StopRecording()
	case Playing:
		_ = e.StopPlayback("shutdown")
	}
}

// sample reads and normalizes one state. Read failures are logged and the
// poll carries on without input.
func (e *Engine) sample() (device.State, bool) {
	raw, err := e.source.Read()
	if err != nil {
		e.logger.Debug("device read failed", "mode", e.mode, "error", err)
		return device.State{}, false
	}
	return device.Normalize(raw, e.stickDeadzone, e.triggerDeadzone, e.quantize), true
}

// trackInput remembers live when it differs significantly from the last
// remembered state.
func (e *Engine) trackInput(live device.State) {
	if e.sawInput && !device.HasSignificantChange(e.lastLive, live, e.significantChange) {
		return
	}
	e.lastLive = live
	e.lastInput = e.clock.Now()
	e.sawInput = true
}

// InputIdle returns how long live input has gone without a significant
// change. ok is false until the first successful read.
func (e *Engine) InputIdle() (d time.Duration, ok bool) {
	if !e.sawInput {
		return 0, false
	}
	return e.clock.Now().Sub(e.lastInput), true
}

func (e *Engine) pollIdle(live device.State) {
	if e.justPressed(e.recordButton, live.Pressed(e.recordButton)) {
		_ = e.StartRecording()
	} else if e.justPressed(e.playButton, live.Pressed(e.playButton)) {
		_ = e.StartPlayback(e.loop, e.loopCount)
	}

	hat := live.Hat(0)
	up := e.justPressed(hatUpID, hat.Y() == 1)
	down := e.justPressed(hatDownID, hat.Y() == -1)
	if e.mode != Idle {
		return
	}
	if up {
		_ = e.ChangeSlot(1)
	}
	if down {
		_ = e.ChangeSlot(-1)
	}
}

// justPressed records the pressed value for id and reports a 0 to 1 edge.
func (e *Engine) justPressed(id int, pressed bool) bool {
	was := e.debounce[id]
	e.debounce[id] = pressed
	return pressed && !was
}

func (e *Engine) notify(n Notification) {
	for _, o := range e.observers {
		o.Notify(n)
	}
}

func (e *Engine) raise(err error) {
	e.notify(ErrorRaised{Err: err})
}
