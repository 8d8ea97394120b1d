package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/replaypad/internal/device"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Layout is the shape of the scripted pad.
	Layout Layout `yaml:"layout"`

	// Options tune the engine and the store.
	Options Options `yaml:"options,omitempty"`

	// Setup seeds slots before the engine starts.
	Setup []SlotSeed `yaml:"setup,omitempty"`

	// Steps drive the pad, the clock and the engine in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Layout is device.Layout in YAML form.
type Layout struct {
	Buttons int `yaml:"buttons"`
	Axes    int `yaml:"axes"`
	Hats    int `yaml:"hats"`
}

func (l Layout) device() device.Layout {
	return device.Layout{Buttons: l.Buttons, Axes: l.Axes, Hats: l.Hats}
}

// Options tune the engine. Unset fields keep the engine defaults.
type Options struct {
	PollMS    int            `yaml:"poll_ms,omitempty"` // default 10
	MaxSlots  int            `yaml:"max_slots,omitempty"`
	MaxEvents int            `yaml:"max_events,omitempty"`
	SettleMS  *int           `yaml:"settle_ms,omitempty"`
	GraceMS   *int           `yaml:"grace_ms,omitempty"`
	Warmup    *WarmupOptions `yaml:"warmup,omitempty"`

	// Loop and LoopCount apply to playback started from the play button.
	Loop      bool `yaml:"loop,omitempty"`
	LoopCount *int `yaml:"loop_count,omitempty"`
}

// WarmupOptions replaces the engine's sink warm-up.
type WarmupOptions struct {
	Pulses   int `yaml:"pulses"`
	GapMS    int `yaml:"gap_ms,omitempty"`
	SettleMS int `yaml:"settle_ms,omitempty"`
}

// SlotSeed is a slot recorded before the scenario starts.
type SlotSeed struct {
	Slot   int         `yaml:"slot"`
	Name   string      `yaml:"name,omitempty"`
	Events []SeedEvent `yaml:"events"`
}

// SeedEvent is one recorded state. Controls not listed are neutral.
type SeedEvent struct {
	AtMS    int       `yaml:"at_ms"`
	Pressed []int     `yaml:"pressed,omitempty"`
	Axes    []float64 `yaml:"axes,omitempty"`
	Hats    [][2]int  `yaml:"hats,omitempty"`
}

// Step is one scenario action. Exactly one action field must be set.
type Step struct {
	Press     *int      `yaml:"press,omitempty"`
	Release   *int      `yaml:"release,omitempty"`
	Axis      *AxisStep `yaml:"axis,omitempty"`
	Hat       *HatStep  `yaml:"hat,omitempty"`
	Poll      int       `yaml:"poll,omitempty"`
	AdvanceMS int       `yaml:"advance_ms,omitempty"`
	Call      string    `yaml:"call,omitempty"`

	// SourceFailing makes pad reads fail; SinkAvailable toggles the virtual pad.
	SourceFailing *bool `yaml:"source_failing,omitempty"`
	SinkAvailable *bool `yaml:"sink_available,omitempty"`

	// Call arguments.
	Slot      int  `yaml:"slot,omitempty"`
	Delta     int  `yaml:"delta,omitempty"`
	Loop      bool `yaml:"loop,omitempty"`
	LoopCount *int `yaml:"loop_count,omitempty"`

	// ExpectError is the engine error code the call must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// AxisStep sets a raw axis value.
type AxisStep struct {
	Index int     `yaml:"index"`
	Value float64 `yaml:"value"`
}

// HatStep sets a hat direction.
type HatStep struct {
	Index int `yaml:"index,omitempty"`
	X     int `yaml:"x"`
	Y     int `yaml:"y"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Mode is the engine mode (final_mode, and trace matching).
	Mode string `yaml:"mode,omitempty"`

	// Slot is the slot (final_slot, slot_events, and trace matching).
	Slot int `yaml:"slot,omitempty"`

	// Count is the expected number of events or trace entries.
	Count int `yaml:"count,omitempty"`

	// Event is the trace event type (trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Code is the error code to match in error trace events.
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalMode     = "final_mode"
	AssertFinalSlot     = "final_slot"
	AssertSlotEvents    = "slot_events"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
)

// Engine calls.
const (
	CallStartRecording = "start_recording"
	CallStopRecording  = "stop_recording"
	CallStartPlayback  = "start_playback"
	CallStopPlayback   = "stop_playback"
	CallGotoSlot       = "goto_slot"
	CallChangeSlot     = "change_slot"
	CallShutdown       = "shutdown"
)

var knownCalls = map[string]bool{
	CallStartRecording: true,
	CallStopRecording:  true,
	CallStartPlayback:  true,
	CallStopPlayback:   true,
	CallGotoSlot:       true,
	CallChangeSlot:     true,
	CallShutdown:       true,
}

var knownEvents = map[string]bool{
	EventMode:  true,
	EventSlot:  true,
	EventError: true,
	EventApply: true,
	EventReset: true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Layout.Buttons < 0 || s.Layout.Axes < 0 || s.Layout.Hats < 0 {
		return fmt.Errorf("layout counts must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, seed := range s.Setup {
		if seed.Slot < 1 {
			return fmt.Errorf("setup[%d]: slot must be >= 1", i)
		}
		for j, ev := range seed.Events {
			if err := validateSeedEvent(s.Layout, ev); err != nil {
				return fmt.Errorf("setup[%d].events[%d]: %w", i, j, err)
			}
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(s.Layout, step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateSeedEvent(l Layout, ev SeedEvent) error {
	if ev.AtMS < 0 {
		return fmt.Errorf("at_ms must be non-negative")
	}
	for _, b := range ev.Pressed {
		if b < 0 || b >= l.Buttons {
			return fmt.Errorf("button %d outside layout", b)
		}
	}
	if len(ev.Axes) > l.Axes {
		return fmt.Errorf("%d axes for a layout of %d", len(ev.Axes), l.Axes)
	}
	if len(ev.Hats) > l.Hats {
		return fmt.Errorf("%d hats for a layout of %d", len(ev.Hats), l.Hats)
	}
	return nil
}

func validateStep(l Layout, st Step) error {
	actions := 0
	count := func(set bool) {
		if set {
			actions++
		}
	}
	count(st.Press != nil)
	count(st.Release != nil)
	count(st.Axis != nil)
	count(st.Hat != nil)
	count(st.Poll > 0)
	count(st.AdvanceMS > 0)
	count(st.Call != "")
	count(st.SourceFailing != nil)
	count(st.SinkAvailable != nil)
	if actions != 1 {
		return fmt.Errorf("exactly one action is required, got %d", actions)
	}

	switch {
	case st.Press != nil && (*st.Press < 0 || *st.Press >= l.Buttons):
		return fmt.Errorf("button %d outside layout", *st.Press)
	case st.Release != nil && (*st.Release < 0 || *st.Release >= l.Buttons):
		return fmt.Errorf("button %d outside layout", *st.Release)
	case st.Axis != nil && (st.Axis.Index < 0 || st.Axis.Index >= l.Axes):
		return fmt.Errorf("axis %d outside layout", st.Axis.Index)
	case st.Hat != nil && (st.Hat.Index < 0 || st.Hat.Index >= l.Hats):
		return fmt.Errorf("hat %d outside layout", st.Hat.Index)
	case st.Call != "" && !knownCalls[st.Call]:
		return fmt.Errorf("unknown call %q", st.Call)
	case st.ExpectError != "" && st.Call == "":
		return fmt.Errorf("expect_error is only valid on calls")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertFinalMode:
		if a.Mode == "" {
			return fmt.Errorf("mode is required for final_mode")
		}
	case AssertFinalSlot:
		if a.Slot < 1 {
			return fmt.Errorf("slot is required for final_slot")
		}
	case AssertSlotEvents:
		if a.Slot < 1 {
			return fmt.Errorf("slot is required for slot_events")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for slot_events")
		}
	case AssertTraceContains, AssertTraceCount:
		if !knownEvents[a.Event] {
			return fmt.Errorf("unknown trace event %q for %s", a.Event, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for %s", a.Type)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
