package harness

import "github.com/roach88/replaypad/internal/device"

// Trace event types.
const (
	EventMode  = "mode"  // engine ModeChanged
	EventSlot  = "slot"  // engine SlotChanged
	EventError = "error" // engine ErrorRaised
	EventApply = "apply" // state written to the virtual pad
	EventReset = "reset" // virtual pad reset
)

// TraceEvent is one entry of a scenario trace. AtMS is the fake clock in
// milliseconds since the scenario started.
type TraceEvent struct {
	AtMS    int64        `json:"at_ms"`
	Type    string       `json:"type"`
	Mode    string       `json:"mode,omitempty"`
	Slot    int          `json:"slot,omitempty"`
	Count   *int         `json:"count,omitempty"`
	Code    string       `json:"code,omitempty"`
	Pressed []int        `json:"pressed,omitempty"`
	Axes    []float64    `json:"axes,omitempty"`
	Hats    []device.Hat `json:"hats,omitempty"`
}

// Final is the engine and store state after the last step.
type Final struct {
	Mode string `json:"mode"`
	Slot int    `json:"slot"`

	// Slots maps each non-empty slot to its event count.
	Slots map[string]int `json:"slots"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace contains notifications and virtual pad writes in order.
	Trace []TraceEvent `json:"trace"`

	// Final is the state after the last step.
	Final Final `json:"final"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  Final{Slots: map[string]int{}},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

func intPtr(n int) *int { return &n }
