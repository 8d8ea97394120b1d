// Package harness runs scripted engine scenarios for conformance tests.
//
// A scenario drives the real engine with a scripted physical pad, a fake
// clock and a tracing virtual pad, then checks assertions against the
// resulting trace and final state. Traces are compared against golden files.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: record_then_replay
//	description: "Record two events, then play them back"
//	layout: { buttons: 11, axes: 2, hats: 1 }
//	options:
//	  poll_ms: 10
//	  warmup: { pulses: 1 }
//	setup:
//	  - slot: 1
//	    events:
//	      - { at_ms: 10, pressed: [0] }
//	steps:
//	  - press: 8
//	  - poll: 1
//	  - call: start_playback
//	    expect_error: EMPTY_SLOT
//	  - advance_ms: 200
//	assertions:
//	  - type: final_mode
//	    mode: idle
//	  - type: trace_count
//	    event: reset
//	    count: 2
//
// Each step does exactly one thing. poll: N polls N times and advances the
// clock by poll_ms after each poll, so events land at predictable times.
//
// # Calls
//
// The call step invokes an engine operation directly: start_recording,
// stop_recording, start_playback (loop, loop_count), stop_playback,
// goto_slot (slot), change_slot (delta) and shutdown. A call that fails
// without a matching expect_error fails the scenario.
//
// # Assertion Types
//
//   - final_mode: the engine ends in mode
//   - final_slot: the engine ends on slot
//   - slot_events: slot holds count events at the end
//   - trace_contains: an event of the given type (and mode, slot, code when set) was traced
//   - trace_count: exactly count such events were traced
//
// # Deterministic Testing
//
// The clock only moves through poll, advance_ms and the engine's own
// warm-up sleeps, so identical scenarios produce identical traces.
package harness
