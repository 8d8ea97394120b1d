// Package engine implements the replaypad recorder/player.
//
// The engine is the heart of replaypad - it samples a physical gamepad,
// records changed states into the active slot, replays slots against a
// virtual pad and hands control back to recording when the user grabs the
// controller mid-playback.
//
// ARCHITECTURE:
//
// Single-Threaded Poll Loop:
// The caller invokes Engine.Poll once per frame. Each poll reads one sample
// from the Source, normalizes it and dispatches on the current mode:
//
//   - Idle: record/play control edges start a mode, d-pad up/down changes slot
//   - Recording: record control edge commits; otherwise changed samples append
//   - Playing: due events are applied, then loop/finish, manual abort and
//     interference checks run
//
// There are no goroutines or locks. Observers are called inline from Poll,
// so an Observer must not call back into the engine.
//
// Timing:
// All timestamps come from the Clock. WallClock is used in production and a
// fake clock in tests, which makes warm-up pauses and playback scheduling
// fully deterministic under test.
//
// Interference:
// While playing, the live sample is compared against the baseline taken at
// playback start. A new button press (other than the controls), an axis
// moved beyond the interference threshold, or any hat change switches to
// Recording with the already-played prefix kept and the recording clock
// back-dated so the new input continues right after it.
package engine
