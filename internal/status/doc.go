// Package status publishes engine notifications to websocket clients.
//
// Every message is a JSON text frame with the envelope {type, ts, data}.
// A client receives "state_init" on connect, followed by "mode_changed",
// "slot_changed" and "error" as the engine emits them.
package status
