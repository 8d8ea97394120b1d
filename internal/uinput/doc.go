// Package uinput replays gamepad states through a virtual Xbox 360 style pad
// created with the Linux uinput module.
//
// Buttons 0-9 map to A, B, X, Y, LB, RB, Back, Start, L3 and R3. Axes 0-3
// are the sticks, scaled to ±32767; axes 4 and 5 are the triggers, scaled
// from [-1, 1] to 0-255. Hat 0 drives the d-pad.
package uinput
