// Package evdev reads a physical gamepad through the Linux event interface.
//
// Raw kernel events are folded into a device.State by a Mapper, which orders
// buttons and axes the way common desktop gamepad APIs do (A, B, X, Y, LB,
// RB, Back, Start, L3, R3; LX, LY, RX, RY, LT, RT) so recordings stay
// portable. The Source itself only exists on Linux; elsewhere Open reports
// device.ErrUnavailable.
package evdev
