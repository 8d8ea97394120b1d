//go:build !linux

package uinput

import (
	"fmt"

	"github.com/roach88/replaypad/internal/device"
)

// Sink is unavailable off Linux.
type Sink struct{ device.Offline }

// Open always fails off Linux.
func Open(name string, opts ...Option) (*Sink, error) {
	_ = buildOptions(opts)
	return nil, fmt.Errorf("uinput %q: %w", name, device.ErrUnavailable)
}
