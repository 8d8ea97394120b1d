//go:build !linux

package evdev

import (
	"fmt"
	"log/slog"

	"github.com/roach88/replaypad/internal/device"
)

// Source is unavailable off Linux.
type Source struct{ device.Offline }

// Open always fails off Linux.
func Open(path string, _ *slog.Logger) (*Source, error) {
	return nil, fmt.Errorf("evdev %s: %w", path, device.ErrUnavailable)
}

// Find always fails off Linux.
func Find() (string, error) {
	return "", fmt.Errorf("evdev: %w", device.ErrUnavailable)
}
