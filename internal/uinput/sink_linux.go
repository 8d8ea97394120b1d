//go:build linux

package uinput

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/roach88/replaypad/internal/device"
	"github.com/roach88/replaypad/internal/evdev"
)

const devicePath = "/dev/uinput"

var (
	uiSetEvBit   = evdev.IOW('U', 100, 4)
	uiSetKeyBit  = evdev.IOW('U', 101, 4)
	uiSetAbsBit  = evdev.IOW('U', 103, 4)
	uiDevCreate  = evdev.IO('U', 1)
	uiDevDestroy = evdev.IO('U', 2)
)

// Sink is a virtual gamepad. Apply and Reset write one full frame each.
type Sink struct {
	mu          sync.Mutex
	fd          int
	name        string
	invertLeftY bool
	logger      *slog.Logger
}

// Open creates the virtual pad and releases every control on it.
func Open(name string, opts ...Option) (*Sink, error) {
	o := buildOptions(opts)

	fd, err := unix.Open(devicePath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", devicePath, err)
	}
	if err := setup(fd, name); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("create virtual pad: %w", err)
	}

	s := &Sink{fd: fd, name: name, invertLeftY: o.invertLeftY, logger: o.logger}
	if err := s.Reset(); err != nil {
		s.Close()
		return nil, err
	}
	o.logger.Info("virtual pad created", "name", name, "invert_left_y", o.invertLeftY)
	return s, nil
}

func setup(fd int, name string) error {
	for _, ev := range []int{evdev.EvKey, evdev.EvAbs, evdev.EvSyn} {
		if err := unix.IoctlSetInt(fd, uiSetEvBit, ev); err != nil {
			return fmt.Errorf("set event bit %#x: %w", ev, err)
		}
	}
	for _, code := range buttonCodes {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, int(code)); err != nil {
			return fmt.Errorf("set key bit %#x: %w", code, err)
		}
	}
	abs := append(append([]uint16{}, stickCodes[:]...), triggerCodes[:]...)
	abs = append(abs, evdev.AbsHat0X, evdev.AbsHat0Y)
	for _, code := range abs {
		if err := unix.IoctlSetInt(fd, uiSetAbsBit, int(code)); err != nil {
			return fmt.Errorf("set abs bit %#x: %w", code, err)
		}
	}
	if _, err := unix.Write(fd, userDevice(name)); err != nil {
		return fmt.Errorf("write device description: %w", err)
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("dev create: %w", err)
	}
	return nil
}

// Available reports whether the pad is open.
func (s *Sink) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fd >= 0
}

// Apply puts the pad in state st.
func (s *Sink) Apply(st device.State) error {
	return s.write(Frame(st, s.invertLeftY))
}

// Reset releases every control.
func (s *Sink) Reset() error {
	return s.write(Frame(Neutral(), false))
}

func (s *Sink) write(events []evdev.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return device.ErrUnavailable
	}
	if _, err := unix.Write(s.fd, evdev.Encode(events)); err != nil {
		return fmt.Errorf("write virtual pad: %w", err)
	}
	return nil
}

// Close destroys the virtual pad.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return nil
	}
	if err := unix.IoctlSetInt(s.fd, uiDevDestroy, 0); err != nil {
		s.logger.Warn("destroy virtual pad", "name", s.name, "err", err)
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}
