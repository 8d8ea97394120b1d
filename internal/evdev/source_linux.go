//go:build linux

package evdev

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/roach88/replaypad/internal/device"
)

// Source is a gamepad opened through /dev/input/event*. Reads never block:
// each Read drains whatever the kernel has queued and returns the folded
// state.
type Source struct {
	mu     sync.Mutex
	path   string
	name   string
	fd     int
	mapper *Mapper
	buf    []byte
	err    error
	logger *slog.Logger
}

// Open opens the event device at path. An empty path picks the first
// gamepad found by Find.
func Open(path string, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		found, err := Find()
		if err != nil {
			return nil, err
		}
		path = found
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	keys, abs, err := capabilities(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("query %s: %w", path, err)
	}

	s := &Source{
		path:   path,
		name:   deviceName(fd),
		fd:     fd,
		mapper: NewMapper(keys, abs),
		buf:    make([]byte, EventSize*64),
		logger: logger,
	}
	s.resyncKeys()
	logger.Info("gamepad opened", "path", path, "name", s.name, "layout", s.mapper.Layout().String())
	return s, nil
}

// Find returns the first event device that looks like a gamepad: it has
// gamepad or joystick keys and an X axis.
func Find() (string, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return "", fmt.Errorf("scan input devices: %w", err)
	}
	sort.Slice(paths, func(i, j int) bool { return eventNumber(paths[i]) < eventNumber(paths[j]) })

	for _, p := range paths {
		fd, err := unix.Open(p, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			continue
		}
		keys, abs, err := capabilities(fd)
		unix.Close(fd)
		if err != nil {
			continue
		}
		if isGamepad(keys, abs) {
			return p, nil
		}
	}
	return "", fmt.Errorf("no gamepad found: %w", device.ErrUnavailable)
}

func eventNumber(path string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), "event"))
	if err != nil {
		return 1 << 30
	}
	return n
}

// Path is the device node.
func (s *Source) Path() string { return s.path }

// Name is the name the kernel reports for the device.
func (s *Source) Name() string { return s.name }

// Available reports whether the device is still readable.
func (s *Source) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err == nil
}

// Layout is fixed for the life of the source.
func (s *Source) Layout() device.Layout { return s.mapper.Layout() }

// Read drains pending events and returns the current state.
func (s *Source) Read() (device.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return device.State{}, s.err
	}

	for {
		n, err := unix.Read(s.fd, s.buf)
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			break
		}
		if err != nil {
			s.err = fmt.Errorf("read %s: %w", s.path, err)
			s.logger.Warn("gamepad lost", "path", s.path, "err", err)
			return device.State{}, s.err
		}
		if n == 0 {
			break
		}
		for _, e := range Decode(s.buf[:n]) {
			if e.Type == EvSyn && e.Code == SynDropped {
				s.logger.Debug("input events dropped, resyncing", "path", s.path)
				s.resync()
				continue
			}
			s.mapper.Apply(e)
		}
		if n < len(s.buf) {
			break
		}
	}
	return s.mapper.State(), nil
}

// Close releases the device.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	if s.err == nil {
		s.err = device.ErrUnavailable
	}
	return err
}

func (s *Source) resync() {
	s.resyncKeys()
	for _, code := range append(append([]uint16{}, axisOrder...), AbsHat0X, AbsHat0Y) {
		if info, err := absInfo(s.fd, code); err == nil {
			s.mapper.Apply(Event{Type: EvAbs, Code: code, Value: info.Value})
		}
	}
}

func (s *Source) resyncKeys() {
	bits := make([]byte, KeyMax/8+1)
	if err := ioctlBuf(s.fd, eviocgkey(uint32(len(bits))), bits); err != nil {
		return
	}
	s.mapper.SetKeys(func(code uint16) bool { return TestBit(bits, int(code)) })
}

func capabilities(fd int) ([]uint16, map[uint16]AbsInfo, error) {
	keyBits := make([]byte, KeyMax/8+1)
	if err := ioctlBuf(fd, eviocgbit(EvKey, uint32(len(keyBits))), keyBits); err != nil {
		return nil, nil, fmt.Errorf("key bits: %w", err)
	}
	absBits := make([]byte, AbsMax/8+1)
	if err := ioctlBuf(fd, eviocgbit(EvAbs, uint32(len(absBits))), absBits); err != nil {
		return nil, nil, fmt.Errorf("abs bits: %w", err)
	}

	var keys []uint16
	for code := 0; code <= KeyMax; code++ {
		if TestBit(keyBits, code) {
			keys = append(keys, uint16(code))
		}
	}
	abs := make(map[uint16]AbsInfo)
	for code := 0; code <= AbsMax; code++ {
		if !TestBit(absBits, code) {
			continue
		}
		info, err := absInfo(fd, uint16(code))
		if err != nil {
			return nil, nil, fmt.Errorf("abs info %#x: %w", code, err)
		}
		abs[uint16(code)] = info
	}
	return keys, abs, nil
}

func isGamepad(keys []uint16, abs map[uint16]AbsInfo) bool {
	if _, ok := abs[AbsX]; !ok {
		return false
	}
	for _, k := range keys {
		if k == BtnSouth || k == BtnJoystick {
			return true
		}
	}
	return false
}

func absInfo(fd int, code uint16) (AbsInfo, error) {
	var info AbsInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(eviocgabs(uint32(code))), uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		return AbsInfo{}, errno
	}
	return info, nil
}

func deviceName(fd int) string {
	buf := make([]byte, 256)
	if err := ioctlBuf(fd, eviocgname(uint32(len(buf))), buf); err != nil {
		return ""
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

func ioctlBuf(fd int, req uint, buf []byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return errno
	}
	return nil
}
