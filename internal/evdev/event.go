package evdev

import (
	"encoding/binary"
	"fmt"
)

// Event types.
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvAbs = 0x03
)

// Sync codes.
const (
	SynReport  = 0x00
	SynDropped = 0x03
)

// Gamepad key codes.
const (
	BtnJoystick = 0x120
	BtnSouth    = 0x130
	BtnEast     = 0x131
	BtnC        = 0x132
	BtnNorth    = 0x133
	BtnWest     = 0x134
	BtnZ        = 0x135
	BtnTL       = 0x136
	BtnTR       = 0x137
	BtnTL2      = 0x138
	BtnTR2      = 0x139
	BtnSelect   = 0x13a
	BtnStart    = 0x13b
	BtnMode     = 0x13c
	BtnThumbL   = 0x13d
	BtnThumbR   = 0x13e

	BtnDpadUp    = 0x220
	BtnDpadDown  = 0x221
	BtnDpadLeft  = 0x222
	BtnDpadRight = 0x223

	KeyMax = 0x2ff
)

// Absolute axis codes.
const (
	AbsX     = 0x00
	AbsY     = 0x01
	AbsZ     = 0x02
	AbsRX    = 0x03
	AbsRY    = 0x04
	AbsRZ    = 0x05
	AbsHat0X = 0x10
	AbsHat0Y = 0x11

	AbsMax = 0x3f
)

// EventSize is the size of struct input_event on 64-bit kernels: a 16 byte
// timeval followed by type, code and value.
const EventSize = 24

// Event is one kernel input event without its timestamp.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

func (e Event) String() string {
	return fmt.Sprintf("type=%#x code=%#x value=%d", e.Type, e.Code, e.Value)
}

// Decode splits buf into events. Trailing bytes that do not fill a whole
// event are ignored.
func Decode(buf []byte) []Event {
	out := make([]Event, 0, len(buf)/EventSize)
	for len(buf) >= EventSize {
		out = append(out, Event{
			Type:  binary.LittleEndian.Uint16(buf[16:18]),
			Code:  binary.LittleEndian.Uint16(buf[18:20]),
			Value: int32(binary.LittleEndian.Uint32(buf[20:24])),
		})
		buf = buf[EventSize:]
	}
	return out
}

// Encode writes events in wire form with a zero timestamp; the kernel stamps
// events injected through uinput itself.
func Encode(events []Event) []byte {
	buf := make([]byte, len(events)*EventSize)
	for i, e := range events {
		b := buf[i*EventSize:]
		binary.LittleEndian.PutUint16(b[16:18], e.Type)
		binary.LittleEndian.PutUint16(b[18:20], e.Code)
		binary.LittleEndian.PutUint32(b[20:24], uint32(e.Value))
	}
	return buf
}

// AbsInfo mirrors struct input_absinfo.
type AbsInfo struct {
	Value      int32
	Min        int32
	Max        int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// TestBit reports whether bit n is set in a kernel capability bitmap.
func TestBit(bits []byte, n int) bool {
	if n < 0 || n/8 >= len(bits) {
		return false
	}
	return bits[n/8]&(1<<(uint(n)%8)) != 0
}

// ioctl request encoding (Linux _IOC macro).
const (
	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

// IOC builds an ioctl request number.
func IOC(dir, typ, nr, size uint32) uint {
	return uint(dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift)
}

// IO is _IO(typ, nr).
func IO(typ, nr uint32) uint { return IOC(iocNone, typ, nr, 0) }

// IOW is _IOW(typ, nr, size).
func IOW(typ, nr, size uint32) uint { return IOC(iocWrite, typ, nr, size) }

func eviocgbit(ev, size uint32) uint { return IOC(iocRead, 'E', 0x20+ev, size) }
func eviocgabs(abs uint32) uint     { return IOC(iocRead, 'E', 0x40+abs, 24) }
func eviocgname(size uint32) uint   { return IOC(iocRead, 'E', 0x06, size) }
func eviocgkey(size uint32) uint    { return IOC(iocRead, 'E', 0x18, size) }
