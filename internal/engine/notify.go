package engine

// Mode is the recorder/player mode.
type Mode int

const (
	Idle Mode = iota
	Recording
	Playing
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Notification is an event emitted synchronously from the engine.
// Implemented by ModeChanged, SlotChanged and ErrorRaised.
type Notification interface {
	notification()
}

// ModeChanged is emitted on every mode transition and every tenth recorded
// event. EventCount is the buffer size while recording and the slot size
// otherwise.
type ModeChanged struct {
	Mode       Mode
	Slot       int
	EventCount int
}

// SlotChanged is emitted when the active slot changes.
type SlotChanged struct {
	Slot       int
	EventCount int
}

// ErrorRaised is emitted for errors the user should see.
type ErrorRaised struct {
	Err error
}

func (ModeChanged) notification() {}
func (SlotChanged) notification() {}
func (ErrorRaised) notification() {}

// Observer receives engine notifications. Notify is called from within
// Poll and the transition methods and must not call back into the engine.
type Observer interface {
	Notify(n Notification)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(n Notification)

// Notify calls f(n).
func (f ObserverFunc) Notify(n Notification) { f(n) }
