package device

// Offline stands in for a source or sink that could not be opened. It
// reports itself unavailable and fails every operation with ErrUnavailable,
// so callers never have to nil-check a capability.
type Offline struct {
	// Reason is logged by callers that want to explain why.
	Reason string
}

// Available always returns false.
func (Offline) Available() bool { return false }

// Layout returns the empty layout.
func (Offline) Layout() Layout { return Layout{} }

// Read always fails.
func (Offline) Read() (State, error) { return State{}, ErrUnavailable }

// Apply always fails.
func (Offline) Apply(State) error { return ErrUnavailable }

// Reset always fails.
func (Offline) Reset() error { return ErrUnavailable }

// Close is a no-op.
func (Offline) Close() error { return nil }
