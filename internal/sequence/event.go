package sequence

import (
	"fmt"

	"github.com/roach88/replaypad/internal/device"
)

// Event is one recorded state change. Time is seconds since the start of
// the recording that produced it.
type Event struct {
	Time  float64      `json:"time"`
	State device.State `json:"state"`
}

// Metadata describes the content of a slot.
type Metadata struct {
	Name       string    `json:"name"`
	CreatedAt  Timestamp `json:"created_at"`
	ModifiedAt Timestamp `json:"modified_at"`
	EventCount int       `json:"event_count"`
	Duration   float64   `json:"duration"`
}

// Summary is a one-line description of a slot.
type Summary struct {
	Slot       int     `json:"slot"`
	Name       string  `json:"name"`
	EventCount int     `json:"event_count"`
	Duration   float64 `json:"duration"`
}

// Duration returns the time of the last event, or 0 for no events.
func Duration(events []Event) float64 {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].Time
}

// CheckMonotonic returns an error if event times are negative or decrease.
func CheckMonotonic(events []Event) error {
	prev := 0.0
	for i, ev := range events {
		if ev.Time < prev {
			return fmt.Errorf("event %d at %.4fs precedes previous event at %.4fs", i, ev.Time, prev)
		}
		prev = ev.Time
	}
	return nil
}

// cloneEvents copies the slice header contents. States are shared; they are
// immutable by convention.
func cloneEvents(events []Event) []Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}
