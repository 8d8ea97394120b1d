package harness

import (
	"fmt"
	"strconv"
)

// checkAssertion evaluates a single assertion against a finished run.
func checkAssertion(res *Result, a Assertion) error {
	switch a.Type {
	case AssertFinalMode:
		if res.Final.Mode != a.Mode {
			return fmt.Errorf("expected mode %s, got %s", a.Mode, res.Final.Mode)
		}
	case AssertFinalSlot:
		if res.Final.Slot != a.Slot {
			return fmt.Errorf("expected slot %d, got %d", a.Slot, res.Final.Slot)
		}
	case AssertSlotEvents:
		got := res.Final.Slots[strconv.Itoa(a.Slot)]
		if got != a.Count {
			return fmt.Errorf("expected %d events in slot %d, got %d", a.Count, a.Slot, got)
		}
	case AssertTraceContains:
		if countMatches(res.Trace, a) == 0 {
			return fmt.Errorf("no %s event matching %s", a.Event, describe(a))
		}
	case AssertTraceCount:
		if got := countMatches(res.Trace, a); got != a.Count {
			return fmt.Errorf("expected %d %s events matching %s, got %d", a.Count, a.Event, describe(a), got)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func countMatches(trace []TraceEvent, a Assertion) int {
	n := 0
	for _, ev := range trace {
		if matches(ev, a) {
			n++
		}
	}
	return n
}

// matches reports whether ev has the assertion's type and every filter the
// assertion sets.
func matches(ev TraceEvent, a Assertion) bool {
	if ev.Type != a.Event {
		return false
	}
	if a.Mode != "" && ev.Mode != a.Mode {
		return false
	}
	if a.Slot != 0 && ev.Slot != a.Slot {
		return false
	}
	if a.Code != "" && ev.Code != a.Code {
		return false
	}
	return true
}

func describe(a Assertion) string {
	s := "{"
	sep := ""
	if a.Mode != "" {
		s += "mode=" + a.Mode
		sep = " "
	}
	if a.Slot != 0 {
		s += sep + "slot=" + strconv.Itoa(a.Slot)
		sep = " "
	}
	if a.Code != "" {
		s += sep + "code=" + a.Code
	}
	return s + "}"
}
