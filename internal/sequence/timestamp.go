package sequence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// naiveISO is the timezone-less ISO 8601 form older recordings were written
// with. Such timestamps are read as local time.
const naiveISO = "2006-01-02T15:04:05.999999999"

// Timestamp is a wall-clock instant stored as an RFC 3339 string. The zero
// Timestamp means "unset" and is written as null.
type Timestamp struct {
	time.Time
}

// At wraps t, dropping the monotonic reading so round trips compare equal.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t.Round(0)}
}

// IsSet reports whether ts holds a time.
func (ts Timestamp) IsSet() bool {
	return !ts.Time.IsZero()
}

// MarshalJSON writes RFC 3339 with nanoseconds, or null when unset.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if !ts.IsSet() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts null, RFC 3339, or a naive ISO 8601 timestamp.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*ts = Timestamp{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		*ts = Timestamp{}
		return nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		*ts = Timestamp{Time: t}
		return nil
	}
	t, err := time.ParseInLocation(naiveISO, s, time.Local)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	*ts = Timestamp{Time: t}
	return nil
}
