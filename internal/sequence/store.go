package sequence

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxSlots is the number of slots when none is configured.
	DefaultMaxSlots = 30

	// DefaultMaxEvents is the per-slot event limit when none is configured.
	DefaultMaxEvents = 100000

	// DefaultFileName is the store file name inside the recordings directory.
	DefaultFileName = "sequences.json"
)

// CommitHook is called after a slot has been replaced by Set. It receives
// the slot, the committed events and the updated metadata. Hooks must not
// modify events.
type CommitHook func(slot int, events []Event, meta Metadata)

type slotData struct {
	events []Event
	meta   Metadata
}

// Store holds every slot in memory. It is not safe for concurrent use; the
// recorder owns it from a single goroutine.
type Store struct {
	maxSlots    int
	maxEvents   int
	autoPersist bool
	path        string
	now         func() time.Time
	logger      *slog.Logger
	hooks       []CommitHook

	slots []slotData // index 0 is slot 1
}

// Option configures a Store.
type Option func(*Store)

// WithMaxSlots sets the number of slots.
func WithMaxSlots(n int) Option {
	return func(s *Store) { s.maxSlots = n }
}

// WithMaxEvents sets the per-slot event limit.
func WithMaxEvents(n int) Option {
	return func(s *Store) { s.maxEvents = n }
}

// WithAutoPersist saves the store to path after every non-empty Set.
func WithAutoPersist(enabled bool) Option {
	return func(s *Store) { s.autoPersist = enabled }
}

// WithPath sets the default store file used by auto-persist and Path.
func WithPath(path string) Option {
	return func(s *Store) { s.path = path }
}

// WithClock overrides the wall clock used for metadata timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithCommitHook registers a hook called after each successful Set.
func WithCommitHook(h CommitHook) Option {
	return func(s *Store) { s.hooks = append(s.hooks, h) }
}

// New creates a store with every slot empty.
func New(opts ...Option) *Store {
	s := &Store{
		maxSlots:  DefaultMaxSlots,
		maxEvents: DefaultMaxEvents,
		path:      filepath.Join("recordings", DefaultFileName),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxSlots < 1 {
		s.maxSlots = 1
	}
	s.slots = make([]slotData, s.maxSlots)
	return s
}

// MaxSlots returns the number of slots.
func (s *Store) MaxSlots() int { return s.maxSlots }

// MaxEvents returns the per-slot event limit.
func (s *Store) MaxEvents() int { return s.maxEvents }

// Path returns the default store file.
func (s *Store) Path() string { return s.path }

// InRange reports whether slot is a valid slot id.
func (s *Store) InRange(slot int) bool {
	return slot >= 1 && slot <= s.maxSlots
}

// Get returns the events of slot. Unknown and empty slots return nil. The
// returned slice is owned by the store and must not be modified.
func (s *Store) Get(slot int) []Event {
	if !s.InRange(slot) {
		s.logger.Warn("get of non-existent slot", "slot", slot)
		return nil
	}
	return s.slots[slot-1].events
}

// Len returns the number of events in slot.
func (s *Store) Len(slot int) int {
	return len(s.Get(slot))
}

// Metadata returns a copy of the metadata of slot.
func (s *Store) Metadata(slot int) (Metadata, bool) {
	if !s.InRange(slot) {
		return Metadata{}, false
	}
	return s.slots[slot-1].meta, true
}

// Set replaces the events of slot. An empty name keeps the current name.
//
// Set fails without touching the slot when slot is out of range or events
// exceeds the per-slot limit. When auto-persist is on and events is
// non-empty, the whole store is saved without a backup; a failed save is
// logged and does not fail Set.
func (s *Store) Set(slot int, events []Event, name string) error {
	if !s.InRange(slot) {
		return fmt.Errorf("set slot %d: %w", slot, ErrSlotOutOfRange)
	}
	if len(events) > s.maxEvents {
		return fmt.Errorf("set slot %d: %d > %d: %w", slot, len(events), s.maxEvents, ErrCapacityExceeded)
	}

	now := At(s.now())
	sd := &s.slots[slot-1]
	sd.events = cloneEvents(events)

	if !sd.meta.CreatedAt.IsSet() {
		sd.meta.CreatedAt = now
	}
	if name != "" {
		sd.meta.Name = norm.NFC.String(name)
	}
	sd.meta.ModifiedAt = now
	sd.meta.EventCount = len(sd.events)
	sd.meta.Duration = Duration(sd.events)

	s.logger.Info("slot updated", "slot", slot, "events", sd.meta.EventCount, "duration", sd.meta.Duration)

	for _, h := range s.hooks {
		h(slot, sd.events, sd.meta)
	}

	if s.autoPersist && len(sd.events) > 0 {
		if err := s.Save(s.path, false); err != nil {
			s.logger.Error("auto-save failed", "path", s.path, "error", err)
		}
	}

	return nil
}

// Clear empties slot and resets its metadata.
func (s *Store) Clear(slot int) error {
	if !s.InRange(slot) {
		return fmt.Errorf("clear slot %d: %w", slot, ErrSlotOutOfRange)
	}
	s.slots[slot-1] = slotData{}
	s.logger.Info("slot cleared", "slot", slot)
	return nil
}

// Rename sets the name of slot. Names are stored NFC-normalized.
func (s *Store) Rename(slot int, name string) error {
	if !s.InRange(slot) {
		return fmt.Errorf("rename slot %d: %w", slot, ErrSlotOutOfRange)
	}
	s.slots[slot-1].meta.Name = norm.NFC.String(name)
	s.logger.Info("slot renamed", "slot", slot, "name", name)
	return nil
}

// Summary describes every slot in order. Unnamed slots are called "Slot N".
func (s *Store) Summary() []Summary {
	out := make([]Summary, 0, s.maxSlots)
	for i, sd := range s.slots {
		name := sd.meta.Name
		if name == "" {
			name = fmt.Sprintf("Slot %d", i+1)
		}
		out = append(out, Summary{
			Slot:       i + 1,
			Name:       name,
			EventCount: sd.meta.EventCount,
			Duration:   sd.meta.Duration,
		})
	}
	return out
}

// replace installs events and metadata loaded from a document, truncating
// to the slot limit and recomputing the derived metadata fields. Events with
// negative or decreasing times are rejected and the slot is left unchanged.
func (s *Store) replace(slot int, events []Event, meta *Metadata) error {
	if err := CheckMonotonic(events); err != nil {
		return fmt.Errorf("slot %d: %w: %v", slot, ErrInvalidDocument, err)
	}
	if len(events) > s.maxEvents {
		s.logger.Warn("too many events, truncated", "slot", slot, "events", len(events), "max", s.maxEvents)
		events = events[:s.maxEvents]
	}

	sd := &s.slots[slot-1]
	sd.events = cloneEvents(events)
	if meta != nil {
		sd.meta = *meta
		sd.meta.Name = norm.NFC.String(sd.meta.Name)
	} else {
		sd.meta = Metadata{CreatedAt: At(s.now()), ModifiedAt: At(s.now())}
	}
	sd.meta.EventCount = len(sd.events)
	sd.meta.Duration = Duration(sd.events)
	return nil
}
