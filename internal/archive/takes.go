package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/replaypad/internal/sequence"
)

// ErrNotFound is returned by Get for an unknown take id.
var ErrNotFound = errors.New("take not found")

// Take is one archived recording.
type Take struct {
	ID         string
	Slot       int
	Name       string
	RecordedAt time.Time
	EventCount int
	Duration   float64

	// Events is only populated by Get.
	Events []sequence.Event
}

// Record archives events committed to slot and returns the take id.
// Empty recordings are not archived and return "".
func (a *Archive) Record(ctx context.Context, slot int, events []sequence.Event, meta sequence.Metadata) (string, error) {
	if len(events) == 0 {
		return "", nil
	}

	data, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("record take: %w", err)
	}

	id := a.ids.Generate()
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO takes (id, slot, name, recorded_at, event_count, duration, events)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		slot,
		meta.Name,
		a.now().UTC().Format(time.RFC3339Nano),
		len(events),
		sequence.Duration(events),
		string(data),
	)
	if err != nil {
		return "", fmt.Errorf("record take: %w", err)
	}

	a.logger.Debug("take archived", "id", id, "slot", slot, "events", len(events))
	return id, nil
}

// Hook returns a store commit hook that archives every non-empty commit.
// Archive failures are logged and never fail the commit.
func (a *Archive) Hook() sequence.CommitHook {
	return func(slot int, events []sequence.Event, meta sequence.Metadata) {
		if _, err := a.Record(context.Background(), slot, events, meta); err != nil {
			a.logger.Error("archive failed", "slot", slot, "error", err)
		}
	}
}

// List returns takes newest first, without events. slot 0 lists every
// slot; limit <= 0 means no limit.
//
// Returns an empty slice (not nil) if there are no takes.
func (a *Archive) List(ctx context.Context, slot, limit int) ([]Take, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, slot, name, recorded_at, event_count, duration
		FROM takes
		WHERE ? = 0 OR slot = ?
		ORDER BY seq DESC
		LIMIT ?
	`, slot, slot, limit)
	if err != nil {
		return nil, fmt.Errorf("query takes: %w", err)
	}
	defer rows.Close()

	takes := []Take{}
	for rows.Next() {
		var tk Take
		var recordedAt string
		if err := rows.Scan(&tk.ID, &tk.Slot, &tk.Name, &recordedAt, &tk.EventCount, &tk.Duration); err != nil {
			return nil, fmt.Errorf("scan take: %w", err)
		}
		if tk.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("parse recorded_at of %s: %w", tk.ID, err)
		}
		takes = append(takes, tk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate takes: %w", err)
	}
	return takes, nil
}

// Get returns the take with the given id, including its events.
func (a *Archive) Get(ctx context.Context, id string) (Take, error) {
	var tk Take
	var recordedAt, events string
	err := a.db.QueryRowContext(ctx, `
		SELECT id, slot, name, recorded_at, event_count, duration, events
		FROM takes
		WHERE id = ?
	`, id).Scan(&tk.ID, &tk.Slot, &tk.Name, &recordedAt, &tk.EventCount, &tk.Duration, &events)
	if errors.Is(err, sql.ErrNoRows) {
		return Take{}, fmt.Errorf("get take %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Take{}, fmt.Errorf("get take %s: %w", id, err)
	}

	if tk.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
		return Take{}, fmt.Errorf("parse recorded_at of %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(events), &tk.Events); err != nil {
		return Take{}, fmt.Errorf("decode events of %s: %w", id, err)
	}
	return tk, nil
}

// Prune deletes all but the newest keep takes of slot and returns how many
// were removed.
func (a *Archive) Prune(ctx context.Context, slot, keep int) (int, error) {
	res, err := a.db.ExecContext(ctx, `
		DELETE FROM takes
		WHERE slot = ? AND seq NOT IN (
			SELECT seq FROM takes WHERE slot = ? ORDER BY seq DESC LIMIT ?
		)
	`, slot, slot, keep)
	if err != nil {
		return 0, fmt.Errorf("prune slot %d: %w", slot, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune slot %d: %w", slot, err)
	}
	return int(n), nil
}
