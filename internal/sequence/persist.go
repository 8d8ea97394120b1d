package sequence

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// BackupSuffix is appended to the store path for the pre-save backup copy.
const BackupSuffix = ".backup"

type storeDocument struct {
	Version *Version                `json:"version"`
	SavedAt Timestamp               `json:"saved_at"`
	Slots   map[string]slotDocument `json:"slots"`
}

type slotDocument struct {
	Metadata *Metadata `json:"metadata,omitempty"`
	Events   []Event   `json:"events"`
}

type exportDocument struct {
	Version    *Version  `json:"version"`
	ExportedAt Timestamp `json:"exported_at"`
	Slot       int       `json:"slot"`
	Metadata   *Metadata `json:"metadata,omitempty"`
	Events     *[]Event  `json:"events"`
}

// Save writes every non-empty slot to path. With backup set, an existing
// file at path is first copied to path+BackupSuffix; a failed copy is
// logged and the save continues.
func (s *Store) Save(path string, backup bool) error {
	if backup {
		if _, err := os.Stat(path); err == nil {
			if err := copyFile(path, path+BackupSuffix); err != nil {
				s.logger.Warn("backup failed", "path", path, "error", err)
			} else {
				s.logger.Info("backup created", "path", path+BackupSuffix)
			}
		}
	}

	v := FileVersion
	doc := storeDocument{
		Version: &v,
		SavedAt: At(s.now()),
		Slots:   make(map[string]slotDocument),
	}
	for i := range s.slots {
		sd := s.slots[i]
		if len(sd.events) == 0 {
			continue
		}
		meta := sd.meta
		doc.Slots[strconv.Itoa(i+1)] = slotDocument{Metadata: &meta, Events: sd.events}
	}

	if err := writeJSON(path, doc); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	s.logger.Info("sequences saved", "path", path, "slots", len(doc.Slots))
	return nil
}

// Load reads a document written by Save. A document from another major
// version is rejected and leaves the store unchanged. Slots outside the
// configured range or with out-of-order event times are skipped; slots over
// the event limit are truncated.
func (s *Store) Load(path string) error {
	var doc storeDocument
	if err := readJSON(path, &doc); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	version := legacyVersion
	if doc.Version != nil {
		version = *doc.Version
	}
	if !version.Compatible(FileVersion) {
		return fmt.Errorf("load %s: file version %s, want %d.x.x: %w", path, version, FileVersion.Major, ErrIncompatibleVersion)
	}

	loaded := 0
	for key, sd := range doc.Slots {
		slot, err := strconv.Atoi(key)
		if err != nil {
			s.logger.Warn("skipping slot with invalid id", "slot", key)
			continue
		}
		if !s.InRange(slot) {
			s.logger.Warn("skipping slot out of range", "slot", slot, "max_slots", s.maxSlots)
			continue
		}
		if err := s.replace(slot, sd.Events, sd.Metadata); err != nil {
			s.logger.Warn("skipping slot with out-of-order events", "slot", slot, "error", err)
			continue
		}
		loaded++
	}

	s.logger.Info("sequences loaded", "path", path, "slots", loaded)
	return nil
}

// Export writes slot to path as a single-slot document.
func (s *Store) Export(slot int, path string) error {
	if !s.InRange(slot) {
		return fmt.Errorf("export slot %d: %w", slot, ErrSlotOutOfRange)
	}
	sd := s.slots[slot-1]
	if len(sd.events) == 0 {
		return fmt.Errorf("export slot %d: %w", slot, ErrEmptySlot)
	}

	v := FileVersion
	meta := sd.meta
	events := sd.events
	doc := exportDocument{
		Version:    &v,
		ExportedAt: At(s.now()),
		Slot:       slot,
		Metadata:   &meta,
		Events:     &events,
	}
	if err := writeJSON(path, doc); err != nil {
		return fmt.Errorf("export slot %d to %s: %w", slot, path, err)
	}

	s.logger.Info("slot exported", "slot", slot, "path", path)
	return nil
}

// Import replaces target with the events and metadata of an exported
// document. Oversized documents are truncated to the slot limit.
func (s *Store) Import(path string, target int) error {
	if !s.InRange(target) {
		return fmt.Errorf("import into slot %d: %w", target, ErrSlotOutOfRange)
	}

	var doc exportDocument
	if err := readJSON(path, &doc); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	if doc.Events == nil {
		return fmt.Errorf("import %s: missing events: %w", path, ErrInvalidDocument)
	}
	if doc.Version != nil && !doc.Version.Compatible(FileVersion) {
		return fmt.Errorf("import %s: file version %s: %w", path, *doc.Version, ErrIncompatibleVersion)
	}

	if err := s.replace(target, *doc.Events, doc.Metadata); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	s.logger.Info("slot imported", "slot", target, "path", path, "events", len(s.slots[target-1].events))
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
