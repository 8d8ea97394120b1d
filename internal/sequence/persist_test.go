package sequence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replaypad/internal/device"
)

func writeFile(t *testing.T, path string, doc any) {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestSave_GoldenDocument(t *testing.T) {
	s := createTestStore(t)
	events := []Event{
		{Time: 0, State: device.State{
			Buttons: []bool{true, false},
			Axes:    []float64{0.5},
			Hats:    []device.Hat{{0, 1}},
		}},
		{Time: 0.05, State: device.State{
			Buttons: []bool{false, false},
			Axes:    []float64{-1},
			Hats:    []device.Hat{{0, 0}},
		}},
	}
	require.NoError(t, s.Set(3, events, "jump"))

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, s.Save(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "store_document", data)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	src := createTestStore(t)
	events := createTestEvents(25)
	require.NoError(t, src.Set(5, events, "round trip"))
	require.NoError(t, src.Set(30, createTestEvents(1), "last"))

	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, src.Save(path, false))

	dst := createTestStore(t)
	require.NoError(t, dst.Load(path))

	assert.Equal(t, events, dst.Get(5))
	srcMeta, _ := src.Metadata(5)
	dstMeta, _ := dst.Metadata(5)
	assert.Equal(t, srcMeta.Name, dstMeta.Name)
	assert.Equal(t, srcMeta.EventCount, dstMeta.EventCount)
	assert.Equal(t, srcMeta.Duration, dstMeta.Duration)
	assert.True(t, srcMeta.CreatedAt.Equal(dstMeta.CreatedAt.Time))
	assert.True(t, srcMeta.ModifiedAt.Equal(dstMeta.ModifiedAt.Time))

	for slot := 1; slot <= dst.MaxSlots(); slot++ {
		if slot == 5 || slot == 30 {
			continue
		}
		assert.Empty(t, dst.Get(slot), "slot %d should be empty", slot)
	}
}

func TestSave_OnlyNonEmptySlots(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Set(2, createTestEvents(2), ""))
	require.NoError(t, s.Rename(3, "named but empty"))

	path := filepath.Join(t.TempDir(), "s.json")
	require.NoError(t, s.Save(path, false))

	var doc map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "2.0.0", doc["version"])
	assert.Contains(t, doc, "saved_at")
	slots := doc["slots"].(map[string]any)
	assert.Len(t, slots, 1)
	assert.Contains(t, slots, "2")
}

func TestSave_Backup(t *testing.T) {
	s := createTestStore(t)
	path := filepath.Join(t.TempDir(), "s.json")

	require.NoError(t, s.Set(1, createTestEvents(1), ""))
	require.NoError(t, s.Save(path, true))
	_, err := os.Stat(path + BackupSuffix)
	assert.True(t, os.IsNotExist(err), "no backup when nothing existed")

	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, s.Set(1, createTestEvents(4), ""))
	require.NoError(t, s.Save(path, true))

	backup, err := os.ReadFile(path + BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, first, backup, "backup is a byte copy of the previous save")
}

func TestSave_UnwritablePathFails(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Set(1, createTestEvents(1), ""))

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := s.Save(filepath.Join(blocker, "nested", "s.json"), false)
	assert.Error(t, err)
}

func TestSet_AutoPersistWithoutBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	s := createTestStore(t, WithPath(path), WithAutoPersist(true))

	require.NoError(t, s.Set(1, createTestEvents(2), ""))
	require.NoError(t, s.Set(1, createTestEvents(3), ""))

	_, err := os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + BackupSuffix)
	assert.True(t, os.IsNotExist(err))

	fresh := createTestStore(t)
	require.NoError(t, fresh.Load(path))
	assert.Len(t, fresh.Get(1), 3)
}

func TestSet_AutoPersistSkipsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	s := createTestStore(t, WithPath(path), WithAutoPersist(true))

	require.NoError(t, s.Set(1, nil, ""))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSet_AutoPersistFailureDoesNotFail(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	s := createTestStore(t, WithPath(filepath.Join(blocker, "s.json")), WithAutoPersist(true))

	assert.NoError(t, s.Set(1, createTestEvents(2), ""))
	assert.Len(t, s.Get(1), 2)
}

func TestLoad_IncompatibleVersionLeavesStoreUnchanged(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Set(1, createTestEvents(2), "existing"))

	path := filepath.Join(t.TempDir(), "v3.json")
	writeFile(t, path, map[string]any{
		"version": "3.0.0",
		"slots": map[string]any{
			"1": map[string]any{"events": []any{}},
		},
	})

	err := s.Load(path)

	assert.ErrorIs(t, err, ErrIncompatibleVersion)
	assert.Len(t, s.Get(1), 2)
}

func TestLoad_MissingVersionIsLegacy(t *testing.T) {
	s := createTestStore(t)
	path := filepath.Join(t.TempDir(), "old.json")
	writeFile(t, path, map[string]any{"slots": map[string]any{}})

	assert.ErrorIs(t, s.Load(path), ErrIncompatibleVersion)
}

func TestLoad_AcceptsMinorAndPatchDifferences(t *testing.T) {
	s := createTestStore(t)
	path := filepath.Join(t.TempDir(), "v2.json")
	writeFile(t, path, map[string]any{
		"version": "2.7.3",
		"slots": map[string]any{
			"2": map[string]any{"events": createTestEvents(3)},
		},
	})

	require.NoError(t, s.Load(path))
	assert.Len(t, s.Get(2), 3)
	meta, _ := s.Metadata(2)
	assert.Equal(t, 3, meta.EventCount, "metadata recomputed when missing")
}

func TestLoad_SkipsOutOfRangeAndTruncates(t *testing.T) {
	s := createTestStore(t, WithMaxSlots(3), WithMaxEvents(4))
	path := filepath.Join(t.TempDir(), "mixed.json")
	writeFile(t, path, map[string]any{
		"version": "2.0.0",
		"slots": map[string]any{
			"1":   map[string]any{"events": createTestEvents(10), "metadata": Metadata{Name: "big", EventCount: 10, Duration: 0.09}},
			"2":   map[string]any{"events": createTestEvents(2)},
			"9":   map[string]any{"events": createTestEvents(2)},
			"abc": map[string]any{"events": createTestEvents(2)},
		},
	})

	require.NoError(t, s.Load(path))

	assert.Len(t, s.Get(1), 4)
	meta, _ := s.Metadata(1)
	assert.Equal(t, "big", meta.Name)
	assert.Equal(t, 4, meta.EventCount, "count follows truncated events")
	assert.InDelta(t, 0.03, meta.Duration, 1e-9)
	assert.Len(t, s.Get(2), 2)
	assert.Empty(t, s.Get(3))
}

func TestLoad_MissingFile(t *testing.T) {
	s := createTestStore(t)
	err := s.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_CorruptFile(t *testing.T) {
	s := createTestStore(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Error(t, s.Load(path))
}

func TestLoad_NaiveTimestamps(t *testing.T) {
	s := createTestStore(t)
	path := filepath.Join(t.TempDir(), "naive.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": "2.0.0",
		"saved_at": "2025-11-03T18:22:10.123456",
		"slots": {"1": {
			"metadata": {"name": "", "created_at": "2025-11-03T18:20:00.5", "modified_at": null, "event_count": 1, "duration": 0.0},
			"events": [{"time": 0.0, "state": {"buttons": [true], "axes": [0.0], "hats": [[0, 0]]}}]
		}}
	}`), 0o644))

	require.NoError(t, s.Load(path))
	meta, _ := s.Metadata(1)
	assert.Equal(t, 2025, meta.CreatedAt.Year())
	assert.False(t, meta.ModifiedAt.IsSet())
}

func TestExportImport(t *testing.T) {
	src := createTestStore(t)
	events := createTestEvents(6)
	require.NoError(t, src.Set(4, events, "exported"))

	path := filepath.Join(t.TempDir(), "slot4.json")
	require.NoError(t, src.Export(4, path))

	var doc map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, float64(4), doc["slot"])
	assert.Contains(t, doc, "exported_at")
	assert.Contains(t, doc, "metadata")

	dst := createTestStore(t)
	require.NoError(t, dst.Import(path, 9))

	assert.Equal(t, events, dst.Get(9))
	meta, _ := dst.Metadata(9)
	assert.Equal(t, "exported", meta.Name)
	assert.Equal(t, 6, meta.EventCount)
}

func TestExport_EmptySlot(t *testing.T) {
	s := createTestStore(t)
	err := s.Export(1, filepath.Join(t.TempDir(), "x.json"))
	assert.ErrorIs(t, err, ErrEmptySlot)
	assert.ErrorIs(t, s.Export(0, "x.json"), ErrSlotOutOfRange)
}

func TestImport_Truncates(t *testing.T) {
	s := createTestStore(t, WithMaxEvents(3))
	path := filepath.Join(t.TempDir(), "big.json")
	writeFile(t, path, map[string]any{"version": "2.0.0", "slot": 1, "events": createTestEvents(8)})

	require.NoError(t, s.Import(path, 2))

	assert.Len(t, s.Get(2), 3)
	meta, _ := s.Metadata(2)
	assert.Equal(t, 3, meta.EventCount)
}

func TestImport_RejectsDocumentWithoutEvents(t *testing.T) {
	s := createTestStore(t)
	path := filepath.Join(t.TempDir(), "noevents.json")
	writeFile(t, path, map[string]any{"version": "2.0.0", "slot": 1})

	assert.ErrorIs(t, s.Import(path, 1), ErrInvalidDocument)
}

func TestImport_InvalidTarget(t *testing.T) {
	s := createTestStore(t)
	assert.ErrorIs(t, s.Import("whatever.json", 0), ErrSlotOutOfRange)
}

func TestLoad_SkipsSlotWithOutOfOrderEvents(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Set(1, createTestEvents(2), "kept"))

	backwards := createTestEvents(3)
	backwards[1].Time, backwards[2].Time = backwards[2].Time, backwards[1].Time
	negative := createTestEvents(1)
	negative[0].Time = -0.5

	path := filepath.Join(t.TempDir(), "disorder.json")
	writeFile(t, path, map[string]any{
		"version": "2.0.0",
		"slots": map[string]any{
			"1": map[string]any{"events": backwards},
			"2": map[string]any{"events": negative},
			"3": map[string]any{"events": createTestEvents(2)},
		},
	})

	require.NoError(t, s.Load(path))

	assert.Len(t, s.Get(1), 2, "rejected slot keeps its previous events")
	meta, _ := s.Metadata(1)
	assert.Equal(t, "kept", meta.Name)
	assert.Empty(t, s.Get(2))
	assert.Len(t, s.Get(3), 2)
}

func TestImport_RejectsOutOfOrderEvents(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Set(2, createTestEvents(1), "before"))

	events := createTestEvents(4)
	events[3].Time = events[0].Time - 0.01
	path := filepath.Join(t.TempDir(), "disorder.json")
	writeFile(t, path, map[string]any{"version": "2.0.0", "slot": 1, "events": events})

	err := s.Import(path, 2)

	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Contains(t, err.Error(), "event 3")
	assert.Len(t, s.Get(2), 1)
}
