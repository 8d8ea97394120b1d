package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replaypad/internal/device"
	"github.com/roach88/replaypad/internal/engine"
	"github.com/roach88/replaypad/internal/sequence"
	"github.com/roach88/replaypad/internal/testutil"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8, cfg.Gamepad.RecordButton)
	assert.Equal(t, 9, cfg.Gamepad.PlayButton)
	assert.Equal(t, 30, cfg.Recording.MaxSlots)
	assert.Equal(t, 100000, cfg.Recording.MaxEventsPerSlot)
	assert.Equal(t, -1, cfg.Playback.LoopCount)
	assert.Equal(t, filepath.Join("recordings", "sequences.json"), cfg.StorePath())
	assert.Equal(t, 10*time.Millisecond, cfg.PollInterval())
}

func TestLoad_NoFilesGivesDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_LayersFilesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	base := writeConfig(t, dir, "default.yaml", `
gamepad:
  polling_rate: 60
  stick_deadzone: 0.2
recording:
  max_slots: 10
`)
	user := writeConfig(t, dir, "user.yaml", `
gamepad:
  stick_deadzone: 0.15
playback:
  enable_looping: true
`)

	cfg, err := Load(base, user)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Gamepad.PollingRate, "kept from first layer")
	assert.Equal(t, 0.15, cfg.Gamepad.StickDeadzone, "later layer wins")
	assert.Equal(t, 10, cfg.Recording.MaxSlots)
	assert.True(t, cfg.Playback.EnableLooping)
	assert.Equal(t, 0.05, cfg.Gamepad.TriggerDeadzone, "untouched default")
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "empty.yaml", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "typo.yaml", `
gamepad:
  polling_rat: 60
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsTrailingDocument(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "two.yaml", "ui:\n  update_rate: 5\n---\nui:\n  update_rate: 6\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "trailing document")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"deadzone of one", func(c *Config) { c.Gamepad.StickDeadzone = 1 }},
		{"negative trigger deadzone", func(c *Config) { c.Gamepad.TriggerDeadzone = -0.1 }},
		{"same control buttons", func(c *Config) { c.Gamepad.PlayButton = c.Gamepad.RecordButton }},
		{"zero polling rate", func(c *Config) { c.Gamepad.PollingRate = 0 }},
		{"zero slots", func(c *Config) { c.Recording.MaxSlots = 0 }},
		{"store file not json", func(c *Config) { c.Recording.FileName = "sequences.txt" }},
		{"loop count below -1", func(c *Config) { c.Playback.LoopCount = -2 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "chatty" }},
		{"status path without slash", func(c *Config) { c.Status.Path = "ws" }},
		{"enabled status without address", func(c *Config) {
			c.Status.Enabled = true
			c.Status.Listen = ""
		}},
		{"enabled archive without path", func(c *Config) { c.Archive.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_DisabledSectionsMayBeEmpty(t *testing.T) {
	cfg := Default()
	cfg.Status.Listen = ""
	cfg.Archive.Enabled = false
	cfg.Archive.Path = ""

	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidValueFromFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "bad.yaml", "logging:\n  level: loud\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid config")
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Discover(dir))

	user := writeConfig(t, dir, "user.yaml", "")
	assert.Equal(t, []string{user}, Discover(dir))

	base := writeConfig(t, dir, "default.yaml", "")
	assert.Equal(t, []string{base, user}, Discover(dir))
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Gamepad.Device = "/dev/input/event7"
	cfg.Playback.LoopCount = 3

	path := filepath.Join(t.TempDir(), "conf", "user.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestFlagOverrides(t *testing.T) {
	cfg := Default()
	device := "/dev/input/event3"
	dir := "/tmp/takes"
	loop := true
	count := 0
	level := "debug"

	FlagOverrides{
		Device:        &device,
		RecordingsDir: &dir,
		Loop:          &loop,
		LoopCount:     &count,
		LogLevel:      &level,
	}.Apply(&cfg)

	assert.Equal(t, device, cfg.Gamepad.Device)
	assert.Equal(t, filepath.Join(dir, "sequences.json"), cfg.StorePath())
	assert.Equal(t, filepath.Join(dir, "takes.db"), cfg.Archive.Path)
	assert.True(t, cfg.Playback.EnableLooping)
	assert.Equal(t, 0, cfg.Playback.LoopCount, "zero values are applied")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.UI.OverlayEnabled, "nil overrides leave values alone")

	FlagOverrides{}.Apply(nil)
}

func TestOptionsConversion(t *testing.T) {
	cfg := Default()
	assert.Len(t, cfg.StoreOptions(), 4)
	assert.Len(t, cfg.EngineOptions(), 9)
}

func TestEngineOptions_SignificantChangeThreshold(t *testing.T) {
	cfg := Default()
	cfg.Gamepad.StickDeadzone = 0
	cfg.Gamepad.QuantizeSticks = false
	cfg.Gamepad.SignificantChangeThreshold = 0.5

	layout := device.Layout{Buttons: 12, Axes: 6, Hats: 1}
	src := testutil.NewScriptedSource(layout)
	clock := testutil.NewFakeClock()
	store := sequence.New(sequence.WithPath(filepath.Join(t.TempDir(), "sequences.json")))
	eng := engine.New(src, testutil.NewCaptureSink(), store, append(cfg.EngineOptions(), engine.WithClock(clock))...)

	eng.Poll()
	src.SetAxis(0, 0.3)
	clock.Advance(time.Second)
	eng.Poll()

	idle, ok := eng.InputIdle()
	require.True(t, ok)
	assert.Equal(t, time.Second, idle, "0.3 stays under the configured 0.5")
}
