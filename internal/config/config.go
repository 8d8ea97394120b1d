package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/replaypad/internal/engine"
	"github.com/roach88/replaypad/internal/sequence"
)

// Config is the top-level YAML configuration.
//
// Defaults live in Default; files loaded with Load are decoded over them so
// a file only needs the keys it changes. The json tags name the fields for
// schema validation and must match the yaml tags.
type Config struct {
	Gamepad   GamepadConfig   `yaml:"gamepad" json:"gamepad"`
	Recording RecordingConfig `yaml:"recording" json:"recording"`
	Playback  PlaybackConfig  `yaml:"playback" json:"playback"`
	Archive   ArchiveConfig   `yaml:"archive" json:"archive"`
	Status    StatusConfig    `yaml:"status" json:"status"`
	UI        UIConfig        `yaml:"ui" json:"ui"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

type GamepadConfig struct {
	RecordButton               int     `yaml:"record_button" json:"record_button"`
	PlayButton                 int     `yaml:"play_button" json:"play_button"`
	PollingRate                int     `yaml:"polling_rate" json:"polling_rate"` // Hz
	StickDeadzone              float64 `yaml:"stick_deadzone" json:"stick_deadzone"`
	TriggerDeadzone            float64 `yaml:"trigger_deadzone" json:"trigger_deadzone"`
	InterferenceThreshold      float64 `yaml:"interference_threshold" json:"interference_threshold"`
	RecordTolerance            float64 `yaml:"record_tolerance" json:"record_tolerance"`
	SignificantChangeThreshold float64 `yaml:"significant_change_threshold" json:"significant_change_threshold"`
	QuantizeSticks             bool    `yaml:"quantize_sticks" json:"quantize_sticks"`
	InvertLeftStickY           bool    `yaml:"invert_left_stick_y" json:"invert_left_stick_y"`
	Device                     string  `yaml:"device" json:"device"` // empty: first gamepad found
	VirtualName                string  `yaml:"virtual_name" json:"virtual_name"`
}

type RecordingConfig struct {
	MaxSlots         int    `yaml:"max_slots" json:"max_slots"`
	MaxEventsPerSlot int    `yaml:"max_events_per_slot" json:"max_events_per_slot"`
	AutoSave         bool   `yaml:"auto_save" json:"auto_save"`
	BackupOnSave     bool   `yaml:"backup_on_save" json:"backup_on_save"`
	RecordingsDir    string `yaml:"recordings_dir" json:"recordings_dir"`
	FileName         string `yaml:"file_name" json:"file_name"`
}

type PlaybackConfig struct {
	EnableLooping     bool `yaml:"enable_looping" json:"enable_looping"`
	LoopCount         int  `yaml:"loop_count" json:"loop_count"` // -1 = unlimited
	SettleDelayMS     int  `yaml:"settle_delay_ms" json:"settle_delay_ms"`
	ManualStopGraceMS int  `yaml:"manual_stop_grace_ms" json:"manual_stop_grace_ms"`
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

type StatusConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
	Path    string `yaml:"path" json:"path"`
}

type UIConfig struct {
	OverlayEnabled bool `yaml:"overlay_enabled" json:"overlay_enabled"`
	UpdateRate     int  `yaml:"update_rate" json:"update_rate"` // Hz
}

type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	Console bool   `yaml:"console" json:"console"`
}

// Default returns a fully-populated Config with defaults.
func Default() Config {
	return Config{
		Gamepad: GamepadConfig{
			RecordButton:               engine.DefaultRecordButton,
			PlayButton:                 engine.DefaultPlayButton,
			PollingRate:                100,
			StickDeadzone:              0.1,
			TriggerDeadzone:            0.05,
			InterferenceThreshold:      engine.DefaultInterferenceThreshold,
			RecordTolerance:            0.08,
			SignificantChangeThreshold: 0.05,
			QuantizeSticks:             true,
			InvertLeftStickY:           false,
			VirtualName:                "replaypad virtual pad",
		},
		Recording: RecordingConfig{
			MaxSlots:         sequence.DefaultMaxSlots,
			MaxEventsPerSlot: sequence.DefaultMaxEvents,
			AutoSave:         true,
			BackupOnSave:     true,
			RecordingsDir:    "recordings",
			FileName:         sequence.DefaultFileName,
		},
		Playback: PlaybackConfig{
			EnableLooping:     false,
			LoopCount:         -1,
			SettleDelayMS:     200,
			ManualStopGraceMS: 500,
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Path:    filepath.Join("recordings", "takes.db"),
		},
		Status: StatusConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8765",
			Path:    "/ws",
		},
		UI: UIConfig{
			OverlayEnabled: true,
			UpdateRate:     10,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load returns the defaults with each file in paths decoded over them in
// order, then validates the result.
//
// Notes:
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
//   - An empty file changes nothing.
//   - Every path must exist; use Discover to find optional files.
func Load(paths ...string) (Config, error) {
	cfg := Default()
	for _, path := range paths {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Discover returns the layered config files that exist in dir:
// default.yaml, then user.yaml.
func Discover(dir string) []string {
	var found []string
	for _, name := range []string{"default.yaml", "user.yaml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	return found
}

func decodeFile(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode config yaml %s: %w", path, err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	var extra yaml.Node
	if err := dec.Decode(&extra); err == nil {
		return fmt.Errorf("decode config yaml %s: unexpected trailing document", path)
	}
	return nil
}

// Save writes cfg as YAML to path.
func (c Config) Save(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// YAML returns cfg encoded as YAML.
func (c Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// StorePath returns the sequence store file.
func (c Config) StorePath() string {
	return filepath.Join(c.Recording.RecordingsDir, c.Recording.FileName)
}

// PollInterval returns the time between engine polls.
func (c Config) PollInterval() time.Duration {
	return time.Second / time.Duration(c.Gamepad.PollingRate)
}

// StoreOptions converts the recording section to store options.
func (c Config) StoreOptions() []sequence.Option {
	return []sequence.Option{
		sequence.WithMaxSlots(c.Recording.MaxSlots),
		sequence.WithMaxEvents(c.Recording.MaxEventsPerSlot),
		sequence.WithAutoPersist(c.Recording.AutoSave),
		sequence.WithPath(c.StorePath()),
	}
}

// EngineOptions converts the gamepad and playback sections to engine options.
func (c Config) EngineOptions() []engine.Option {
	g := c.Gamepad
	p := c.Playback
	return []engine.Option{
		engine.WithControls(g.RecordButton, g.PlayButton),
		engine.WithDeadzones(g.StickDeadzone, g.TriggerDeadzone),
		engine.WithQuantize(g.QuantizeSticks),
		engine.WithRecordTolerance(g.RecordTolerance),
		engine.WithSignificantChangeThreshold(g.SignificantChangeThreshold),
		engine.WithInterferenceThreshold(g.InterferenceThreshold),
		engine.WithSettleDelay(time.Duration(p.SettleDelayMS) * time.Millisecond),
		engine.WithManualStopGrace(time.Duration(p.ManualStopGraceMS) * time.Millisecond),
		engine.WithLoop(p.EnableLooping, p.LoopCount),
	}
}
