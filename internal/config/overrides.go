package config

import "path/filepath"

// FlagOverrides applies command-line overrides on top of a loaded config.
//
// Flags pass pointers; each override is only applied if non-nil, even when
// it holds a zero value.
type FlagOverrides struct {
	Device        *string
	RecordingsDir *string
	Loop          *bool
	LoopCount     *int
	Overlay       *bool
	StatusEnabled *bool
	StatusListen  *string
	ArchiveOff    *bool
	LogLevel      *string
	LogFile       *string
}

// Apply merges the overrides into cfg. The archive path follows an
// overridden recordings directory.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Device != nil {
		cfg.Gamepad.Device = *o.Device
	}
	if o.RecordingsDir != nil {
		cfg.Recording.RecordingsDir = *o.RecordingsDir
		cfg.Archive.Path = filepath.Join(*o.RecordingsDir, "takes.db")
	}
	if o.Loop != nil {
		cfg.Playback.EnableLooping = *o.Loop
	}
	if o.LoopCount != nil {
		cfg.Playback.LoopCount = *o.LoopCount
	}
	if o.Overlay != nil {
		cfg.UI.OverlayEnabled = *o.Overlay
	}
	if o.StatusEnabled != nil {
		cfg.Status.Enabled = *o.StatusEnabled
	}
	if o.StatusListen != nil {
		cfg.Status.Listen = *o.StatusListen
	}
	if o.ArchiveOff != nil && *o.ArchiveOff {
		cfg.Archive.Enabled = false
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFile != nil {
		cfg.Logging.File = *o.LogFile
	}
}
