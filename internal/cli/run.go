package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/roach88/replaypad/internal/config"
	"github.com/roach88/replaypad/internal/device"
	"github.com/roach88/replaypad/internal/engine"
	"github.com/roach88/replaypad/internal/evdev"
	"github.com/roach88/replaypad/internal/sequence"
	"github.com/roach88/replaypad/internal/status"
	"github.com/roach88/replaypad/internal/tui"
	"github.com/roach88/replaypad/internal/uinput"
)

// Devices are the physical pad and the virtual pad of a session.
type Devices struct {
	Source engine.Source
	Sink   engine.Sink
	Close  func()
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	Device        string
	RecordingsDir string
	Loop          bool
	LoopCount     int
	Overlay       bool
	Status        bool
	StatusListen  string
	NoArchive     bool
	LogLevel      string
	LogFile       string

	// Duration stops the session after this long; zero runs until
	// interrupted or quit from the overlay.
	Duration time.Duration

	// OpenDevices overrides device construction (for testing).
	// If nil, the evdev source and uinput sink are opened.
	OpenDevices func(cfg config.Config, logger *slog.Logger) (Devices, error)
}

// RunResult summarizes a finished session.
type RunResult struct {
	StorePath string             `json:"store_path"`
	Saved     bool               `json:"saved"`
	Slots     []sequence.Summary `json:"slots"`
}

func (r RunResult) RenderText(w io.Writer) {
	state := "not saved (auto_save is off)"
	if r.Saved {
		state = "saved to " + r.StorePath
	}
	fmt.Fprintf(w, "Session ended: %d recorded slot(s), %s\n", len(r.Slots), state)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start recording and replaying",
		Long: `Open the physical gamepad and the virtual pad, then poll until stopped.

Controls on the pad:
  record button   start / stop recording into the active slot
  play button     play the active slot (again to stop)
  d-pad up/down   next / previous slot while idle
Touching the pad during playback takes over and keeps recording.

Overlay hotkeys: 1-9 slot, s save, l load, o detail, q quit.

Examples:
  replaypad run
  replaypad run --device /dev/input/event5 --loop --loop-count 3
  replaypad run --overlay=false --status --log-file replaypad.log`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Device, "device", "", "evdev node of the physical pad (default: first gamepad found)")
	f.StringVar(&opts.RecordingsDir, "recordings-dir", "", "directory for the sequence file and archive")
	f.BoolVar(&opts.Loop, "loop", false, "loop playback")
	f.IntVar(&opts.LoopCount, "loop-count", -1, "loops before playback stops (-1 = unlimited)")
	f.BoolVar(&opts.Overlay, "overlay", true, "show the terminal overlay")
	f.BoolVar(&opts.Status, "status", false, "serve engine notifications over websocket")
	f.StringVar(&opts.StatusListen, "status-listen", "", "status server address")
	f.BoolVar(&opts.NoArchive, "no-archive", false, "do not archive recordings")
	f.StringVar(&opts.LogLevel, "log-level", "", "debug|info|warn|error")
	f.StringVar(&opts.LogFile, "log-file", "", "write logs to this file")
	f.DurationVar(&opts.Duration, "duration", 0, "stop after this long")

	return cmd
}

// overrides returns the flags the user actually set.
func (o *RunOptions) overrides(cmd *cobra.Command) config.FlagOverrides {
	var ov config.FlagOverrides
	changed := cmd.Flags().Changed
	if changed("device") {
		ov.Device = &o.Device
	}
	if changed("recordings-dir") {
		ov.RecordingsDir = &o.RecordingsDir
	}
	if changed("loop") {
		ov.Loop = &o.Loop
	}
	if changed("loop-count") {
		ov.LoopCount = &o.LoopCount
	}
	if changed("overlay") {
		ov.Overlay = &o.Overlay
	}
	if changed("status") {
		ov.StatusEnabled = &o.Status
	}
	if changed("status-listen") {
		ov.StatusListen = &o.StatusListen
	}
	if changed("no-archive") {
		ov.ArchiveOff = &o.NoArchive
	}
	if changed("log-level") {
		ov.LogLevel = &o.LogLevel
	}
	if changed("log-file") {
		ov.LogFile = &o.LogFile
	}
	return ov
}

func runSession(opts *RunOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	opts.overrides(cmd).Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}

	// The overlay owns the terminal; console logs would tear it.
	console := cmd.ErrOrStderr()
	if cfg.UI.OverlayEnabled {
		console = nil
	}
	logger, closeLog, err := newLogger(cfg.Logging, opts.Verbose, console)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	defer closeLog()

	arch, err := openArchive(cfg, logger)
	if err != nil {
		return out.Fail(ExitFailure, "failed to open archive", err)
	}
	var storeOpts []sequence.Option
	if arch != nil {
		defer arch.Close()
		storeOpts = append(storeOpts, sequence.WithCommitHook(arch.Hook()))
	}

	store := newStore(cfg, logger, storeOpts...)
	if cfg.Recording.AutoSave {
		if err := loadStore(cfg, store, logger); err != nil {
			return out.Fail(ExitFailure, "failed to load sequences", err)
		}
	}

	open := opts.OpenDevices
	if open == nil {
		open = openDevices
	}
	dev, err := open(cfg, logger)
	if err != nil {
		return out.Fail(ExitCommandError, "gamepad unavailable", err)
	}
	if dev.Close != nil {
		defer dev.Close()
	}

	eng := engine.New(dev.Source, dev.Sink, store, append(cfg.EngineOptions(), engine.WithLogger(logger))...)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	if opts.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Status.Enabled {
		srv := status.NewServer(logger, status.SnapshotOf(eng), status.HubConfig{})
		eng.Subscribe(srv)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Status.Listen, cfg.Status.Path); err != nil {
				logger.Error("status server stopped", "err", err)
			}
		}()
	}

	logger.Info("session started",
		"store", cfg.StorePath(),
		"slots", store.MaxSlots(),
		"poll_interval", cfg.PollInterval(),
		"overlay", cfg.UI.OverlayEnabled,
	)

	if cfg.UI.OverlayEnabled {
		model := tui.New(eng, tui.Options{
			PollInterval:    cfg.PollInterval(),
			RefreshInterval: time.Second / time.Duration(cfg.UI.UpdateRate),
			StorePath:       cfg.StorePath(),
			Backup:          cfg.Recording.BackupOnSave,
			Detail:          true,
			Logger:          logger,
		})
		p := tea.NewProgram(model,
			tea.WithContext(ctx),
			tea.WithInput(cmd.InOrStdin()),
			tea.WithOutput(cmd.OutOrStdout()),
		)
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			eng.Shutdown()
			return out.Fail(ExitFailure, "overlay failed", err)
		}
	} else {
		pollLoop(ctx, eng, cfg.PollInterval())
	}

	eng.Shutdown()

	result := RunResult{StorePath: cfg.StorePath(), Slots: []sequence.Summary{}}
	if cfg.Recording.AutoSave {
		if err := store.Save(cfg.StorePath(), cfg.Recording.BackupOnSave); err != nil {
			return out.Fail(ExitFailure, "failed to save sequences", err)
		}
		result.Saved = true
	}
	for _, sum := range store.Summary() {
		if sum.EventCount > 0 {
			result.Slots = append(result.Slots, sum)
		}
	}
	logger.Info("session ended", "slots", len(result.Slots), "saved", result.Saved)
	return out.Success(result)
}

// pollLoop drives eng at interval until ctx is done.
func pollLoop(ctx context.Context, eng *engine.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eng.Poll()
		}
	}
}

// openDevices opens the physical and virtual pads. A missing physical pad
// is fatal. A missing virtual pad is replaced by device.Offline so the
// session can still record; the engine refuses playback until then.
func openDevices(cfg config.Config, logger *slog.Logger) (Devices, error) {
	src, err := evdev.Open(cfg.Gamepad.Device, logger)
	if err != nil {
		logger.Error("gamepad unavailable", "device", cfg.Gamepad.Device, "err", err)
		return Devices{}, &engine.Error{
			Code:    engine.ErrCodeSourceUnavailable,
			Message: "no gamepad could be opened",
			Err:     err,
		}
	}

	dev := Devices{Source: src}
	closers := []func() error{src.Close}

	sink, err := uinput.Open(cfg.Gamepad.VirtualName,
		uinput.WithInvertLeftY(cfg.Gamepad.InvertLeftStickY),
		uinput.WithLogger(logger),
	)
	if err != nil {
		logger.Warn("virtual pad unavailable, playback disabled", "err", err)
		dev.Sink = device.Offline{Reason: err.Error()}
	} else {
		dev.Sink = sink
		closers = append(closers, sink.Close)
	}

	dev.Close = func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("close device", "err", err)
			}
		}
	}
	return dev, nil
}
