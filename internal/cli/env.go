package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/replaypad/internal/archive"
	"github.com/roach88/replaypad/internal/config"
	"github.com/roach88/replaypad/internal/sequence"
)

// loadConfig loads the explicit config files, or the layered files found in
// the config dir.
func loadConfig(opts *RootOptions) (config.Config, error) {
	files := opts.ConfigFiles
	if len(files) == 0 && opts.ConfigDir != "" {
		files = config.Discover(opts.ConfigDir)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger. A log file gets JSON records;
// otherwise console logging writes text to console. The returned close
// function releases the log file.
func newLogger(cfg config.LoggingConfig, verbose bool, console io.Writer) (*slog.Logger, func() error, error) {
	level := parseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	noop := func() error { return nil }

	switch {
	case cfg.File != "":
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return slog.New(slog.NewJSONHandler(f, handlerOpts)), f.Close, nil
	case cfg.Console && console != nil:
		return slog.New(slog.NewTextHandler(console, handlerOpts)), noop, nil
	default:
		return slog.New(slog.DiscardHandler), noop, nil
	}
}

// newFormatter returns the output formatter for cmd.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// newStore builds the store described by cfg.
func newStore(cfg config.Config, logger *slog.Logger, extra ...sequence.Option) *sequence.Store {
	opts := append(cfg.StoreOptions(), sequence.WithLogger(logger))
	return sequence.New(append(opts, extra...)...)
}

// loadStore loads the store file when it exists.
func loadStore(cfg config.Config, store *sequence.Store, logger *slog.Logger) error {
	path := cfg.StorePath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("no store file yet", "path", path)
		return nil
	}
	return store.Load(path)
}

// openOfflineStore opens the store for one-shot commands, which save
// explicitly with saveStore.
func openOfflineStore(cfg config.Config, logger *slog.Logger) (*sequence.Store, error) {
	store := newStore(cfg, logger, sequence.WithAutoPersist(false))
	if err := loadStore(cfg, store, logger); err != nil {
		return nil, err
	}
	return store, nil
}

func saveStore(cfg config.Config, store *sequence.Store) error {
	return store.Save(cfg.StorePath(), cfg.Recording.BackupOnSave)
}

// openArchive opens the take archive, or returns nil when it is disabled.
func openArchive(cfg config.Config, logger *slog.Logger) (*archive.Archive, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	return archive.Open(cfg.Archive.Path, archive.WithLogger(logger))
}

// parseSlot parses a 1-based slot argument and checks it against store.
func parseSlot(arg string, store *sequence.Store) (int, error) {
	slot, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("slot %q is not a number", arg)
	}
	if !store.InRange(slot) {
		return 0, fmt.Errorf("slot %d: %w (1-%d)", slot, sequence.ErrSlotOutOfRange, store.MaxSlots())
	}
	return slot, nil
}

// session is the state shared by the one-shot store commands.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	out    *OutputFormatter
	close  func() error
}

func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := newLogger(cfg.Logging, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	return &session{cfg: cfg, logger: logger, out: newFormatter(opts, cmd), close: closeLog}, nil
}
