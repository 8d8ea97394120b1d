package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/replaypad/internal/archive"
)

var errArchiveDisabled = errors.New("take archive is disabled (archive.enabled: false)")

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Slot  int
	Limit int
	Prune int
}

// TakeView is an archived take as printed by history.
type TakeView struct {
	ID         string    `json:"id"`
	Slot       int       `json:"slot"`
	Name       string    `json:"name,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	EventCount int       `json:"event_count"`
	Duration   float64   `json:"duration"`
}

// HistoryResult lists archived takes, newest first.
type HistoryResult struct {
	Slot   int        `json:"slot,omitempty"`
	Pruned int        `json:"pruned,omitempty"`
	Takes  []TakeView `json:"takes"`
}

func (r HistoryResult) RenderText(w io.Writer) {
	if r.Pruned > 0 {
		fmt.Fprintf(w, "Pruned %d take(s) from slot %d\n", r.Pruned, r.Slot)
	}
	if len(r.Takes) == 0 {
		fmt.Fprintln(w, "No archived takes")
		return
	}
	for _, tk := range r.Takes {
		name := tk.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%s  slot %3d  %-20s %7d events %9.2fs  %s\n",
			tk.ID, tk.Slot, name, tk.EventCount, tk.Duration, tk.RecordedAt.Local().Format(time.DateTime))
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived takes",
		Long: `List the takes kept in the archive. Every committed recording is archived,
including ones later overwritten in their slot.

Examples:
  replaypad history
  replaypad history --slot 3 --limit 5
  replaypad history --slot 3 --prune 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Slot, "slot", 0, "only takes of this slot (0 = all)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum takes to list (0 = all)")
	cmd.Flags().IntVar(&opts.Prune, "prune", 0, "keep only the newest N takes of --slot before listing")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if opts.Prune > 0 && opts.Slot <= 0 {
		return s.out.Fail(ExitCommandError, "invalid flags", errors.New("--prune needs --slot"))
	}

	a, err := openArchive(s.cfg, s.logger)
	if err != nil {
		return s.out.Fail(ExitFailure, "failed to open archive", err)
	}
	if a == nil {
		return s.out.Fail(ExitCommandError, "history unavailable", errArchiveDisabled)
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := HistoryResult{Slot: opts.Slot, Takes: []TakeView{}}
	if opts.Prune > 0 {
		if result.Pruned, err = a.Prune(ctx, opts.Slot, opts.Prune); err != nil {
			return s.out.Fail(ExitFailure, "prune failed", err)
		}
	}

	takes, err := a.List(ctx, opts.Slot, opts.Limit)
	if err != nil {
		return s.out.Fail(ExitFailure, "failed to list takes", err)
	}
	for _, tk := range takes {
		result.Takes = append(result.Takes, viewOf(tk))
	}
	return s.out.Success(result)
}

func viewOf(tk archive.Take) TakeView {
	return TakeView{
		ID:         tk.ID,
		Slot:       tk.Slot,
		Name:       tk.Name,
		RecordedAt: tk.RecordedAt,
		EventCount: tk.EventCount,
		Duration:   tk.Duration,
	}
}

// RestoreOptions holds flags for the restore command.
type RestoreOptions struct {
	*RootOptions
	Slot string
}

// RestoreResult reports a restored take.
type RestoreResult struct {
	Take TakeView `json:"take"`
	Slot int      `json:"slot"`
}

func (r RestoreResult) RenderText(w io.Writer) {
	fmt.Fprintf(w, "Take %s restored into slot %d (%d events)\n", r.Take.ID, r.Slot, r.Take.EventCount)
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RestoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "restore <take-id>",
		Short: "Copy an archived take back into a slot",
		Long: `Replace a slot with an archived take and save the sequence file. The take
goes back to the slot it was recorded in unless --slot is given.

Examples:
  replaypad restore 0192f0c4-5b1e-7c3a-9d2e-4f6a8b0c1d2e
  replaypad restore 0192f0c4-5b1e-7c3a-9d2e-4f6a8b0c1d2e --slot 7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Slot, "slot", "", "target slot (default: the take's slot)")

	return cmd
}

func runRestore(opts *RestoreOptions, cmd *cobra.Command, id string) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	a, err := openArchive(s.cfg, s.logger)
	if err != nil {
		return s.out.Fail(ExitFailure, "failed to open archive", err)
	}
	if a == nil {
		return s.out.Fail(ExitCommandError, "restore unavailable", errArchiveDisabled)
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	tk, err := a.Get(ctx, id)
	if err != nil {
		code := ExitFailure
		if errors.Is(err, archive.ErrNotFound) {
			code = ExitCommandError
		}
		return s.out.Fail(code, "restore failed", err)
	}

	store, err := openOfflineStore(s.cfg, s.logger)
	if err != nil {
		return s.out.Fail(ExitFailure, "failed to load sequences", err)
	}
	slot := tk.Slot
	if opts.Slot != "" {
		if slot, err = parseSlot(opts.Slot, store); err != nil {
			return s.out.Fail(ExitCommandError, "invalid slot", err)
		}
	}
	if err := store.Set(slot, tk.Events, tk.Name); err != nil {
		return s.out.Fail(ExitCommandError, "restore failed", err)
	}
	if err := saveStore(s.cfg, store); err != nil {
		return s.out.Fail(ExitFailure, "failed to save sequences", err)
	}
	return s.out.Success(RestoreResult{Take: viewOf(tk), Slot: slot})
}
