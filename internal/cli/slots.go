package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/replaypad/internal/sequence"
)

// SlotsOptions holds flags for the slots command.
type SlotsOptions struct {
	*RootOptions
	All bool
}

// SlotsResult lists the slots of the store file.
type SlotsResult struct {
	Path  string             `json:"path"`
	Slots []sequence.Summary `json:"slots"`
}

func (r SlotsResult) RenderText(w io.Writer) {
	fmt.Fprintf(w, "Sequences in %s\n", r.Path)
	if len(r.Slots) == 0 {
		fmt.Fprintln(w, "  (no recordings)")
		return
	}
	for _, s := range r.Slots {
		fmt.Fprintf(w, "  %3d  %-24s %7d events %9.2fs\n", s.Slot, s.Name, s.EventCount, s.Duration)
	}
}

// NewSlotsCommand creates the slots command.
func NewSlotsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SlotsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List recorded slots",
		Long: `List the slots saved in the sequence file with their name, event count
and duration. Empty slots are hidden unless --all is given.

Examples:
  replaypad slots
  replaypad slots --all --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlots(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "include empty slots")

	return cmd
}

func runSlots(opts *SlotsOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	store, err := openOfflineStore(s.cfg, s.logger)
	if err != nil {
		return s.out.Fail(ExitFailure, "failed to load sequences", err)
	}

	result := SlotsResult{Path: s.cfg.StorePath(), Slots: []sequence.Summary{}}
	for _, sum := range store.Summary() {
		if opts.All || sum.EventCount > 0 {
			result.Slots = append(result.Slots, sum)
		}
	}
	return s.out.Success(result)
}
