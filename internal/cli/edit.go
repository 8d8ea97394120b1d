package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/replaypad/internal/sequence"
)

// EditResult reports a clear or rename.
type EditResult struct {
	Slot int    `json:"slot"`
	Name string `json:"name,omitempty"`
}

type clearedResult struct{ EditResult }

func (r clearedResult) RenderText(w io.Writer) {
	fmt.Fprintf(w, "Slot %d cleared\n", r.Slot)
}

type renamedResult struct{ EditResult }

func (r renamedResult) RenderText(w io.Writer) {
	fmt.Fprintf(w, "Slot %d renamed to %q\n", r.Slot, r.Name)
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <slot>",
		Short: "Empty a slot",
		Long: `Delete the events and metadata of one slot and save the sequence file.
Archived takes are kept; use restore to bring one back.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(rootOpts, cmd, args[0], func(store *sequence.Store, slot int) (textRenderer, error) {
				if err := store.Clear(slot); err != nil {
					return nil, err
				}
				return clearedResult{EditResult{Slot: slot}}, nil
			})
		},
	}
}

// NewRenameCommand creates the rename command.
func NewRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <slot> <name>",
		Short: "Name a slot",
		Long: `Set the display name of a slot and save the sequence file. Names are
stored in Unicode NFC form.

Examples:
  replaypad rename 2 "wavedash left"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[1]
			return runEdit(rootOpts, cmd, args[0], func(store *sequence.Store, slot int) (textRenderer, error) {
				if err := store.Rename(slot, name); err != nil {
					return nil, err
				}
				meta, _ := store.Metadata(slot)
				return renamedResult{EditResult{Slot: slot, Name: meta.Name}}, nil
			})
		},
	}
}

// runEdit loads the store, applies edit to slot and saves.
func runEdit(opts *RootOptions, cmd *cobra.Command, slotArg string, edit func(store *sequence.Store, slot int) (textRenderer, error)) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	store, err := openOfflineStore(s.cfg, s.logger)
	if err != nil {
		return s.out.Fail(ExitFailure, "failed to load sequences", err)
	}
	slot, err := parseSlot(slotArg, store)
	if err != nil {
		return s.out.Fail(ExitCommandError, "invalid slot", err)
	}
	result, err := edit(store, slot)
	if err != nil {
		return s.out.Fail(ExitCommandError, "edit failed", err)
	}
	if err := saveStore(s.cfg, store); err != nil {
		return s.out.Fail(ExitFailure, "failed to save sequences", err)
	}
	return s.out.Success(result)
}
