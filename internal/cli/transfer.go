package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// TransferResult reports an export or import.
type TransferResult struct {
	Action string `json:"action"` // "exported" | "imported"
	Slot   int    `json:"slot"`
	Path   string `json:"path"`
	Events int    `json:"events"`
}

func (r TransferResult) RenderText(w io.Writer) {
	fmt.Fprintf(w, "Slot %d %s (%d events): %s\n", r.Slot, r.Action, r.Events, r.Path)
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <slot> <file>",
		Short: "Export one slot to a file",
		Long: `Write one slot to a standalone JSON document that import can read back,
on this machine or another.

Examples:
  replaypad export 3 combo.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, cmd, args[0], args[1])
		},
	}
}

func runExport(opts *RootOptions, cmd *cobra.Command, slotArg, path string) error {
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
	if err := store.Export(slot, path); err != nil {
		return s.out.Fail(ExitCommandError, "export failed", err)
	}
	return s.out.Success(TransferResult{Action: "exported", Slot: slot, Path: path, Events: store.Len(slot)})
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Slot string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an exported slot",
		Long: `Replace a slot with the contents of a document written by export and
save the sequence file. Documents over the per-slot event limit are
truncated.

Examples:
  replaypad import combo.json --slot 5`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Slot, "slot", "", "target slot (required)")
	_ = cmd.MarkFlagRequired("slot")

	return cmd
}

func runImport(opts *ImportOptions, cmd *cobra.Command, path string) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	store, err := openOfflineStore(s.cfg, s.logger)
	if err != nil {
		return s.out.Fail(ExitFailure, "failed to load sequences", err)
	}
	slot, err := parseSlot(opts.Slot, store)
	if err != nil {
		return s.out.Fail(ExitCommandError, "invalid slot", err)
	}
	if err := store.Import(path, slot); err != nil {
		return s.out.Fail(ExitCommandError, "import failed", err)
	}
	if err := saveStore(s.cfg, store); err != nil {
		return s.out.Fail(ExitFailure, "failed to save sequences", err)
	}
	return s.out.Success(TransferResult{Action: "imported", Slot: slot, Path: path, Events: store.Len(slot)})
}
