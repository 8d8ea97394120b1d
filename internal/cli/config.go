package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigOptions holds flags for the config command.
type ConfigOptions struct {
	*RootOptions
	Write string
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Load and validate the configuration, then print the result as YAML
(or JSON with --format json). --write saves it to a file, which is a good
starting point for config/user.yaml.

Examples:
  replaypad config
  replaypad config -c my.yaml --write config/user.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Write, "write", "", "also write the effective config to this file")

	return cmd
}

func runConfig(opts *ConfigOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		_ = out.Error("INVALID_CONFIG", err.Error(), nil)
		return err
	}

	if opts.Write != "" {
		if err := cfg.Save(opts.Write); err != nil {
			return out.Fail(ExitFailure, "failed to write config", err)
		}
		out.VerboseLog("config written to %s", opts.Write)
	}

	if opts.Format == "json" {
		return out.Success(cfg)
	}
	data, err := cfg.YAML()
	if err != nil {
		return out.Fail(ExitFailure, "failed to encode config", err)
	}
	fmt.Fprint(out.Writer, string(data))
	return nil
}
