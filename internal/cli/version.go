package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/roach88/replaypad/internal/sequence"
)

// Version is set at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

// VersionResult describes the binary.
type VersionResult struct {
	Version     string `json:"version"`
	FileVersion string `json:"file_version"`
	GoVersion   string `json:"go_version"`
	Platform    string `json:"platform"`
}

func (r VersionResult) RenderText(w io.Writer) {
	fmt.Fprintf(w, "replaypad %s (sequence files v%s, %s, %s)\n", r.Version, r.FileVersion, r.GoVersion, r.Platform)
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print version information",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			return out.Success(VersionResult{
				Version:     Version,
				FileVersion: sequence.FileVersion.String(),
				GoVersion:   runtime.Version(),
				Platform:    runtime.GOOS + "/" + runtime.GOARCH,
			})
		},
	}
}
