package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/replaypad/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// Commands that already printed through the formatter return an
		// ExitError; usage errors from cobra do not.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Code == cli.ExitCommandError {
			fmt.Fprintln(os.Stderr, "replaypad:", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
