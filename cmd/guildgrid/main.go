// Command guildgrid creates, views and edits guild grids from the terminal.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/guildgrid/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands report their own failures; only flag and setup errors
		// still need printing.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
