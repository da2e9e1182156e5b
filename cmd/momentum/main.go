package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/momentum/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Command RunE funcs print their own formatted errors; only
		// flag and usage errors still need reporting here.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
