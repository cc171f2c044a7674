package main

import (
	"fmt"
	"os"

	"unitscope/cmd/unitscope/cmd"
)

// Version information - set by goreleaser at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(version, commit, date)

	// Startup failures happen before the UI owns the terminal; print them
	// plainly. Cobra's own printing is silenced on the root command.
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "unitscope:", err)
		os.Exit(1)
	}
}
