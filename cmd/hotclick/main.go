// Package main is the entry point for the hotclick CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/hotclick/internal/cli"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := cli.NewRootCommand()
	root.Version = fmt.Sprintf("%s (%s)", version, commit)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
