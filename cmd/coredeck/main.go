// Package main is the entry point for the coredeck CLI.
//
// All functionality lives in internal/cli. Build-time variables (version,
// commit, date) are injected via ldflags and default to "dev", "none" and
// "unknown" during development.
package main

import (
	"github.com/shinji-kodama/coredeck/internal/cli"
)

// version, commit and date are set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
