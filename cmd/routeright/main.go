package main

import (
	"os"

	"github.com/pablasso/routeright/internal/cli"
)

func main() {
	// No args opens the interactive planner; everything else is a subcommand.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
