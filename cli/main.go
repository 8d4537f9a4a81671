package main

import (
	"fmt"
	"os"

	"github.com/trebuchet-org/treb-bootstrap/internal/cli"
	"github.com/trebuchet-org/treb-bootstrap/internal/config"
)

// Set by the linker
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	config.SetBuildFlags(version, commit, date)

	rootCmd, release := cli.NewRootCmd()
	err := rootCmd.Execute()
	release()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
