// Package main is the entry point for the firefly command line tool.
package main

import (
	"os"

	"firefly/cmd/firefly-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
