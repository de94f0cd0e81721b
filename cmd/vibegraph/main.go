// Package main provides the entry point for the vibegraph CLI.
package main

import (
	"os"

	"github.com/vibegraph/vibegraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
