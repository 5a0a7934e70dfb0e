// Package main provides the msgcheck command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/msgcheck/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
