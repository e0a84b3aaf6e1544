// Package main provides the vaultgen command.
package main

import (
	"os"

	"github.com/leapstack-labs/vaultgen/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
