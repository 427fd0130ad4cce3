// Package main is the entry point for the cost-reports CLI.
package main

import (
	"os"

	"cost-reports/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
