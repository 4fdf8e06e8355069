package main

import (
	"os"

	"github.com/wonny/ecfr-scorecard/cmd/scorecard/commands"
)

// main is the entry point for the scorecard CLI
// ⭐ Single CLI entry point: go run ./cmd/scorecard [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
