// Package cli provides the command-line interface for CortexFolio
package cli

import (
	"os"

	"github.com/dyike/CortexFolio/internal/apperr"
)

// Run starts the CLI application
func Run() {
	state := &appState{}
	rootCmd := newRootCmd(state)

	err := rootCmd.Execute()
	state.close()
	if err != nil {
		DisplayError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error class to the process exit status.
func exitCode(err error) int {
	switch apperr.Kind(err) {
	case "":
		return 0
	case "validation":
		return 2
	case "not_found":
		return 3
	case "storage":
		return 4
	default:
		return 1
	}
}
