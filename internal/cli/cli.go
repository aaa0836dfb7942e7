// Package cli provides the command-line interface for finreact
package cli

import (
	"os"

	"github.com/dyike/finreact/internal/logger"
)

// Run starts the CLI application
func Run() {
	rootCmd := NewRootCmd()

	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
