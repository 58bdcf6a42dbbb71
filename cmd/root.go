package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "ghost-engine",
	Short: "Signal outcome engine",
	Long: `Signal outcome engine that tracks crypto trading signals against
live or historical market prices and resolves each one to a terminal
classification (NO_FILL, SL, BE_EXIT, TP1_ONLY, TP2_PARTIAL, FULL_TP or
TIMEOUT) with decimal-exact P&L.

Signals for the same symbol share one market-data subscription, every
lifecycle transition is persisted, and a replay over the same candles
reproduces the live result exactly.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
