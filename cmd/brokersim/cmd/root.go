package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "brokersim",
	Short: "A mock broker that simulates realistic order execution",
	Long: `Brokersim is an execution simulator for testing trading systems without
touching a real venue.

It provides:
  - Asynchronous fills with configurable latency and jitter
  - Partial fills split into randomly sized slices
  - Probabilistic rejects, slippage and fees
  - Limit price enforcement and market-hours gating
  - Execution journaling to CSV or SQLite
  - A paper account that tracks positions and PnL
  - An HTTP API with a websocket execution stream`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var debug bool

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
