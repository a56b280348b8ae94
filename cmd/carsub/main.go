package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kstephens0331/carsub/internal/logging"
)

var (
	// Global flags
	verbose bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "carsub",
	Short: "carsub - directory submission campaign engine",
	Long: `carsub runs a rate-limited, multi-week campaign that submits a local
business profile to web directories.

It decides WHEN to attempt a submission (scheduler + 30-week planner),
WHETHER a directory is worth attempting (tiered relevance classifier), and
HOW to act on a loaded page (snapshot-driven state machine + form filler).

Every attempt ends in exactly one append-only ledger entry; weekly and daily
rate limits are always derived from ledger timestamps.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cwd, err := os.Getwd(); err == nil {
			if err := logging.Initialize(cwd); err != nil {
				logger.Warn("file logging unavailable", zap.Error(err))
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(preflightCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	// Unattended/scheduled runs signal operational failure via exit status.
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
