package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	scoringConfig string
	verbose       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scorecard",
	Short: "eCFR regulatory scorecard pipeline",
	Long: `eCFR Scorecard CLI

Batch pipeline that turns the eCFR agency and correction corpus
into per-agency metrics, ranked scorecards and trend tables.

Pipeline: S0 ingest → S1 metrics → S2 scorecard → S3 publish

Usage:
  go run ./cmd/scorecard [command]

Examples:
  go run ./cmd/scorecard migrate
  go run ./cmd/scorecard run
  go run ./cmd/scorecard api
  go run ./cmd/scorecard report`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&scoringConfig, "scoring-config", "", "scoring policy YAML (default is SCORING_CONFIG_PATH or built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
