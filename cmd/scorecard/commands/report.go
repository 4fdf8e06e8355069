package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/ecfr-scorecard/internal/report"
)

// reportCmd prints the summary report of the current snapshot
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the summary report of the current snapshot",
	Long: `Print an overview of the current snapshot: totals, the most
corrected agencies, the highest regulatory volatility and recent trends.

Report sizes come from the report section of the scoring config.

Example:
  go run ./cmd/scorecard report`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	in, err := report.Load(ctx, a.store)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	return report.Render(os.Stdout, report.Build(in, a.scoring.Report))
}
