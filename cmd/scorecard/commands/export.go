package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/ecfr-scorecard/internal/report"
)

var exportDir string

// exportCmd writes the current snapshot as JSON files
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current snapshot as JSON files",
	Long: `Write every table of the current snapshot plus the summary report
as one JSON file each.

Example:
  go run ./cmd/scorecard export --dir ./out`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "export", "output directory")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	files, err := report.Export(ctx, a.store, exportDir, a.scoring.Report)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}

	PrintHeader("Export")
	for _, f := range files {
		fmt.Printf("  %s\n", f)
	}
	PrintSeparator()
	PrintSuccess(fmt.Sprintf("Wrote %d files to %s", len(files), exportDir))
	return nil
}
