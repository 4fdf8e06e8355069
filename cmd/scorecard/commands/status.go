package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
)

var statusLimit int

// statusCmd shows the current snapshot and recent runs
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current snapshot and recent runs",
	Long: `Show the current snapshot, recent pipeline runs and staging row counts.

Example:
  go run ./cmd/scorecard status
  go run ./cmd/scorecard status --limit 20`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of recent runs to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	PrintHeader("Current Snapshot")
	snap, err := a.store.CurrentSnapshot(ctx)
	switch {
	case errors.Is(err, contracts.ErrNoSnapshot):
		PrintInfo("No snapshot published yet")
	case err != nil:
		return fmt.Errorf("load current snapshot: %w", err)
	default:
		fmt.Printf("  Snapshot  : %s\n", snap.ID)
		fmt.Printf("  Run       : %s\n", snap.RunID)
		if snap.PublishedAt != nil {
			fmt.Printf("  Published : %s\n", snap.PublishedAt.Format(time.RFC3339))
		}
		fmt.Printf("  Agencies  : %s\n", formatNumber(int64(snap.AgencyCount)))
		fmt.Printf("  Corrections: %s\n", formatNumber(int64(snap.CorrectionCount)))
		fmt.Printf("  Scorecards: %s\n", formatNumber(int64(snap.ScorecardCount)))
		fmt.Printf("  Scoring   : %s\n", shortDigest(snap.ScoringConfigHash))
		if snap.ScoringConfigHash != a.scoringHash {
			PrintWarning("Scoring config changed since this snapshot; the next run will republish")
		}
	}

	PrintHeader("Retained Snapshots")
	snaps, err := a.store.Snapshots(ctx, a.cfg.Pipeline.SnapshotRetention+statusLimit)
	if err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}
	PrintTableHeader([]string{"SNAPSHOT", "STATUS", "CREATED", "SCORECARDS"}, []int{36, 10, 20, 10})
	for _, s := range snaps {
		fmt.Printf("%-36s  %-10s  %-20s  %10d\n",
			s.ID, s.Status, s.CreatedAt.Format("2006-01-02 15:04:05"), s.ScorecardCount)
	}

	PrintHeader("Recent Runs")
	runs, err := a.store.Runs(ctx, statusLimit)
	if err != nil {
		return fmt.Errorf("load runs: %w", err)
	}
	if len(runs) == 0 {
		PrintInfo("No runs recorded")
	} else {
		PrintTableHeader([]string{"STARTED", "STATUS", "TRIGGER", "SNAPSHOT"}, []int{20, 10, 10, 36})
		for _, r := range runs {
			fmt.Printf("%-20s  %-10s  %-10s  %-36s\n",
				r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, r.Trigger, r.SnapshotID)
			if r.Error != "" {
				fmt.Printf("  ↳ %s\n", r.Error)
			}
		}
	}

	PrintHeader("Staging Store")
	st, err := a.openStaging(ctx)
	if err != nil {
		PrintWarning(err.Error())
		return nil
	}
	defer st.Close()

	counts, err := st.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count staging rows: %w", err)
	}
	fmt.Printf("  Path      : %s\n", stagingLabel(st.Path()))
	for _, table := range []string{"staging_agencies", "staging_cfr_references", "staging_corrections"} {
		fmt.Printf("  %-24s %s\n", table, formatNumber(int64(counts[table])))
	}
	fmt.Println()

	return nil
}
